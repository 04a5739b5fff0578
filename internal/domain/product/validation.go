// internal/domain/product/validation.go
package product

import "github.com/your-org/catalog-backend/internal/pkg/validation"

var validate = validation.Validator()

func validateStruct(s interface{}) map[string][]string {
	return validation.Struct(s)
}

func validationError(fields map[string][]string) error {
	return validation.Error(fields)
}

func addFieldError(fields map[string][]string, key, msg string) map[string][]string {
	return validation.Add(fields, key, msg)
}
