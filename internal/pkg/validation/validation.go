// internal/pkg/validation/validation.go
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/your-org/catalog-backend/internal/pkg/apperror"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

var validate = newValidator()

// Validator returns the shared validator with the catalog's custom tags registered
func Validator() *validator.Validate {
	return validate
}

func newValidator() *validator.Validate {
	v := validator.New()

	// report json names so error keys match request payloads
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		return IsDate(fl.Field().String())
	})
	v.RegisterValidation("integer_string", func(fl validator.FieldLevel) bool {
		_, err := strconv.Atoi(strings.TrimSpace(fl.Field().String()))
		return err == nil
	})

	return v
}

// IsDate reports whether s parses with one of the accepted date layouts
func IsDate(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// Struct runs the struct tags and converts failures into field messages keyed by json name
func Struct(s interface{}) map[string][]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string][]string{"_": {err.Error()}}
	}

	fields := make(map[string][]string)
	for _, fe := range verrs {
		key := fe.Field()
		fields[key] = append(fields[key], messageFor(key, fe.Tag(), fe.Param(), fe.Kind()))
	}
	return fields
}

func messageFor(field, tag, param string, kind reflect.Kind) string {
	label := strings.ReplaceAll(field, "_", " ")
	switch tag {
	case "required":
		return fmt.Sprintf("The %s field is required.", label)
	case "max":
		if kind == reflect.String {
			return fmt.Sprintf("The %s field must not be greater than %s characters.", label, param)
		}
		return fmt.Sprintf("The %s field must not be greater than %s.", label, param)
	case "min", "gte":
		if kind == reflect.String {
			return fmt.Sprintf("The %s field must be at least %s characters.", label, param)
		}
		return fmt.Sprintf("The %s field must be at least %s.", label, param)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", label)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", label)
	case "url":
		return fmt.Sprintf("The %s field must be a valid URL.", label)
	case "eqfield":
		return fmt.Sprintf("The %s field confirmation does not match.", label)
	default:
		return fmt.Sprintf("The %s field is invalid.", label)
	}
}

// Error wraps collected field messages, nil when there are none
func Error(fields map[string][]string) error {
	if len(fields) == 0 {
		return nil
	}
	return apperror.Validation("The given data was invalid.", fields)
}

// Add appends msg to key, allocating the map on first use
func Add(fields map[string][]string, key, msg string) map[string][]string {
	if fields == nil {
		fields = make(map[string][]string)
	}
	fields[key] = append(fields[key], msg)
	return fields
}
