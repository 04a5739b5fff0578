// internal/domain/product/slug.go
package product

import (
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"github.com/your-org/catalog-backend/internal/pkg/apperror"
	"gorm.io/gorm"
)

// uniqueSlug slugifies source, suffixing the unix time when the slug is taken.
// Soft-deleted rows still hold their slug.
func uniqueSlug(tx *gorm.DB, model interface{}, source string, excludeID uint) (string, error) {
	base := slug.Make(source)
	if base == "" {
		base = "item"
	}

	candidate := base
	stamp := time.Now().Unix()
	for i := 1; i <= 50; i++ {
		taken, err := slugTaken(tx, model, candidate, excludeID)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		if i == 1 {
			candidate = fmt.Sprintf("%s-%d", base, stamp)
		} else {
			candidate = fmt.Sprintf("%s-%d-%d", base, stamp, i)
		}
	}
	return "", fmt.Errorf("failed to find a free slug for %q", base)
}

func slugTaken(tx *gorm.DB, model interface{}, s string, excludeID uint) (bool, error) {
	var count int64
	query := tx.Model(model).Unscoped().Where("slug = ?", s)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// resolveSlug keeps an explicitly requested slug when free, otherwise derives one from name
func resolveSlug(tx *gorm.DB, model interface{}, requested, name string, excludeID uint) (string, error) {
	if requested == "" {
		return uniqueSlug(tx, model, name, excludeID)
	}
	taken, err := slugTaken(tx, model, requested, excludeID)
	if err != nil {
		return "", fmt.Errorf("failed to check slug: %w", err)
	}
	if taken {
		return "", apperror.FieldError("slug", "The slug has already been taken.")
	}
	return requested, nil
}
