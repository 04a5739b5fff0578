// internal/domain/product/brand_service.go
package product

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/your-org/catalog-backend/internal/config"
	"github.com/your-org/catalog-backend/internal/domain/upload"
	"github.com/your-org/catalog-backend/internal/infrastructure/cache"
	"github.com/your-org/catalog-backend/internal/pkg/apperror"
	"gorm.io/gorm"
)

var errBrandNotFound = apperror.NotFound("Brand not found.")

// BrandService handles brand business logic
type BrandService struct {
	db      *gorm.DB
	cache   *cache.Catalog
	uploads *upload.Service
	config  *config.Config
	log     *logrus.Logger
}

// NewBrandService creates a new brand service
func NewBrandService(db *gorm.DB, catalogCache *cache.Catalog, uploads *upload.Service, cfg *config.Config, log *logrus.Logger) *BrandService {
	return &BrandService{
		db:      db,
		cache:   catalogCache,
		uploads: uploads,
		config:  cfg,
		log:     log,
	}
}

// BrandRequest represents brand create and update data, bound from JSON or a multipart form
type BrandRequest struct {
	Name            string `json:"name" form:"name" validate:"required,max=255"`
	Slug            string `json:"slug" form:"slug" validate:"max=255"`
	Description     string `json:"description" form:"description"`
	Website         string `json:"website" form:"website" validate:"omitempty,url,max=255"`
	IsActive        *bool  `json:"is_active" form:"is_active"`
	IsFeatured      *bool  `json:"is_featured" form:"is_featured"`
	Order           int    `json:"order" form:"order"`
	MetaTitle       string `json:"meta_title" form:"meta_title" validate:"max=255"`
	MetaDescription string `json:"meta_description" form:"meta_description" validate:"max=500"`
	DeleteLogo      bool   `json:"delete_logo" form:"delete_logo"`
}

// BrandPage is one page of the admin brand list
type BrandPage struct {
	Brands     []Brand    `json:"data"`
	Pagination Pagination `json:"meta"`
}

// ListActive returns active brands sorted by name
func (s *BrandService) ListActive(ctx context.Context) ([]Brand, error) {
	brands, err := cache.Remember(ctx, s.cache, "brands:active", nil, func() ([]Brand, error) {
		var brands []Brand
		if err := s.db.WithContext(ctx).
			Where("is_active = ?", true).
			Order("name ASC").
			Find(&brands).Error; err != nil {
			return nil, fmt.Errorf("failed to retrieve brands: %w", err)
		}
		return brands, nil
	})
	if err != nil {
		return nil, err
	}
	for i := range brands {
		s.decorate(&brands[i])
	}
	return brands, nil
}

// AdminList returns a page of brands with product counts, optionally filtered by name
func (s *BrandService) AdminList(ctx context.Context, search string, page int) (*BrandPage, error) {
	query := s.db.WithContext(ctx).Model(&Brand{})
	if search = strings.TrimSpace(search); search != "" {
		query = query.Where("brands.name ILIKE ?", "%"+escapeLike(search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count brands: %w", err)
	}

	pagination := NewPagination(total, s.config.Catalog.AdminPerPage, page)

	var brands []Brand
	if err := query.
		Select("brands.*, (SELECT COUNT(*) FROM products WHERE products.brand_id = brands.id AND products.deleted_at IS NULL) AS products_count").
		Order("brands.name ASC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&brands).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve brands: %w", err)
	}
	for i := range brands {
		s.decorate(&brands[i])
	}

	return &BrandPage{Brands: brands, Pagination: pagination}, nil
}

// Get retrieves a brand by id
func (s *BrandService) Get(ctx context.Context, id uint) (*Brand, error) {
	var brand Brand
	if err := s.db.WithContext(ctx).First(&brand, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errBrandNotFound
		}
		return nil, fmt.Errorf("failed to retrieve brand: %w", err)
	}
	s.decorate(&brand)
	return &brand, nil
}

// Exists reports whether a live brand has the given id
func (s *BrandService) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Brand{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check brand: %w", err)
	}
	return count > 0, nil
}

// Create stores the optional logo and creates the brand. The logo is removed
// again when the insert fails.
func (s *BrandService) Create(ctx context.Context, req *BrandRequest, logo *multipart.FileHeader) (*Brand, error) {
	if err := s.validate(req, logo); err != nil {
		return nil, err
	}

	brand := Brand{
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		Website:         req.Website,
		IsActive:        req.IsActive == nil || *req.IsActive,
		IsFeatured:      req.IsFeatured != nil && *req.IsFeatured,
		Order:           req.Order,
		MetaTitle:       req.MetaTitle,
		MetaDescription: req.MetaDescription,
	}

	var stored string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkBrandName(tx, brand.Name, 0); err != nil {
			return err
		}
		slug, err := resolveSlug(tx, &Brand{}, req.Slug, brand.Name, 0)
		if err != nil {
			return err
		}
		brand.Slug = slug

		if logo != nil {
			if stored, err = s.uploads.StoreFile(ctx, "logo", logo, "brands"); err != nil {
				return err
			}
			brand.Logo = stored
		}

		if err := tx.Create(&brand).Error; err != nil {
			if apperror.IsUniqueViolation(err) {
				return apperror.FieldError("name", "The name has already been taken.")
			}
			return fmt.Errorf("failed to create brand: %w", err)
		}
		return nil
	})
	if err != nil {
		s.uploads.Discard(ctx, stored)
		return nil, s.writeError("create", 0, err)
	}

	s.cache.Invalidate(ctx)
	s.log.WithFields(logrus.Fields{"brand_id": brand.ID, "slug": brand.Slug}).Info("brand created")
	s.decorate(&brand)
	return &brand, nil
}

// Update replaces a brand's attributes. A new logo replaces the old one;
// DeleteLogo removes it. Old files are deleted after commit.
func (s *BrandService) Update(ctx context.Context, id uint, req *BrandRequest, logo *multipart.FileHeader) (*Brand, error) {
	if err := s.validate(req, logo); err != nil {
		return nil, err
	}

	var brand Brand
	var stored, obsolete string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&brand, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errBrandNotFound
			}
			return fmt.Errorf("failed to find brand: %w", err)
		}

		name := strings.TrimSpace(req.Name)
		if err := checkBrandName(tx, name, id); err != nil {
			return err
		}

		slug := brand.Slug
		if req.Slug != "" || brand.Name != name {
			var err error
			if slug, err = resolveSlug(tx, &Brand{}, req.Slug, name, id); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"name":             name,
			"slug":             slug,
			"description":      req.Description,
			"website":          req.Website,
			"order":            req.Order,
			"meta_title":       req.MetaTitle,
			"meta_description": req.MetaDescription,
		}
		if req.IsActive != nil {
			updates["is_active"] = *req.IsActive
		}
		if req.IsFeatured != nil {
			updates["is_featured"] = *req.IsFeatured
		}

		switch {
		case logo != nil:
			var err error
			if stored, err = s.uploads.StoreFile(ctx, "logo", logo, "brands"); err != nil {
				return err
			}
			updates["logo"] = stored
			obsolete = brand.Logo
		case req.DeleteLogo:
			updates["logo"] = ""
			obsolete = brand.Logo
		}

		if err := tx.Model(&brand).Updates(updates).Error; err != nil {
			if apperror.IsUniqueViolation(err) {
				return apperror.FieldError("name", "The name has already been taken.")
			}
			return fmt.Errorf("failed to update brand: %w", err)
		}
		return nil
	})
	if err != nil {
		s.uploads.Discard(ctx, stored)
		return nil, s.writeError("update", id, err)
	}

	s.uploads.Discard(ctx, obsolete)
	s.cache.Invalidate(ctx)
	return s.Get(ctx, id)
}

// Delete removes a brand and its logo. Brands still referenced by products are kept.
func (s *BrandService) Delete(ctx context.Context, id uint) error {
	var brand Brand
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&brand, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errBrandNotFound
			}
			return fmt.Errorf("failed to find brand: %w", err)
		}

		var productCount int64
		if err := tx.Model(&Product{}).Where("brand_id = ?", id).Count(&productCount).Error; err != nil {
			return fmt.Errorf("failed to count products: %w", err)
		}
		if productCount > 0 {
			return apperror.Conflict("Cannot delete brand with existing products.")
		}

		if err := tx.Delete(&brand).Error; err != nil {
			return fmt.Errorf("failed to delete brand: %w", err)
		}
		return nil
	})
	if err != nil {
		return s.writeError("delete", id, err)
	}

	s.uploads.Discard(ctx, brand.Logo)
	s.cache.Invalidate(ctx)
	s.log.WithField("brand_id", id).Info("brand deleted")
	return nil
}

func (s *BrandService) validate(req *BrandRequest, logo *multipart.FileHeader) error {
	errs := validateStruct(req)
	if logo != nil {
		if err := s.uploads.Validate("logo", logo); err != nil {
			var appErr *apperror.Error
			if errors.As(err, &appErr) {
				errs = apperror.Merge(errs, appErr.Fields)
			}
		}
	}
	return validationError(errs)
}

func (s *BrandService) decorate(b *Brand) {
	if b.Logo != "" {
		b.LogoURL = s.uploads.URL(b.Logo)
	}
}

func checkBrandName(tx *gorm.DB, name string, excludeID uint) error {
	var count int64
	query := tx.Model(&Brand{}).Where("name = ?", name)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check brand name: %w", err)
	}
	if count > 0 {
		return apperror.FieldError("name", "The name has already been taken.")
	}
	return nil
}

func (s *BrandService) writeError(op string, id uint, err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	s.log.WithError(err).WithFields(logrus.Fields{"operation": op, "brand_id": id}).Error("brand write failed")
	return apperror.Internal(fmt.Sprintf("Failed to %s brand. Please try again.", op), err)
}
