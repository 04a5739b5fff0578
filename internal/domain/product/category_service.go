// internal/domain/product/category_service.go
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/your-org/catalog-backend/internal/config"
	"github.com/your-org/catalog-backend/internal/infrastructure/cache"
	"github.com/your-org/catalog-backend/internal/pkg/apperror"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// maxCategoryDepth bounds ancestor walks so a corrupted parent chain cannot loop forever
const maxCategoryDepth = 32

var errCategoryNotFound = apperror.NotFound("Category not found.")

// CategoryService handles category business logic
type CategoryService struct {
	db     *gorm.DB
	cache  *cache.Catalog
	config *config.Config
	log    *logrus.Logger
}

// NewCategoryService creates a new category service
func NewCategoryService(db *gorm.DB, catalogCache *cache.Catalog, cfg *config.Config, log *logrus.Logger) *CategoryService {
	return &CategoryService{
		db:     db,
		cache:  catalogCache,
		config: cfg,
		log:    log,
	}
}

// CategoryRequest represents category create and update data.
// A nil FormFields leaves the category's fields untouched on update.
type CategoryRequest struct {
	Name            string      `json:"name" validate:"required,max=255"`
	Slug            string      `json:"slug" validate:"max=255"`
	ParentID        *uint       `json:"parent_id"`
	IsActive        *bool       `json:"is_active"`
	Order           int         `json:"order"`
	Description     string      `json:"description"`
	MetaTitle       string      `json:"meta_title" validate:"max=255"`
	MetaDescription string      `json:"meta_description" validate:"max=500"`
	FormFields      []FormField `json:"form_fields"`
}

// ListActive returns active categories sorted by name
func (s *CategoryService) ListActive(ctx context.Context) ([]Category, error) {
	return cache.Remember(ctx, s.cache, "categories:active", nil, func() ([]Category, error) {
		var categories []Category
		if err := s.db.WithContext(ctx).
			Where("is_active = ?", true).
			Order("name ASC").
			Find(&categories).Error; err != nil {
			return nil, fmt.Errorf("failed to retrieve categories: %w", err)
		}
		return categories, nil
	})
}

// AdminList returns every category with its parent and product count
func (s *CategoryService) AdminList(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := s.db.WithContext(ctx).
		Model(&Category{}).
		Select("categories.*, (SELECT COUNT(*) FROM products WHERE products.category_id = categories.id AND products.deleted_at IS NULL) AS products_count").
		Preload("Parent").
		Order(`"order" ASC, name ASC`).
		Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve categories: %w", err)
	}
	return categories, nil
}

// Tree returns the categories nested under their parents, ordered by order then name
func (s *CategoryService) Tree(ctx context.Context, includeInactive bool) ([]Category, error) {
	load := func() ([]Category, error) {
		var categories []Category
		query := s.db.WithContext(ctx).Model(&Category{}).Order(`"order" ASC, name ASC`)
		if !includeInactive {
			query = query.Where("is_active = ?", true)
		}
		if err := query.Find(&categories).Error; err != nil {
			return nil, fmt.Errorf("failed to retrieve categories: %w", err)
		}
		return buildTree(categories), nil
	}

	if includeInactive {
		return load()
	}
	return cache.Remember(ctx, s.cache, "categories:tree", nil, load)
}

// buildTree nests categories by parent. Rows whose parent is missing from the
// set (inactive or deleted) are dropped with their subtree.
func buildTree(categories []Category) []Category {
	byParent := make(map[uint][]Category)
	var roots []Category
	for _, c := range categories {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		byParent[*c.ParentID] = append(byParent[*c.ParentID], c)
	}

	var attach func(nodes []Category) []Category
	attach = func(nodes []Category) []Category {
		for i := range nodes {
			nodes[i].Children = attach(byParent[nodes[i].ID])
		}
		return nodes
	}
	return attach(roots)
}

// Get retrieves a category with its parent, active children and own fields
func (s *CategoryService) Get(ctx context.Context, id uint) (*Category, error) {
	var category Category
	err := s.db.WithContext(ctx).
		Preload("Parent").
		Preload("Children", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order(`"order" ASC, name ASC`)
		}).
		Preload("Fields", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC, id ASC`)
		}).
		First(&category, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errCategoryNotFound
		}
		return nil, fmt.Errorf("failed to retrieve category: %w", err)
	}
	return &category, nil
}

// Exists reports whether a live category has the given id
func (s *CategoryService) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check category: %w", err)
	}
	return count > 0, nil
}

// Ancestors returns the parents of a category, nearest first
func (s *CategoryService) Ancestors(ctx context.Context, id uint) ([]Category, error) {
	ids, err := lineage(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	ids = ids[1:]
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []Category
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve ancestors: %w", err)
	}
	byID := make(map[uint]Category, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}

	ancestors := make([]Category, 0, len(ids))
	for _, aid := range ids {
		if c, ok := byID[aid]; ok {
			ancestors = append(ancestors, c)
		}
	}
	return ancestors, nil
}

// lineage returns [id, parent, grandparent, ...] walking parent_id
func lineage(tx *gorm.DB, id uint) ([]uint, error) {
	ids := []uint{id}
	seen := map[uint]bool{id: true}
	currentID := id

	for depth := 0; depth <= maxCategoryDepth; depth++ {
		var category Category
		err := tx.Select("id", "parent_id").First(&category, currentID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if currentID == id {
					return nil, errCategoryNotFound
				}
				// dangling parent reference ends the chain
				return ids, nil
			}
			return nil, fmt.Errorf("failed to walk category parents: %w", err)
		}
		if category.ParentID == nil || seen[*category.ParentID] {
			return ids, nil
		}
		seen[*category.ParentID] = true
		ids = append(ids, *category.ParentID)
		currentID = *category.ParentID
	}
	return ids, nil
}

// AllFields returns the category's fields merged with its ancestors' fields.
// The nearest definition of a name wins. A missing category yields no fields.
func (s *CategoryService) AllFields(ctx context.Context, categoryID uint) ([]CategoryField, error) {
	return allFields(s.db.WithContext(ctx), categoryID)
}

func allFields(tx *gorm.DB, categoryID uint) ([]CategoryField, error) {
	ids, err := lineage(tx, categoryID)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var rows []CategoryField
	if err := tx.Where("category_id IN ?", ids).Order(`"order" ASC, id ASC`).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve category fields: %w", err)
	}

	byCategory := make(map[uint][]CategoryField)
	for _, f := range rows {
		byCategory[f.CategoryID] = append(byCategory[f.CategoryID], f)
	}
	levels := make([][]CategoryField, 0, len(ids))
	for _, id := range ids {
		levels = append(levels, byCategory[id])
	}
	return MergeFields(levels...), nil
}

// FieldValidationRules maps "fields.<name>" to rules for every inherited field
func (s *CategoryService) FieldValidationRules(ctx context.Context, categoryID uint) (map[string][]string, error) {
	fields, err := s.AllFields(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return FieldRules(fields), nil
}

// DescribeFields returns the inherited fields of a category for form rendering
func (s *CategoryService) DescribeFields(ctx context.Context, categoryID uint) ([]map[string]interface{}, error) {
	if _, err := s.Get(ctx, categoryID); err != nil {
		return nil, err
	}
	fields, err := s.AllFields(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return describeFields(fields), nil
}

// Create creates a category and its fields in one transaction
func (s *CategoryService) Create(ctx context.Context, req *CategoryRequest) (*Category, error) {
	errs := validateStruct(req)
	formFields, fieldErrs := SanitizeFormFields(req.FormFields)
	errs = apperror.Merge(errs, fieldErrs)
	if err := validationError(errs); err != nil {
		return nil, err
	}

	category := Category{
		Name:            strings.TrimSpace(req.Name),
		ParentID:        req.ParentID,
		IsActive:        req.IsActive == nil || *req.IsActive,
		Order:           req.Order,
		Description:     req.Description,
		MetaTitle:       req.MetaTitle,
		MetaDescription: req.MetaDescription,
		FormFields:      formFields,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkParent(tx, 0, req.ParentID); err != nil {
			return err
		}

		slug, err := resolveSlug(tx, &Category{}, req.Slug, category.Name, 0)
		if err != nil {
			return err
		}
		category.Slug = slug

		if err := tx.Create(&category).Error; err != nil {
			return fmt.Errorf("failed to create category: %w", err)
		}
		return syncFields(tx, category.ID, formFields)
	})
	if err != nil {
		return nil, s.writeError("create", 0, err)
	}

	s.cache.Invalidate(ctx)
	s.log.WithFields(logrus.Fields{"category_id": category.ID, "slug": category.Slug}).Info("category created")
	return s.Get(ctx, category.ID)
}

// Update replaces a category's attributes and, when submitted, its fields
func (s *CategoryService) Update(ctx context.Context, id uint, req *CategoryRequest) (*Category, error) {
	errs := validateStruct(req)
	var formFields []FormField
	if req.FormFields != nil {
		var fieldErrs map[string][]string
		formFields, fieldErrs = SanitizeFormFields(req.FormFields)
		errs = apperror.Merge(errs, fieldErrs)
	}
	if err := validationError(errs); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category Category
		if err := tx.First(&category, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errCategoryNotFound
			}
			return fmt.Errorf("failed to find category: %w", err)
		}

		if err := checkParent(tx, id, req.ParentID); err != nil {
			return err
		}

		slug := category.Slug
		if req.Slug != "" || category.Name != strings.TrimSpace(req.Name) {
			var err error
			if slug, err = resolveSlug(tx, &Category{}, req.Slug, req.Name, id); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"name":             strings.TrimSpace(req.Name),
			"slug":             slug,
			"parent_id":        req.ParentID,
			"order":            req.Order,
			"description":      req.Description,
			"meta_title":       req.MetaTitle,
			"meta_description": req.MetaDescription,
		}
		if req.IsActive != nil {
			updates["is_active"] = *req.IsActive
		}
		if req.FormFields != nil {
			updates["form_fields"] = datatypes.JSONSlice[FormField](formFields)
		}

		if err := tx.Model(&category).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update category: %w", err)
		}

		if req.FormFields != nil {
			return syncFields(tx, id, formFields)
		}
		return nil
	})
	if err != nil {
		return nil, s.writeError("update", id, err)
	}

	s.cache.Invalidate(ctx)
	return s.Get(ctx, id)
}

// Delete soft-deletes a category and removes its field rows. Categories with
// subcategories or products are kept.
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category Category
		if err := tx.First(&category, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errCategoryNotFound
			}
			return fmt.Errorf("failed to find category: %w", err)
		}

		var childCount int64
		if err := tx.Model(&Category{}).Where("parent_id = ?", id).Count(&childCount).Error; err != nil {
			return fmt.Errorf("failed to count subcategories: %w", err)
		}
		if childCount > 0 {
			return apperror.Conflict("Cannot delete category with subcategories")
		}

		var productCount int64
		if err := tx.Model(&Product{}).Where("category_id = ?", id).Count(&productCount).Error; err != nil {
			return fmt.Errorf("failed to count products: %w", err)
		}
		if productCount > 0 {
			return apperror.Conflict("Cannot delete category with existing products")
		}

		if err := tx.Where("category_id = ?", id).Delete(&CategoryField{}).Error; err != nil {
			return fmt.Errorf("failed to delete category fields: %w", err)
		}
		if err := tx.Delete(&category).Error; err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return nil
	})
	if err != nil {
		return s.writeError("delete", id, err)
	}

	s.cache.Invalidate(ctx)
	s.log.WithField("category_id", id).Info("category deleted")
	return nil
}

// AddField creates a single field on a category
func (s *CategoryService) AddField(ctx context.Context, categoryID uint, in *FieldInput) (*CategoryField, error) {
	if err := validateFieldInput(in); err != nil {
		return nil, err
	}

	field := fieldFromInput(categoryID, in)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&Category{}, categoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errCategoryNotFound
			}
			return err
		}
		if err := tx.Create(&field).Error; err != nil {
			if apperror.IsUniqueViolation(err) {
				return apperror.FieldError("name", "The name has already been taken.")
			}
			return fmt.Errorf("failed to create field: %w", err)
		}
		return refreshFormFields(tx, categoryID)
	})
	if err != nil {
		return nil, s.writeError("create field", categoryID, err)
	}

	s.cache.Invalidate(ctx)
	return &field, nil
}

// UpdateField replaces a field of the category
func (s *CategoryService) UpdateField(ctx context.Context, categoryID, fieldID uint, in *FieldInput) (*CategoryField, error) {
	if err := validateFieldInput(in); err != nil {
		return nil, err
	}

	var field CategoryField
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("category_id = ?", categoryID).First(&field, fieldID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("Category field not found.")
			}
			return err
		}

		next := fieldFromInput(categoryID, in)
		next.ID = field.ID
		next.CreatedAt = field.CreatedAt
		if err := tx.Save(&next).Error; err != nil {
			if apperror.IsUniqueViolation(err) {
				return apperror.FieldError("name", "The name has already been taken.")
			}
			return fmt.Errorf("failed to update field: %w", err)
		}
		field = next
		return refreshFormFields(tx, categoryID)
	})
	if err != nil {
		return nil, s.writeError("update field", categoryID, err)
	}

	s.cache.Invalidate(ctx)
	return &field, nil
}

// DeleteField removes a field from the category
func (s *CategoryService) DeleteField(ctx context.Context, categoryID, fieldID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("category_id = ?", categoryID).Delete(&CategoryField{}, fieldID)
		if result.Error != nil {
			return fmt.Errorf("failed to delete field: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperror.NotFound("Category field not found.")
		}
		return refreshFormFields(tx, categoryID)
	})
	if err != nil {
		return s.writeError("delete field", categoryID, err)
	}

	s.cache.Invalidate(ctx)
	return nil
}

func validateFieldInput(in *FieldInput) error {
	errs := validateStruct(in)
	if in.Type == "" {
		in.Type = "text"
	}
	if !IsFieldType(in.Type) {
		errs = addFieldError(errs, "type", "The selected type is invalid.")
	}
	return validationError(errs)
}

func fieldFromInput(categoryID uint, in *FieldInput) CategoryField {
	label := strings.TrimSpace(in.Label)
	if label == "" {
		label = DefaultLabel(in.Name)
	}
	options := in.Options
	if !fieldTypes[in.Type].choice {
		options = ""
	}
	return CategoryField{
		CategoryID:      categoryID,
		Name:            strings.TrimSpace(in.Name),
		Label:           label,
		Type:            in.Type,
		Options:         options,
		IsRequired:      in.IsRequired,
		Order:           in.Order,
		ValidationRules: in.ValidationRules,
		DefaultValue:    in.DefaultValue,
		HelpText:        in.HelpText,
	}
}

// checkParent rejects missing parents and parents inside the category's own subtree
func checkParent(tx *gorm.DB, id uint, parentID *uint) error {
	if parentID == nil {
		return nil
	}
	if id != 0 && *parentID == id {
		return apperror.FieldError("parent_id", "A category cannot be its own parent.")
	}

	ids, err := lineage(tx, *parentID)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return apperror.FieldError("parent_id", "The selected parent id is invalid.")
		}
		return err
	}
	if id == 0 {
		return nil
	}
	for _, ancestor := range ids {
		if ancestor == id {
			return apperror.FieldError("parent_id", "A category cannot be moved under its own subcategory.")
		}
	}
	return nil
}

// syncFields upserts one CategoryField per submitted form field by name and
// removes rows whose names were not submitted
func syncFields(tx *gorm.DB, categoryID uint, formFields []FormField) error {
	var existing []CategoryField
	if err := tx.Where("category_id = ?", categoryID).Find(&existing).Error; err != nil {
		return fmt.Errorf("failed to load category fields: %w", err)
	}
	byName := make(map[string]CategoryField, len(existing))
	for _, f := range existing {
		byName[f.Name] = f
	}

	keep := make([]string, 0, len(formFields))
	for i, ff := range formFields {
		keep = append(keep, ff.Name)

		field, ok := byName[ff.Name]
		if !ok {
			field = CategoryField{CategoryID: categoryID, Name: ff.Name}
		}
		field.Label = ff.Label
		field.Type = ff.Type
		field.Options = ff.Options
		field.IsRequired = ff.Required
		field.Order = i

		if err := tx.Save(&field).Error; err != nil {
			return fmt.Errorf("failed to save field %s: %w", ff.Name, err)
		}
	}

	query := tx.Where("category_id = ?", categoryID)
	if len(keep) > 0 {
		query = query.Where("name NOT IN ?", keep)
	}
	if err := query.Delete(&CategoryField{}).Error; err != nil {
		return fmt.Errorf("failed to remove stale fields: %w", err)
	}
	return nil
}

// refreshFormFields rewrites the form_fields column from the field rows
func refreshFormFields(tx *gorm.DB, categoryID uint) error {
	var rows []CategoryField
	if err := tx.Where("category_id = ?", categoryID).Order(`"order" ASC, id ASC`).Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to load category fields: %w", err)
	}
	formFields := make([]FormField, 0, len(rows))
	for _, f := range rows {
		formFields = append(formFields, FormField{
			Name:     f.Name,
			Label:    f.Label,
			Type:     f.Type,
			Required: f.IsRequired,
			Options:  f.Options,
		})
	}
	return tx.Model(&Category{}).Where("id = ?", categoryID).
		Update("form_fields", datatypes.JSONSlice[FormField](formFields)).Error
}

// writeError passes app errors through and hides everything else behind a generic message
func (s *CategoryService) writeError(op string, id uint, err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	s.log.WithError(err).WithFields(logrus.Fields{"operation": op, "category_id": id}).Error("category write failed")
	return apperror.Internal(fmt.Sprintf("Failed to %s category. Please try again.", op), err)
}
