// internal/domain/product/service.go
package product

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/catalog-backend/internal/config"
	"github.com/your-org/catalog-backend/internal/domain/upload"
	"github.com/your-org/catalog-backend/internal/infrastructure/cache"
	"github.com/your-org/catalog-backend/internal/pkg/apperror"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errProductNotFound = apperror.NotFound("Product not found.")

// Service handles product business logic
type Service struct {
	db         *gorm.DB
	categories *CategoryService
	brands     *BrandService
	uploads    *upload.Service
	cache      *cache.Catalog
	config     *config.Config
	log        *logrus.Logger
}

// NewService creates a new product service
func NewService(db *gorm.DB, categories *CategoryService, brands *BrandService, uploads *upload.Service, catalogCache *cache.Catalog, cfg *config.Config, log *logrus.Logger) *Service {
	return &Service{
		db:         db,
		categories: categories,
		brands:     brands,
		uploads:    uploads,
		cache:      catalogCache,
		config:     cfg,
		log:        log,
	}
}

// ProductRequest represents product create and update data.
// Fields holds values for the category's dynamic fields; Attributes holds
// free-form attributes as a list of records or a name => value object.
type ProductRequest struct {
	Name             string                 `json:"name" validate:"required,max=255"`
	Slug             string                 `json:"slug" validate:"max=255"`
	Description      string                 `json:"description"`
	ShortDescription string                 `json:"short_description"`
	Price            decimal.NullDecimal    `json:"price" validate:"-"`
	SalePrice        decimal.NullDecimal    `json:"sale_price" validate:"-"`
	SKU              string                 `json:"sku" validate:"max=100"`
	StockQuantity    int                    `json:"stock_quantity" validate:"gte=0"`
	ManageStock      bool                   `json:"manage_stock"`
	StockStatus      string                 `json:"stock_status" validate:"omitempty,oneof=in_stock out_of_stock on_backorder"`
	Condition        string                 `json:"condition" validate:"required,oneof=new used refurbished"`
	Status           string                 `json:"status" validate:"omitempty,oneof=active inactive draft"`
	IsFeatured       bool                   `json:"is_featured"`
	Order            int                    `json:"order"`
	MetaTitle        string                 `json:"meta_title" validate:"max=255"`
	MetaDescription  string                 `json:"meta_description" validate:"max=500"`
	MetaKeywords     string                 `json:"meta_keywords" validate:"max=255"`
	CategoryID       uint                   `json:"category_id" validate:"required"`
	BrandID          *uint                  `json:"brand_id"`
	Fields           map[string]interface{} `json:"fields" validate:"-"`
	Attributes       interface{}            `json:"attributes" validate:"-"`
}

// AdminFilter narrows the admin product list
type AdminFilter struct {
	Search     string `form:"search"`
	Status     string `form:"status"`
	CategoryID uint   `form:"category_id"`
	BrandID    uint   `form:"brand_id"`
	Page       int    `form:"page"`
}

// ProductPage is one page of products
type ProductPage struct {
	Products   []Product      `json:"data"`
	Pagination Pagination     `json:"meta"`
	Filters    *FilterOptions `json:"filters,omitempty"`
}

// Ref is the compact form of a category or brand
type Ref struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Option is a value with its display label
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FilterOptions feeds client-side filter widgets
type FilterOptions struct {
	Categories  []Ref    `json:"categories"`
	Brands      []Ref    `json:"brands"`
	Conditions  []Option `json:"conditions"`
	SortOptions []Option `json:"sort_options"`
}

var sortLabels = map[string]string{
	SortNewest:    "Newest",
	SortOldest:    "Oldest",
	SortPriceAsc:  "Price: Low to High",
	SortPriceDesc: "Price: High to Low",
}

// List validates the filter and returns one page of active products.
// Pages are cached until the next catalog write.
func (s *Service) List(ctx context.Context, req FilterRequest) (*ProductPage, error) {
	f, errs := ParseFilter(req, PageLimits{
		Default: s.config.Catalog.DefaultPerPage,
		Max:     s.config.Catalog.MaxPerPage,
	})
	if f.CategoryID != nil && len(errs["category_id"]) == 0 {
		ok, err := s.categories.Exists(ctx, *f.CategoryID)
		if err != nil {
			return nil, err
		}
		if !ok {
			errs = addFieldError(errs, "category_id", "The selected category does not exist.")
		}
	}
	if f.BrandID != nil && len(errs["brand_id"]) == 0 {
		ok, err := s.brands.Exists(ctx, *f.BrandID)
		if err != nil {
			return nil, err
		}
		if !ok {
			errs = addFieldError(errs, "brand_id", "The selected brand does not exist.")
		}
	}
	if err := validationError(errs); err != nil {
		return nil, err
	}

	page, err := cache.Remember(ctx, s.cache, "products:list", f, func() (*ProductPage, error) {
		return s.queryPage(ctx, f)
	})
	if err != nil {
		return nil, err
	}

	options, err := s.FilterOptions(ctx)
	if err != nil {
		return nil, err
	}
	page.Filters = options
	return page, nil
}

func (s *Service) queryPage(ctx context.Context, f Filter) (*ProductPage, error) {
	query := f.Apply(s.db.WithContext(ctx).Model(&Product{}))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	var products []Product
	if err := query.
		Preload("Category").
		Preload("Brand").
		Preload("Media", orderedMedia).
		Order(f.OrderClause()).
		Offset(f.Offset()).
		Limit(f.PerPage).
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	return &ProductPage{
		Products:   products,
		Pagination: NewPagination(total, f.PerPage, f.Page),
	}, nil
}

// FilterOptions returns the active categories and brands plus the fixed option lists
func (s *Service) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	categories, err := s.categories.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	brands, err := s.brands.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	options := &FilterOptions{
		Categories:  make([]Ref, 0, len(categories)),
		Brands:      make([]Ref, 0, len(brands)),
		Conditions:  labelled(Conditions),
		SortOptions: make([]Option, 0, len(SortOptions)),
	}
	for _, c := range categories {
		options.Categories = append(options.Categories, Ref{ID: c.ID, Name: c.Name, Slug: c.Slug})
	}
	for _, b := range brands {
		options.Brands = append(options.Brands, Ref{ID: b.ID, Name: b.Name, Slug: b.Slug})
	}
	for _, v := range SortOptions {
		options.SortOptions = append(options.SortOptions, Option{Value: v, Label: sortLabels[v]})
	}
	return options, nil
}

func labelled(values []string) []Option {
	out := make([]Option, 0, len(values))
	for _, v := range values {
		out = append(out, Option{Value: v, Label: DefaultLabel(v)})
	}
	return out
}

// FormOptions lists the choices admin product and category forms need
func (s *Service) FormOptions() map[string]interface{} {
	return map[string]interface{}{
		"conditions":      labelled(Conditions),
		"stock_statuses":  labelled(StockStatuses),
		"statuses":        labelled(Statuses),
		"attribute_types": labelled(AttributeTypes()),
		"field_types":     labelled(FieldTypes()),
	}
}

// GetBySlug returns an active product with its details and up to RelatedLimit
// random active products of the same category
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Product, []Product, error) {
	var product Product
	err := s.db.WithContext(ctx).
		Scopes(ActiveScope).
		Preload("Category").
		Preload("Brand").
		Preload("Details", orderedDetails).
		Preload("Media", orderedMedia).
		Where("products.slug = ?", slug).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errProductNotFound
		}
		return nil, nil, fmt.Errorf("failed to retrieve product: %w", err)
	}

	var related []Product
	if err := s.db.WithContext(ctx).
		Scopes(ActiveScope).
		Preload("Category").
		Preload("Brand").
		Preload("Media", orderedMedia).
		Where("products.category_id = ? AND products.id <> ?", product.CategoryID, product.ID).
		Order("RANDOM()").
		Limit(s.config.Catalog.RelatedLimit).
		Find(&related).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to retrieve related products: %w", err)
	}

	return &product, related, nil
}

// Featured returns up to FeaturedLimit random active featured products
func (s *Service) Featured(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := s.db.WithContext(ctx).
		Scopes(ActiveScope).
		Preload("Category").
		Preload("Brand").
		Preload("Media", orderedMedia).
		Where("products.is_featured = ?", true).
		Order("RANDOM()").
		Limit(s.config.Catalog.FeaturedLimit).
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve featured products: %w", err)
	}
	return products, nil
}

// Get returns a live product of any status, for admin screens and the wishlist
func (s *Service) Get(ctx context.Context, id uint) (*Product, error) {
	var product Product
	err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Brand").
		Preload("Details", orderedDetails).
		Preload("Media", orderedMedia).
		First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errProductNotFound
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &product, nil
}

// AdminList returns a page of products of any status with detail counts
func (s *Service) AdminList(ctx context.Context, f AdminFilter) (*ProductPage, error) {
	query := s.db.WithContext(ctx).Model(&Product{})

	if search := strings.TrimSpace(f.Search); search != "" {
		term := "%" + escapeLike(search) + "%"
		query = query.Where("products.name ILIKE ? OR products.sku ILIKE ?", term, term)
	}
	if f.Status != "" {
		query = query.Where("products.status = ?", f.Status)
	}
	if f.CategoryID != 0 {
		query = query.Where("products.category_id = ?", f.CategoryID)
	}
	if f.BrandID != 0 {
		query = query.Where("products.brand_id = ?", f.BrandID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	pagination := NewPagination(total, s.config.Catalog.AdminPerPage, f.Page)

	var products []Product
	if err := query.
		Select("products.*, (SELECT COUNT(*) FROM product_details WHERE product_details.product_id = products.id) AS details_count").
		Preload("Category").
		Preload("Brand").
		Preload("Media", orderedMedia).
		Order("products.created_at DESC, products.id DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	return &ProductPage{Products: products, Pagination: pagination}, nil
}

// Create validates the request, then writes the product, its images and its
// dynamic attributes in one transaction. Stored files are removed when it fails.
func (s *Service) Create(ctx context.Context, req *ProductRequest, images []*multipart.FileHeader) (*Product, error) {
	inputs, err := s.validateRequest(ctx, req, images, 0)
	if err != nil {
		return nil, err
	}

	product := Product{
		Name:             strings.TrimSpace(req.Name),
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		Price:            req.Price.Decimal,
		SalePrice:        req.SalePrice,
		SKU:              optionalString(req.SKU),
		StockQuantity:    req.StockQuantity,
		ManageStock:      req.ManageStock,
		StockStatus:      defaultString(req.StockStatus, StockInStock),
		Condition:        req.Condition,
		Status:           defaultString(req.Status, StatusDraft),
		IsFeatured:       req.IsFeatured,
		Order:            req.Order,
		MetaTitle:        req.MetaTitle,
		MetaDescription:  req.MetaDescription,
		MetaKeywords:     req.MetaKeywords,
		CategoryID:       req.CategoryID,
		BrandID:          req.BrandID,
	}

	var stored []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slug, err := resolveSlug(tx, &Product{}, req.Slug, product.Name, 0)
		if err != nil {
			return err
		}
		product.Slug = slug

		if err := tx.Omit(clause.Associations).Create(&product).Error; err != nil {
			if apperror.IsUniqueViolation(err) {
				return apperror.FieldError("sku", "The sku has already been taken.")
			}
			if apperror.IsDataViolation(err) {
				return apperror.Validation("The given data was invalid.", nil)
			}
			return fmt.Errorf("failed to create product: %w", err)
		}

		paths, err := s.storeImages(ctx, tx, product.ID, images, 0)
		stored = append(stored, paths...)
		if err != nil {
			return err
		}

		return saveDynamicFields(tx, product.ID, inputs)
	})
	if err != nil {
		s.uploads.Discard(ctx, stored...)
		return nil, s.writeError("create", 0, err)
	}

	s.cache.Invalidate(ctx)
	s.log.WithFields(logrus.Fields{"product_id": product.ID, "slug": product.Slug}).Info("product created")
	return s.Get(ctx, product.ID)
}

// Update replaces a product's attributes, appends new images and upserts its
// dynamic attributes in one transaction
func (s *Service) Update(ctx context.Context, id uint, req *ProductRequest, images []*multipart.FileHeader) (*Product, error) {
	inputs, err := s.validateRequest(ctx, req, images, id)
	if err != nil {
		return nil, err
	}

	var stored []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product Product
		if err := tx.First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errProductNotFound
			}
			return fmt.Errorf("failed to find product: %w", err)
		}

		name := strings.TrimSpace(req.Name)
		slug := product.Slug
		if req.Slug != "" || product.Name != name {
			var err error
			if slug, err = resolveSlug(tx, &Product{}, req.Slug, name, id); err != nil {
				return err
			}
		}

		status := defaultString(req.Status, product.Status)
		updates := map[string]interface{}{
			"name":              name,
			"slug":              slug,
			"description":       req.Description,
			"short_description": req.ShortDescription,
			"price":             req.Price.Decimal,
			"sale_price":        req.SalePrice,
			"sku":               optionalString(req.SKU),
			"stock_quantity":    req.StockQuantity,
			"manage_stock":      req.ManageStock,
			"stock_status":      defaultString(req.StockStatus, product.StockStatus),
			"condition":         req.Condition,
			"status":            status,
			"is_featured":       req.IsFeatured,
			"order":             req.Order,
			"meta_title":        req.MetaTitle,
			"meta_description":  req.MetaDescription,
			"meta_keywords":     req.MetaKeywords,
			"category_id":       req.CategoryID,
			"brand_id":          req.BrandID,
		}
		if status == StatusActive && product.PublishedAt == nil {
			updates["published_at"] = time.Now()
		}

		if err := tx.Model(&product).Omit(clause.Associations).Updates(updates).Error; err != nil {
			if apperror.IsUniqueViolation(err) {
				return apperror.FieldError("sku", "The sku has already been taken.")
			}
			if apperror.IsDataViolation(err) {
				return apperror.Validation("The given data was invalid.", nil)
			}
			return fmt.Errorf("failed to update product: %w", err)
		}

		var nextOrder int
		if err := tx.Model(&Media{}).Where("product_id = ?", id).
			Select(`COALESCE(MAX("order") + 1, 0)`).Scan(&nextOrder).Error; err != nil {
			return fmt.Errorf("failed to read media order: %w", err)
		}

		paths, err := s.storeImages(ctx, tx, id, images, nextOrder)
		stored = append(stored, paths...)
		if err != nil {
			return err
		}

		return saveDynamicFields(tx, id, inputs)
	})
	if err != nil {
		s.uploads.Discard(ctx, stored...)
		return nil, s.writeError("update", id, err)
	}

	s.cache.Invalidate(ctx)
	return s.Get(ctx, id)
}

// Delete soft-deletes a product and removes its media, details and wishlist
// entries. Stored files are deleted after commit.
func (s *Service) Delete(ctx context.Context, id uint) error {
	var media []Media
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product Product
		if err := tx.First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errProductNotFound
			}
			return fmt.Errorf("failed to find product: %w", err)
		}

		if err := tx.Where("product_id = ?", id).Find(&media).Error; err != nil {
			return fmt.Errorf("failed to load media: %w", err)
		}
		if err := tx.Where("product_id = ?", id).Delete(&Media{}).Error; err != nil {
			return fmt.Errorf("failed to delete media: %w", err)
		}
		if err := tx.Where("product_id = ?", id).Delete(&ProductDetail{}).Error; err != nil {
			return fmt.Errorf("failed to delete details: %w", err)
		}
		if err := tx.Exec("DELETE FROM wishlists WHERE product_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete wishlist entries: %w", err)
		}
		if err := tx.Delete(&product).Error; err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return nil
	})
	if err != nil {
		return s.writeError("delete", id, err)
	}

	for i := range media {
		s.uploads.Discard(ctx, media[i].Paths()...)
	}
	s.cache.Invalidate(ctx)
	s.log.WithField("product_id", id).Info("product deleted")
	return nil
}

// DeleteMedia removes one image of a product and its files
func (s *Service) DeleteMedia(ctx context.Context, productID, mediaID uint) error {
	var media Media
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).First(&media, mediaID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("Media not found.")
			}
			return fmt.Errorf("failed to find media: %w", err)
		}
		if err := tx.Delete(&media).Error; err != nil {
			return fmt.Errorf("failed to delete media: %w", err)
		}
		return nil
	})
	if err != nil {
		return s.writeError("delete image of", productID, err)
	}

	s.uploads.Discard(ctx, media.Paths()...)
	s.cache.Invalidate(ctx)
	return nil
}

// SaveDynamicFields upserts attribute rows for a product outside a larger write
func (s *Service) SaveDynamicFields(ctx context.Context, productID uint, raw interface{}) error {
	inputs, err := ParseAttributeInputs(raw)
	if err != nil {
		return apperror.FieldError("attributes", "The attributes field is invalid: "+err.Error()+".")
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&Product{}, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errProductNotFound
			}
			return err
		}
		return saveDynamicFields(tx, productID, inputs)
	})
	if err != nil {
		return s.writeError("save attributes of", productID, err)
	}
	s.cache.Invalidate(ctx)
	return nil
}

// validateRequest runs every check before anything is written and returns the
// attribute rows to persist: category field values first, then free attributes.
func (s *Service) validateRequest(ctx context.Context, req *ProductRequest, images []*multipart.FileHeader, id uint) ([]AttributeInput, error) {
	errs := validateStruct(req)
	db := s.db.WithContext(ctx)

	priceOK := false
	switch msg := CheckPrice("price", req.Price.Decimal); {
	case !req.Price.Valid:
		errs = addFieldError(errs, "price", "The price field is required.")
	case msg != "":
		errs = addFieldError(errs, "price", msg)
	case req.Price.Decimal.IsNegative():
		errs = addFieldError(errs, "price", "The price field must be at least 0.")
	default:
		priceOK = true
	}
	if req.SalePrice.Valid {
		switch msg := CheckPrice("sale price", req.SalePrice.Decimal); {
		case msg != "":
			errs = addFieldError(errs, "sale_price", msg)
		case req.SalePrice.Decimal.IsNegative():
			errs = addFieldError(errs, "sale_price", "The sale price field must be at least 0.")
		case priceOK && !req.SalePrice.Decimal.LessThan(req.Price.Decimal):
			errs = addFieldError(errs, "sale_price", "The sale price field must be less than price.")
		}
	}

	if sku := strings.TrimSpace(req.SKU); sku != "" {
		var count int64
		query := db.Model(&Product{}).Where("sku = ?", sku)
		if id != 0 {
			query = query.Where("id <> ?", id)
		}
		if err := query.Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check sku: %w", err)
		}
		if count > 0 {
			errs = addFieldError(errs, "sku", "The sku has already been taken.")
		}
	}

	var fields []CategoryField
	if req.CategoryID != 0 {
		ok, err := s.categories.Exists(ctx, req.CategoryID)
		if err != nil {
			return nil, err
		}
		if !ok {
			errs = addFieldError(errs, "category_id", "The selected category id is invalid.")
		} else {
			if fields, err = allFields(db, req.CategoryID); err != nil {
				return nil, err
			}
			errs = apperror.Merge(errs, ValidateFieldValues(fields, req.Fields))
		}
	}
	if req.BrandID != nil {
		ok, err := s.brands.Exists(ctx, *req.BrandID)
		if err != nil {
			return nil, err
		}
		if !ok {
			errs = addFieldError(errs, "brand_id", "The selected brand id is invalid.")
		}
	}

	attributes, err := ParseAttributeInputs(req.Attributes)
	if err != nil {
		errs = addFieldError(errs, "attributes", "The attributes field is invalid: "+err.Error()+".")
	}

	for i, fh := range images {
		if err := s.uploads.Validate(fmt.Sprintf("images.%d", i), fh); err != nil {
			var appErr *apperror.Error
			if !errors.As(err, &appErr) {
				return nil, err
			}
			errs = apperror.Merge(errs, appErr.Fields)
		}
	}

	if err := validationError(errs); err != nil {
		return nil, err
	}

	inputs := fieldInputs(fields, req.Fields, id == 0)
	return append(inputs, attributes...), nil
}

// fieldInputs turns submitted category field values into attribute rows.
// On create, fields left out fall back to their default value.
func fieldInputs(fields []CategoryField, values map[string]interface{}, applyDefaults bool) []AttributeInput {
	inputs := make([]AttributeInput, 0, len(fields))
	for i := range fields {
		f := &fields[i]
		v, ok := values[f.Name]
		if !ok {
			if !applyDefaults || f.DefaultValue == "" {
				continue
			}
			v = f.DefaultValue
		}
		inputs = append(inputs, AttributeInput{
			Name:  f.Name,
			Value: v,
			Type:  f.AttributeType(),
			Order: f.Order,
		})
	}
	return inputs
}

// saveDynamicFields upserts one ProductDetail per input, by id when given and
// by (product, attribute name) otherwise. Empty values remove the attribute.
func saveDynamicFields(tx *gorm.DB, productID uint, inputs []AttributeInput) error {
	for _, in := range inputs {
		value, err := StringifyAttribute(in.Type, in.Value)
		if err != nil {
			return apperror.FieldError("attributes", fmt.Sprintf("The %s attribute could not be stored.", in.Name))
		}
		name := strings.TrimSpace(in.Name)

		if value == "" {
			if err := tx.Where("product_id = ? AND attribute_name = ?", productID, name).
				Delete(&ProductDetail{}).Error; err != nil {
				return fmt.Errorf("failed to remove attribute %s: %w", name, err)
			}
			continue
		}

		if in.ID != nil {
			result := tx.Model(&ProductDetail{}).
				Where("id = ? AND product_id = ?", *in.ID, productID).
				Updates(map[string]interface{}{
					"attribute_name":  name,
					"attribute_value": value,
					"attribute_type":  in.Type,
					"order":           in.Order,
				})
			if result.Error != nil {
				if apperror.IsUniqueViolation(result.Error) {
					return apperror.FieldError("attributes", fmt.Sprintf("The %s attribute is defined twice.", name))
				}
				return fmt.Errorf("failed to update attribute %s: %w", name, result.Error)
			}
			if result.RowsAffected > 0 {
				continue
			}
		}

		detail := ProductDetail{
			ProductID:      productID,
			AttributeName:  name,
			AttributeValue: value,
			AttributeType:  in.Type,
			Order:          in.Order,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "attribute_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"attribute_value", "attribute_type", "order", "updated_at"}),
		}).Create(&detail).Error; err != nil {
			return fmt.Errorf("failed to save attribute %s: %w", name, err)
		}
	}
	return nil
}

// storeImages stores each upload with its conversions and records a Media row.
// The returned paths include files stored before a failure.
func (s *Service) storeImages(ctx context.Context, tx *gorm.DB, productID uint, images []*multipart.FileHeader, order int) ([]string, error) {
	var paths []string
	dir := fmt.Sprintf("products/%d", productID)

	for i, fh := range images {
		img, err := s.uploads.StoreImage(ctx, fmt.Sprintf("images.%d", i), fh, dir)
		if err != nil {
			return paths, err
		}
		paths = append(paths, img.Paths()...)

		media := Media{
			ProductID:   productID,
			Collection:  "images",
			Name:        img.Name,
			FileName:    img.FileName,
			MimeType:    img.MimeType,
			Size:        img.Size,
			Path:        img.Path,
			ThumbPath:   img.ThumbPath,
			PreviewPath: img.PreviewPath,
			Order:       order + i,
		}
		if err := tx.Create(&media).Error; err != nil {
			return paths, fmt.Errorf("failed to record image: %w", err)
		}
	}
	return paths, nil
}

func (s *Service) writeError(op string, id uint, err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		if appErr.Kind == apperror.KindInternal {
			s.log.WithError(appErr.Err).WithFields(logrus.Fields{"operation": op, "product_id": id}).Error("product write failed")
		}
		return appErr
	}
	s.log.WithError(err).WithFields(logrus.Fields{"operation": op, "product_id": id}).Error("product write failed")
	return apperror.Internal(fmt.Sprintf("Failed to %s product. Please try again.", op), err)
}

func orderedMedia(db *gorm.DB) *gorm.DB {
	return db.Order(`"order" ASC, id ASC`)
}

func orderedDetails(db *gorm.DB) *gorm.DB {
	return db.Order(`"order" ASC, id ASC`)
}

func optionalString(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
