// internal/domain/product/entity.go
package product

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Product statuses. Only StatusActive is publicly visible.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusDraft    = "draft"
)

const (
	ConditionNew         = "new"
	ConditionUsed        = "used"
	ConditionRefurbished = "refurbished"
)

const (
	StockInStock    = "in_stock"
	StockOutOfStock = "out_of_stock"
	StockBackorder  = "on_backorder"
)

var (
	Statuses      = []string{StatusActive, StatusInactive, StatusDraft}
	Conditions    = []string{ConditionNew, ConditionUsed, ConditionRefurbished}
	StockStatuses = []string{StockInStock, StockOutOfStock, StockBackorder}
)

// Product represents the product entity
type Product struct {
	ID               uint                `gorm:"primaryKey" json:"id"`
	Name             string              `gorm:"not null;size:255" json:"name"`
	Slug             string              `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description      string              `gorm:"type:text" json:"description"`
	ShortDescription string              `gorm:"type:text" json:"short_description"`
	Price            decimal.Decimal     `gorm:"type:numeric(10,2);not null" json:"price"`
	SalePrice        decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"sale_price"`
	SKU              *string             `gorm:"size:100" json:"sku"` // unique among live rows, see migrations
	StockQuantity    int                 `gorm:"default:0" json:"stock_quantity"`
	ManageStock      bool                `gorm:"default:false" json:"manage_stock"`
	StockStatus      string              `gorm:"size:20;default:in_stock" json:"stock_status"`
	Condition        string              `gorm:"size:20;default:new;index" json:"condition"`
	Status           string              `gorm:"size:20;default:draft;index" json:"status"`
	IsFeatured       bool                `gorm:"default:false" json:"is_featured"`
	Order            int                 `gorm:"default:0" json:"order"`
	MetaTitle        string              `gorm:"size:255" json:"meta_title"`
	MetaDescription  string              `gorm:"size:500" json:"meta_description"`
	MetaKeywords     string              `gorm:"size:255" json:"meta_keywords"`
	CategoryID       uint                `gorm:"not null;index" json:"category_id"`
	BrandID          *uint               `gorm:"index" json:"brand_id"`
	PublishedAt      *time.Time          `json:"published_at"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	DeletedAt        gorm.DeletedAt      `gorm:"index" json:"-"`

	// Populated only by queries that select it
	DetailsCount int64 `gorm:"->;-:migration" json:"details_count,omitempty"`

	// Relationships
	Category Category        `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category"`
	Brand    *Brand          `gorm:"foreignKey:BrandID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"brand,omitempty"`
	Details  []ProductDetail `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"details,omitempty"`
	Media    []Media         `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"media,omitempty"`
}

// FormField is one entry of the form_fields JSON kept on a category
type FormField struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Options  string `json:"options,omitempty"`
}

// Category represents product categories
type Category struct {
	ID              uint                           `gorm:"primaryKey" json:"id"`
	Name            string                         `gorm:"not null;size:255" json:"name"`
	Slug            string                         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	ParentID        *uint                          `gorm:"index" json:"parent_id"`
	IsActive        bool                           `gorm:"not null" json:"is_active"`
	Order           int                            `gorm:"default:0" json:"order"`
	Description     string                         `gorm:"type:text" json:"description"`
	MetaTitle       string                         `gorm:"size:255" json:"meta_title"`
	MetaDescription string                         `gorm:"size:500" json:"meta_description"`
	FormFields      datatypes.JSONSlice[FormField] `json:"form_fields"`
	CreatedAt       time.Time                      `json:"created_at"`
	UpdatedAt       time.Time                      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt                 `gorm:"index" json:"-"`

	ProductsCount int64 `gorm:"->;-:migration" json:"products_count,omitempty"`

	// Relationships
	Parent   *Category       `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []Category      `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	Fields   []CategoryField `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"fields,omitempty"`
}

// CategoryField is an admin-defined attribute applied to products of a category and its descendants
type CategoryField struct {
	ID              uint                        `gorm:"primaryKey" json:"id"`
	CategoryID      uint                        `gorm:"not null;index" json:"category_id"`
	Name            string                      `gorm:"not null;size:255" json:"name"`
	Label           string                      `gorm:"size:255" json:"label"`
	Type            string                      `gorm:"not null;size:50;default:text" json:"type"`
	Options         string                      `gorm:"type:text" json:"options"`
	IsRequired      bool                        `gorm:"default:false" json:"is_required"`
	Order           int                         `gorm:"default:0" json:"order"`
	ValidationRules datatypes.JSONSlice[string] `json:"validation_rules"`
	DefaultValue    string                      `gorm:"type:text" json:"default_value"`
	HelpText        string                      `gorm:"type:text" json:"help_text"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

// Brand represents product brands
type Brand struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Name            string         `gorm:"not null;size:255" json:"name"` // unique among live rows, see migrations
	Slug            string         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description     string         `gorm:"type:text" json:"description"`
	Logo            string         `gorm:"size:500" json:"logo"`
	Website         string         `gorm:"size:255" json:"website"`
	IsActive        bool           `gorm:"not null" json:"is_active"`
	IsFeatured      bool           `gorm:"default:false" json:"is_featured"`
	Order           int            `gorm:"default:0" json:"order"`
	MetaTitle       string         `gorm:"size:255" json:"meta_title"`
	MetaDescription string         `gorm:"size:500" json:"meta_description"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	ProductsCount int64 `gorm:"->;-:migration" json:"products_count,omitempty"`
	LogoURL       string `gorm:"-" json:"logo_url,omitempty"`
}

// ProductDetail is one dynamic attribute value of a product
type ProductDetail struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ProductID      uint      `gorm:"not null;index" json:"product_id"`
	AttributeName  string    `gorm:"not null;size:255" json:"attribute_name"`
	AttributeValue string    `gorm:"type:text" json:"attribute_value"`
	AttributeType  string    `gorm:"not null;size:50;default:text" json:"attribute_type"`
	Order          int       `gorm:"default:0" json:"order"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Media is a stored product image with its derived conversions
type Media struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProductID   uint      `gorm:"not null;index" json:"product_id"`
	Collection  string    `gorm:"size:100;default:images" json:"collection"`
	Name        string    `gorm:"size:255" json:"name"`
	FileName    string    `gorm:"size:255" json:"file_name"`
	MimeType    string    `gorm:"size:100" json:"mime_type"`
	Size        int64     `json:"size"`
	Path        string    `gorm:"not null;size:500" json:"path"`
	ThumbPath   string    `gorm:"size:500" json:"thumb_path"`
	PreviewPath string    `gorm:"size:500" json:"preview_path"`
	Order       int       `gorm:"default:0" json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName overrides
func (Product) TableName() string       { return "products" }
func (Category) TableName() string      { return "categories" }
func (CategoryField) TableName() string { return "category_fields" }
func (Brand) TableName() string         { return "brands" }
func (ProductDetail) TableName() string { return "product_details" }
func (Media) TableName() string         { return "media" }

// BeforeSave stamps published_at the first time a product is saved as active
func (p *Product) BeforeSave(tx *gorm.DB) error {
	if p.Status == StatusActive && p.PublishedAt == nil {
		now := time.Now()
		p.PublishedAt = &now
	}
	return nil
}

// IsActive reports whether the product is publicly visible
func (p *Product) IsActive() bool {
	return p.Status == StatusActive
}

// IsInStock reports stock availability. Unmanaged stock falls back to the stock status.
func (p *Product) IsInStock() bool {
	if p.ManageStock {
		return p.StockQuantity > 0
	}
	return p.StockStatus != StockOutOfStock
}

// Paths returns every stored file of the media item
func (m *Media) Paths() []string {
	paths := make([]string, 0, 3)
	for _, p := range []string{m.Path, m.ThumbPath, m.PreviewPath} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// Conversion returns the stored path of a named conversion, the original when it is missing
func (m *Media) Conversion(name string) string {
	switch name {
	case "thumb":
		if m.ThumbPath != "" {
			return m.ThumbPath
		}
	case "preview":
		if m.PreviewPath != "" {
			return m.PreviewPath
		}
	}
	return m.Path
}
