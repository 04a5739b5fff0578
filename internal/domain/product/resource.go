// internal/domain/product/resource.go
package product

import "time"

// URLFunc turns a stored path into a public URL
type URLFunc func(path string) string

// Resource is the public JSON form of a product
type Resource struct {
	ID                 uint            `json:"id"`
	Name               string          `json:"name"`
	Slug               string          `json:"slug"`
	Description        string          `json:"description"`
	ShortDescription   string          `json:"short_description"`
	Price              float64         `json:"price"`
	SalePrice          *float64        `json:"sale_price"`
	EffectivePrice     float64         `json:"effective_price"`
	IsOnSale           bool            `json:"is_on_sale"`
	DiscountPercentage *float64        `json:"discount_percentage"`
	SKU                *string         `json:"sku"`
	StockQuantity      *int            `json:"stock_quantity,omitempty"`
	ManageStock        bool            `json:"manage_stock"`
	StockStatus        string          `json:"stock_status"`
	InStock            bool            `json:"in_stock"`
	Condition          string          `json:"condition"`
	Status             string          `json:"status"`
	IsFeatured         bool            `json:"is_featured"`
	MetaTitle          string          `json:"meta_title,omitempty"`
	MetaDescription    string          `json:"meta_description,omitempty"`
	MetaKeywords       string          `json:"meta_keywords,omitempty"`
	Category           *Ref            `json:"category"`
	Brand              *Ref            `json:"brand"`
	Details            []DetailView    `json:"details"`
	Media              []MediaView     `json:"media"`
	PrimaryImage       *string         `json:"primary_image"`
	DetailsCount       *int64          `json:"details_count,omitempty"`
	InWishlist         *bool           `json:"in_wishlist,omitempty"`
	PublishedAt        *time.Time      `json:"published_at"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// DetailView is one attribute with its value cast to its type
type DetailView struct {
	ID    uint        `json:"id"`
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
	Type  string      `json:"type"`
	Order int         `json:"order"`
}

// MediaView is one image with the URLs of its conversions
type MediaView struct {
	ID      uint   `json:"id"`
	URL     string `json:"url"`
	Thumb   string `json:"thumb"`
	Preview string `json:"preview"`
	Order   int    `json:"order"`
}

// Summary is the compact product form embedded in wishlist entries
type Summary struct {
	ID             uint    `json:"id"`
	Name           string  `json:"name"`
	Slug           string  `json:"slug"`
	Price          float64 `json:"price"`
	FormattedPrice string  `json:"formatted_price"`
	PrimaryImage   *string `json:"primary_image"`
	InStock        bool    `json:"in_stock"`
	Status         string  `json:"status"`
}

// NewResource builds the JSON form of p. Associations that were not loaded are left empty.
func NewResource(p *Product, url URLFunc) Resource {
	r := Resource{
		ID:               p.ID,
		Name:             p.Name,
		Slug:             p.Slug,
		Description:      p.Description,
		ShortDescription: p.ShortDescription,
		Price:            p.Price.InexactFloat64(),
		EffectivePrice:   p.EffectivePrice().InexactFloat64(),
		IsOnSale:         p.IsOnSale(),
		SKU:              p.SKU,
		ManageStock:      p.ManageStock,
		StockStatus:      p.StockStatus,
		InStock:          p.IsInStock(),
		Condition:        p.Condition,
		Status:           p.Status,
		IsFeatured:       p.IsFeatured,
		MetaTitle:        p.MetaTitle,
		MetaDescription:  p.MetaDescription,
		MetaKeywords:     p.MetaKeywords,
		Details:          make([]DetailView, 0, len(p.Details)),
		Media:            make([]MediaView, 0, len(p.Media)),
		PrimaryImage:     primaryImage(p, url),
		PublishedAt:      p.PublishedAt,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}

	if p.SalePrice.Valid {
		v := p.SalePrice.Decimal.InexactFloat64()
		r.SalePrice = &v
	}
	if pct, ok := p.DiscountPercentage(); ok {
		v := pct.InexactFloat64()
		r.DiscountPercentage = &v
	}
	if p.ManageStock {
		qty := p.StockQuantity
		r.StockQuantity = &qty
	}
	if p.Category.ID != 0 {
		r.Category = &Ref{ID: p.Category.ID, Name: p.Category.Name, Slug: p.Category.Slug}
	}
	if p.Brand != nil {
		r.Brand = &Ref{ID: p.Brand.ID, Name: p.Brand.Name, Slug: p.Brand.Slug}
	}
	if p.DetailsCount > 0 {
		n := p.DetailsCount
		r.DetailsCount = &n
	}

	for i := range p.Details {
		d := &p.Details[i]
		r.Details = append(r.Details, DetailView{
			ID:    d.ID,
			Key:   d.AttributeName,
			Value: d.CastedValue(),
			Type:  d.AttributeType,
			Order: d.Order,
		})
	}
	for i := range p.Media {
		m := &p.Media[i]
		r.Media = append(r.Media, MediaView{
			ID:      m.ID,
			URL:     url(m.Path),
			Thumb:   url(m.Conversion("thumb")),
			Preview: url(m.Conversion("preview")),
			Order:   m.Order,
		})
	}
	return r
}

// NewResources maps a product list. inWishlist, when non-nil, marks the
// products the caller has saved.
func NewResources(products []Product, url URLFunc, inWishlist map[uint]bool) []Resource {
	out := make([]Resource, 0, len(products))
	for i := range products {
		r := NewResource(&products[i], url)
		if inWishlist != nil {
			saved := inWishlist[products[i].ID]
			r.InWishlist = &saved
		}
		out = append(out, r)
	}
	return out
}

// NewSummary builds the compact form of p
func NewSummary(p *Product, url URLFunc) Summary {
	return Summary{
		ID:             p.ID,
		Name:           p.Name,
		Slug:           p.Slug,
		Price:          p.EffectivePrice().InexactFloat64(),
		FormattedPrice: "$" + p.EffectivePrice().StringFixed(2),
		PrimaryImage:   primaryImage(p, url),
		InStock:        p.IsInStock(),
		Status:         p.Status,
	}
}

func primaryImage(p *Product, url URLFunc) *string {
	if len(p.Media) == 0 {
		return nil
	}
	u := url(p.Media[0].Conversion("preview"))
	return &u
}

// IDs returns the ids of products in order
func IDs(products []Product) []uint {
	ids := make([]uint, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}
	return ids
}
