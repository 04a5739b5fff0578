// internal/domain/product/filter.go
package product

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	SortNewest    = "newest"
	SortOldest    = "oldest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
)

const maxPriceInputLength = 32

var pricePattern = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)

// SortOptions lists the accepted sort_by values
var SortOptions = []string{SortNewest, SortOldest, SortPriceAsc, SortPriceDesc}

// FilterRequest is the raw query string of the product listing
type FilterRequest struct {
	CategoryID string `form:"category_id" json:"category_id"`
	BrandID    string `form:"brand_id" json:"brand_id"`
	MinPrice   string `form:"min_price" json:"min_price"`
	MaxPrice   string `form:"max_price" json:"max_price"`
	Condition  string `form:"condition" json:"condition"`
	Search     string `form:"search" json:"search"`
	SortBy     string `form:"sort_by" json:"sort_by"`
	PerPage    string `form:"per_page" json:"per_page"`
	Page       string `form:"page" json:"page"`
}

// Filter is a validated, normalized FilterRequest
type Filter struct {
	CategoryID *uint               `json:"category_id,omitempty"`
	BrandID    *uint               `json:"brand_id,omitempty"`
	MinPrice   decimal.NullDecimal `json:"min_price"`
	MaxPrice   decimal.NullDecimal `json:"max_price"`
	Condition  string              `json:"condition,omitempty"`
	Search     string              `json:"search,omitempty"`
	SortBy     string              `json:"sort_by"`
	PerPage    int                 `json:"per_page"`
	Page       int                 `json:"page"`
}

// PageLimits bounds per_page
type PageLimits struct {
	Default int
	Max     int
}

// ParseFilter validates the request and resolves defaults. Existence of the
// referenced category and brand is checked by the service.
func ParseFilter(req FilterRequest, limits PageLimits) (Filter, map[string][]string) {
	var errs map[string][]string
	f := Filter{SortBy: SortNewest, PerPage: limits.Default, Page: 1}

	if id, ok := parseID(req.CategoryID); ok {
		f.CategoryID = id
	} else {
		errs = addFieldError(errs, "category_id", "The category id field must be an integer.")
	}
	if id, ok := parseID(req.BrandID); ok {
		f.BrandID = id
	} else {
		errs = addFieldError(errs, "brand_id", "The brand id field must be an integer.")
	}

	var minOK, maxOK bool
	var msg string
	f.MinPrice, msg = parsePrice("min price", req.MinPrice)
	if minOK = msg == ""; !minOK {
		errs = addFieldError(errs, "min_price", msg)
	} else if f.MinPrice.Valid && f.MinPrice.Decimal.IsNegative() {
		errs = addFieldError(errs, "min_price", "Minimum price must be a positive number.")
	}

	f.MaxPrice, msg = parsePrice("max price", req.MaxPrice)
	if maxOK = msg == ""; !maxOK {
		errs = addFieldError(errs, "max_price", msg)
	} else if f.MaxPrice.Valid && f.MaxPrice.Decimal.IsNegative() {
		errs = addFieldError(errs, "max_price", "Maximum price must be a positive number.")
	} else if minOK && f.MinPrice.Valid && f.MaxPrice.Valid && !f.MaxPrice.Decimal.GreaterThan(f.MinPrice.Decimal) {
		errs = addFieldError(errs, "max_price", "Maximum price must be greater than minimum price.")
	}

	if c := strings.TrimSpace(req.Condition); c != "" {
		if slices.Contains(Conditions, c) {
			f.Condition = c
		} else {
			errs = addFieldError(errs, "condition", "The selected condition is invalid. Must be one of: new, used, refurbished.")
		}
	}

	f.Search = strings.TrimSpace(req.Search)
	if utf8.RuneCountInString(f.Search) > 255 {
		errs = addFieldError(errs, "search", "The search field must not be greater than 255 characters.")
	}

	// unknown sort values fall back to newest
	if slices.Contains(SortOptions, req.SortBy) {
		f.SortBy = req.SortBy
	}

	if v := strings.TrimSpace(req.PerPage); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = addFieldError(errs, "per_page", "The per page field must be an integer.")
		} else {
			f.PerPage = clamp(n, 1, limits.Max)
		}
	}

	if v := strings.TrimSpace(req.Page); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = addFieldError(errs, "page", "The page field must be an integer.")
		} else if n < 1 {
			errs = addFieldError(errs, "page", "The page field must be at least 1.")
		} else {
			f.Page = n
		}
	}

	return f, errs
}

func parseID(s string) (*uint, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return nil, false
	}
	id := uint(n)
	return &id, true
}

// parsePrice accepts plain decimals only: no exponent and no more characters
// than a price column can hold, so parsing and comparison stay cheap.
func parsePrice(label, s string) (decimal.NullDecimal, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}, ""
	}
	if len(s) > maxPriceInputLength || !pricePattern.MatchString(s) {
		return decimal.NullDecimal{}, fmt.Sprintf("The %s field must be a number.", label)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Sprintf("The %s field must be a number.", label)
	}
	if msg := CheckPrice(label, d); msg != "" {
		return decimal.NullDecimal{}, msg
	}
	return decimal.NewNullDecimal(d), ""
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if hi > 0 && n > hi {
		return hi
	}
	return n
}

// ActiveScope restricts a product query to publicly visible rows
func ActiveScope(db *gorm.DB) *gorm.DB {
	return db.Where("products.status = ?", StatusActive)
}

// Apply adds the filter's constraints to a products query. Every clause is ANDed;
// the three search columns are ORed inside one group.
func (f Filter) Apply(db *gorm.DB) *gorm.DB {
	query := db.Scopes(ActiveScope)

	if f.CategoryID != nil {
		query = query.Where("products.category_id = ?", *f.CategoryID)
	}
	if f.BrandID != nil {
		query = query.Where("products.brand_id = ?", *f.BrandID)
	}
	if f.MinPrice.Valid {
		query = query.Where("products.price >= ?", f.MinPrice.Decimal)
	}
	if f.MaxPrice.Valid {
		query = query.Where("products.price <= ?", f.MaxPrice.Decimal)
	}
	if f.Condition != "" {
		query = query.Where("products.condition = ?", f.Condition)
	}
	if f.Search != "" {
		term := "%" + escapeLike(f.Search) + "%"
		query = query.Where(
			db.Session(&gorm.Session{NewDB: true}).
				Where("products.name ILIKE ?", term).
				Or("products.description ILIKE ?", term).
				Or("products.sku ILIKE ?", term),
		)
	}
	return query
}

// OrderClause returns the ORDER BY for the filter's sort, with id as tiebreaker
func (f Filter) OrderClause() string {
	switch f.SortBy {
	case SortPriceAsc:
		return "products.price ASC, products.id ASC"
	case SortPriceDesc:
		return "products.price DESC, products.id DESC"
	case SortOldest:
		return "products.created_at ASC, products.id ASC"
	default:
		return "products.created_at DESC, products.id DESC"
	}
}

// Offset of the requested page
func (f Filter) Offset() int {
	return (f.Page - 1) * f.PerPage
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
