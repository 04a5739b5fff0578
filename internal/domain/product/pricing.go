// internal/domain/product/pricing.go
package product

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of decimal places of a stored price
const PriceScale = 2

// checked before any arithmetic so oversized exponents never expand
const (
	maxPriceExponent = 10
	maxPriceDigits   = 20
)

var (
	hundred = decimal.NewFromInt(100)
	// MaxPrice is the exclusive upper bound of a numeric(10,2) column
	MaxPrice = decimal.New(1, 8)
)

// CheckPrice returns the validation message for a value the price column cannot
// hold exactly, or "" when it fits. label is the human field name ("sale price").
func CheckPrice(label string, d decimal.Decimal) string {
	if exp := d.Exponent(); exp > maxPriceExponent || exp < -maxPriceExponent || d.NumDigits() > maxPriceDigits {
		return fmt.Sprintf("The %s field must be a number.", label)
	}
	if !d.Equal(d.Round(PriceScale)) {
		return fmt.Sprintf("The %s field must not have more than %d decimal places.", label, PriceScale)
	}
	if d.Abs().GreaterThanOrEqual(MaxPrice) {
		return fmt.Sprintf("The %s field must be less than %s.", label, MaxPrice.String())
	}
	return ""
}

// EffectivePrice is the sale price when it is set and strictly lower than the list price
func EffectivePrice(price decimal.Decimal, sale decimal.NullDecimal) decimal.Decimal {
	if OnSale(price, sale) {
		return sale.Decimal
	}
	return price
}

// OnSale reports whether sale is a valid discount on price
func OnSale(price decimal.Decimal, sale decimal.NullDecimal) bool {
	return sale.Valid && sale.Decimal.LessThan(price)
}

// DiscountPercentage returns round((price-sale)/price*100, 2), or false when not on sale
func DiscountPercentage(price decimal.Decimal, sale decimal.NullDecimal) (decimal.Decimal, bool) {
	if !OnSale(price, sale) || price.IsZero() {
		return decimal.Zero, false
	}
	return price.Sub(sale.Decimal).Div(price).Mul(hundred).Round(2), true
}

func (p *Product) EffectivePrice() decimal.Decimal {
	return EffectivePrice(p.Price, p.SalePrice)
}

func (p *Product) IsOnSale() bool {
	return OnSale(p.Price, p.SalePrice)
}

func (p *Product) DiscountPercentage() (decimal.Decimal, bool) {
	return DiscountPercentage(p.Price, p.SalePrice)
}
