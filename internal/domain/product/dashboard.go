// internal/domain/product/dashboard.go
package product

import (
	"context"
	"fmt"
)

const (
	adminLatestLimit = 5
	// RecentLimit is how many new arrivals the user dashboard shows
	RecentLimit = 6
)

// LatestProduct is one row of the admin dashboard's latest products
type LatestProduct struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Status   string  `json:"status"`
	Category string  `json:"category"`
	Brand    string  `json:"brand"`
}

// AdminStats are the catalog totals of the admin dashboard
type AdminStats struct {
	TotalProducts   int64           `json:"total_products"`
	TotalCategories int64           `json:"total_categories"`
	TotalBrands     int64           `json:"total_brands"`
	LatestProducts  []LatestProduct `json:"latest_products"`
}

// AdminStats counts live products, categories and brands of any status and
// lists the newest products
func (s *Service) AdminStats(ctx context.Context) (*AdminStats, error) {
	stats := &AdminStats{}
	db := s.db.WithContext(ctx)

	if err := db.Model(&Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	if err := db.Model(&Category{}).Count(&stats.TotalCategories).Error; err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	if err := db.Model(&Brand{}).Count(&stats.TotalBrands).Error; err != nil {
		return nil, fmt.Errorf("failed to count brands: %w", err)
	}

	var latest []Product
	if err := db.
		Preload("Category").
		Preload("Brand").
		Order("created_at DESC, id DESC").
		Limit(adminLatestLimit).
		Find(&latest).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve latest products: %w", err)
	}

	stats.LatestProducts = make([]LatestProduct, 0, len(latest))
	for i := range latest {
		p := &latest[i]
		row := LatestProduct{
			ID:       p.ID,
			Name:     p.Name,
			Price:    p.Price.InexactFloat64(),
			Status:   DefaultLabel(p.Status),
			Category: "N/A",
			Brand:    "N/A",
		}
		if p.Category.ID != 0 {
			row.Category = p.Category.Name
		}
		if p.Brand != nil && p.Brand.ID != 0 {
			row.Brand = p.Brand.Name
		}
		stats.LatestProducts = append(stats.LatestProducts, row)
	}
	return stats, nil
}

// Latest returns the newest active products
func (s *Service) Latest(ctx context.Context, limit int) ([]Product, error) {
	var products []Product
	if err := s.db.WithContext(ctx).
		Scopes(ActiveScope).
		Preload("Category").
		Preload("Brand").
		Preload("Media", orderedMedia).
		Order("products.created_at DESC, products.id DESC").
		Limit(limit).
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve latest products: %w", err)
	}
	return products, nil
}
