package wishlist

import (
	"time"

	"github.com/your-org/catalog-backend/internal/domain/product"
)

// Priority bounds
const (
	MinPriority = 0
	MaxPriority = 5
)

// Wishlist is one product saved by a user. (user_id, product_id) is unique.
type Wishlist struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	Notes     *string   `gorm:"type:text" json:"notes"`
	Priority  int       `gorm:"not null;default:0" json:"priority"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Product product.Product `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"product"`
}

// TableName overrides the table name
func (Wishlist) TableName() string {
	return "wishlists"
}
