// internal/domain/user/entity.go
package user

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User represents the user entity
type User struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	Name        string            `gorm:"not null;size:255" json:"name"`
	Email       string            `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password    string            `gorm:"not null;size:255" json:"-"` // Don't return in JSON
	IsAdmin     bool              `gorm:"default:false" json:"is_admin"`
	IsActive    bool              `gorm:"not null" json:"is_active"`
	Phone       string            `gorm:"size:20" json:"phone"`
	Address     string            `gorm:"size:255" json:"address"`
	City        string            `gorm:"size:100" json:"city"`
	State       string            `gorm:"size:100" json:"state"`
	ZipCode     string            `gorm:"size:20" json:"zip_code"`
	Country     string            `gorm:"size:100" json:"country"`
	Avatar      string            `gorm:"size:500" json:"avatar"`
	Preferences datatypes.JSONMap `json:"preferences"`
	LastLoginAt *time.Time        `json:"last_login_at"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	DeletedAt   gorm.DeletedAt    `gorm:"index" json:"-"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// BeforeSave keeps emails lower-cased
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	return nil
}

// NormalizeEmail trims and lower-cases an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetDisplayName returns display name (name or email)
func (u *User) GetDisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.Email
}
