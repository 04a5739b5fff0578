// internal/domain/wishlist/service.go
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/catalog-backend/internal/config"
	"github.com/your-org/catalog-backend/internal/domain/product"
	"github.com/your-org/catalog-backend/internal/pkg/apperror"
	"github.com/your-org/catalog-backend/internal/pkg/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errItemNotFound    = apperror.NotFound("Wishlist item not found.")
	errItemForbidden   = apperror.Forbidden("Unauthorized access to wishlist item.")
	errProductNotFound = apperror.NotFound("Product not found.")
	errAlreadyListed   = apperror.Conflict("This product is already in your wishlist.")
)

// Service handles wishlist business logic
type Service struct {
	db     *gorm.DB
	url    product.URLFunc
	config *config.Config
	log    *logrus.Logger
}

// NewService creates a new wishlist service. url resolves stored image paths
// for the product summaries.
func NewService(db *gorm.DB, url product.URLFunc, cfg *config.Config, log *logrus.Logger) *Service {
	return &Service{
		db:     db,
		url:    url,
		config: cfg,
		log:    log,
	}
}

// AddRequest carries the optional notes and priority of a new entry
type AddRequest struct {
	Notes    *string `json:"notes" validate:"omitempty,max=1000"`
	Priority *int    `json:"priority" validate:"omitempty,gte=0,lte=5"`
}

// UpdateRequest changes notes and priority. Omitted values are kept.
type UpdateRequest struct {
	Notes    *string `json:"notes" validate:"omitempty,max=1000"`
	Priority *int    `json:"priority" validate:"omitempty,gte=0,lte=5"`
}

// Item is a wishlist entry with its product summary
type Item struct {
	ID        uint             `json:"id"`
	ProductID uint             `json:"product_id"`
	Notes     *string          `json:"notes"`
	Priority  int              `json:"priority"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Product   *product.Summary `json:"product,omitempty"`
}

// Page is one page of a user's wishlist
type Page struct {
	Items      []Item             `json:"data"`
	Pagination product.Pagination `json:"meta"`
}

// Index returns the user's entries, newest first
func (s *Service) Index(ctx context.Context, userID uint, page int) (*Page, error) {
	query := s.db.WithContext(ctx).Model(&Wishlist{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count wishlist items: %w", err)
	}

	pagination := product.NewPagination(total, s.config.Catalog.WishlistPerPage, page)

	var rows []Wishlist
	if err := query.
		Preload("Product").
		Preload("Product.Media", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC, id ASC`)
		}).
		Order("created_at DESC, id DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve wishlist items: %w", err)
	}

	items := make([]Item, 0, len(rows))
	for i := range rows {
		items = append(items, s.item(&rows[i]))
	}
	return &Page{Items: items, Pagination: pagination}, nil
}

// Recent returns the user's newest entries and the total number of entries
func (s *Service) Recent(ctx context.Context, userID uint, limit int) ([]Item, int64, error) {
	query := s.db.WithContext(ctx).Model(&Wishlist{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count wishlist items: %w", err)
	}

	var rows []Wishlist
	if err := query.
		Preload("Product").
		Preload("Product.Media", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC, id ASC`)
		}).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve wishlist items: %w", err)
	}

	items := make([]Item, 0, len(rows))
	for i := range rows {
		items = append(items, s.item(&rows[i]))
	}
	return items, total, nil
}

// Add saves a product for the user. A product already saved is a Conflict,
// including when a concurrent request inserted it first.
func (s *Service) Add(ctx context.Context, userID, productID uint, req *AddRequest) (*Item, error) {
	if err := validation.Error(validation.Struct(req)); err != nil {
		return nil, err
	}
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}

	listed, err := s.Check(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if listed {
		return nil, errAlreadyListed
	}

	entry := Wishlist{UserID: userID, ProductID: productID, Notes: req.Notes}
	if req.Priority != nil {
		entry.Priority = *req.Priority
	}
	if err := s.db.WithContext(ctx).Omit("Product").Create(&entry).Error; err != nil {
		if apperror.IsUniqueViolation(err) {
			return nil, errAlreadyListed
		}
		return nil, s.writeError("add product to", userID, err)
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "product_id": productID}).Info("product added to wishlist")
	return s.Show(ctx, userID, entry.ID)
}

// Toggle removes the product when saved and saves it otherwise. It reports
// whether the product is saved afterwards.
func (s *Service) Toggle(ctx context.Context, userID, productID uint) (bool, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return false, err
	}

	var saved bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND product_id = ?", userID, productID).Delete(&Wishlist{})
		if result.Error != nil {
			return fmt.Errorf("failed to remove wishlist item: %w", result.Error)
		}
		if result.RowsAffected > 0 {
			return nil
		}

		// a concurrent toggle that inserted first leaves the product saved
		entry := Wishlist{UserID: userID, ProductID: productID}
		if err := tx.Omit("Product").Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to add wishlist item: %w", err)
		}
		saved = true
		return nil
	})
	if err != nil {
		return false, s.writeError("update", userID, err)
	}
	return saved, nil
}

// Show returns one of the user's entries
func (s *Service) Show(ctx context.Context, userID, itemID uint) (*Item, error) {
	entry, err := s.owned(ctx, s.db.WithContext(ctx).
		Preload("Product").
		Preload("Product.Media", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC, id ASC`)
		}), userID, itemID)
	if err != nil {
		return nil, err
	}
	item := s.item(entry)
	return &item, nil
}

// Update changes the notes and priority of one of the user's entries
func (s *Service) Update(ctx context.Context, userID, itemID uint, req *UpdateRequest) (*Item, error) {
	if err := validation.Error(validation.Struct(req)); err != nil {
		return nil, err
	}

	entry, err := s.owned(ctx, s.db.WithContext(ctx), userID, itemID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(entry).Omit("Product").Updates(updates).Error; err != nil {
			return nil, s.writeError("update", userID, err)
		}
	}
	return s.Show(ctx, userID, itemID)
}

// Remove deletes one of the user's entries
func (s *Service) Remove(ctx context.Context, userID, itemID uint) error {
	entry, err := s.owned(ctx, s.db.WithContext(ctx), userID, itemID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(entry).Error; err != nil {
		return s.writeError("remove item from", userID, err)
	}
	return nil
}

// Clear deletes every entry of the user and returns how many were removed
func (s *Service) Clear(ctx context.Context, userID uint) (int64, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ?", userID).Delete(&Wishlist{})
		if result.Error != nil {
			return fmt.Errorf("failed to clear wishlist: %w", result.Error)
		}
		removed = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, s.writeError("clear", userID, err)
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "removed": removed}).Info("wishlist cleared")
	return removed, nil
}

// Check reports whether the user has saved the product
func (s *Service) Check(ctx context.Context, userID, productID uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Wishlist{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check wishlist: %w", err)
	}
	return count > 0, nil
}

// Saved returns which of the given products the user has saved
func (s *Service) Saved(ctx context.Context, userID uint, productIDs []uint) (map[uint]bool, error) {
	saved := make(map[uint]bool, len(productIDs))
	if len(productIDs) == 0 {
		return saved, nil
	}

	var ids []uint
	if err := s.db.WithContext(ctx).Model(&Wishlist{}).
		Where("user_id = ? AND product_id IN ?", userID, productIDs).
		Pluck("product_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to check wishlist: %w", err)
	}
	for _, id := range ids {
		saved[id] = true
	}
	return saved, nil
}

func (s *Service) requireProduct(ctx context.Context, productID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&product.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check product: %w", err)
	}
	if count == 0 {
		return errProductNotFound
	}
	return nil
}

// owned loads an entry and checks it belongs to userID
func (s *Service) owned(ctx context.Context, query *gorm.DB, userID, itemID uint) (*Wishlist, error) {
	var entry Wishlist
	if err := query.First(&entry, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errItemNotFound
		}
		return nil, fmt.Errorf("failed to retrieve wishlist item: %w", err)
	}
	if entry.UserID != userID {
		return nil, errItemForbidden
	}
	return &entry, nil
}

func (s *Service) item(w *Wishlist) Item {
	item := Item{
		ID:        w.ID,
		ProductID: w.ProductID,
		Notes:     w.Notes,
		Priority:  w.Priority,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
	if w.Product.ID != 0 {
		summary := product.NewSummary(&w.Product, s.url)
		item.Product = &summary
	}
	return item
}

func (s *Service) writeError(op string, userID uint, err error) error {
	s.log.WithError(err).WithFields(logrus.Fields{"operation": op, "user_id": userID}).Error("wishlist write failed")
	return apperror.Internal(fmt.Sprintf("Failed to %s wishlist. Please try again.", op), err)
}
