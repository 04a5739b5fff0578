// internal/interfaces/http/handlers/wishlist.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/catalog-backend/internal/domain/wishlist"
)

const wishlistItemNotFound = "Wishlist item not found."

// WishlistHandler handles wishlist endpoints
type WishlistHandler struct {
	wishlistService *wishlist.Service
	log             *logrus.Logger
}

// NewWishlistHandler creates a new wishlist handler
func NewWishlistHandler(wishlists *wishlist.Service, log *logrus.Logger) *WishlistHandler {
	return &WishlistHandler{
		wishlistService: wishlists,
		log:             log,
	}
}

// GetWishlist handles GET /wishlist
func (h *WishlistHandler) GetWishlist(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	page, err := h.wishlistService.Index(c.Request.Context(), userID, pageQuery(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    page.Items,
		"meta":    page.Pagination,
	})
}

// AddToWishlist handles POST /wishlist/:productId
func (h *WishlistHandler) AddToWishlist(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	productID, ok := idParam(c, "productId", productNotFound)
	if !ok {
		return
	}

	var req wishlist.AddRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
	}

	item, err := h.wishlistService.Add(c.Request.Context(), userID, productID, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusCreated, "Product added to wishlist successfully.", item)
}

// ToggleWishlist handles POST /wishlist/:productId/toggle
func (h *WishlistHandler) ToggleWishlist(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	productID, ok := idParam(c, "productId", productNotFound)
	if !ok {
		return
	}

	saved, err := h.wishlistService.Toggle(c.Request.Context(), userID, productID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if saved {
		respondOK(c, http.StatusCreated, "Product added to wishlist", gin.H{"in_wishlist": true})
		return
	}
	respondOK(c, http.StatusOK, "Product removed from wishlist", gin.H{"in_wishlist": false})
}

// CheckWishlist handles GET /wishlist/check/:productId
func (h *WishlistHandler) CheckWishlist(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	productID, ok := idParam(c, "productId", productNotFound)
	if !ok {
		return
	}

	saved, err := h.wishlistService.Check(c.Request.Context(), userID, productID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "", gin.H{"in_wishlist": saved})
}

// GetItem handles GET /wishlist/items/:id
func (h *WishlistHandler) GetItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	itemID, ok := idParam(c, "id", wishlistItemNotFound)
	if !ok {
		return
	}

	item, err := h.wishlistService.Show(c.Request.Context(), userID, itemID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "", item)
}

// UpdateItem handles PUT /wishlist/items/:id
func (h *WishlistHandler) UpdateItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	itemID, ok := idParam(c, "id", wishlistItemNotFound)
	if !ok {
		return
	}

	var req wishlist.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	item, err := h.wishlistService.Update(c.Request.Context(), userID, itemID, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Wishlist item updated successfully.", item)
}

// RemoveItem handles DELETE /wishlist/items/:id
func (h *WishlistHandler) RemoveItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	itemID, ok := idParam(c, "id", wishlistItemNotFound)
	if !ok {
		return
	}

	if err := h.wishlistService.Remove(c.Request.Context(), userID, itemID); err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Item removed from wishlist.", nil)
}

// ClearWishlist handles DELETE /wishlist
func (h *WishlistHandler) ClearWishlist(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	removed, err := h.wishlistService.Clear(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK,
		fmt.Sprintf("Successfully cleared %d items from your wishlist.", removed),
		gin.H{"count": removed})
}
