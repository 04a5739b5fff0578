// internal/interfaces/http/handlers/dashboard.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/catalog-backend/internal/domain/product"
	"github.com/your-org/catalog-backend/internal/domain/wishlist"
)

// DashboardHandler serves the admin and user dashboards
type DashboardHandler struct {
	productService  *product.Service
	wishlistService *wishlist.Service
	url             product.URLFunc
	log             *logrus.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(products *product.Service, wishlists *wishlist.Service, url product.URLFunc, log *logrus.Logger) *DashboardHandler {
	return &DashboardHandler{
		productService:  products,
		wishlistService: wishlists,
		url:             url,
		log:             log,
	}
}

// AdminDashboard handles GET /admin/dashboard
func (h *DashboardHandler) AdminDashboard(c *gin.Context) {
	stats, err := h.productService.AdminStats(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "", gin.H{"stats": stats})
}

// UserDashboard handles GET /dashboard: the newest wishlist entries and the
// newest active products
func (h *DashboardHandler) UserDashboard(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	items, count, err := h.wishlistService.Recent(ctx, userID, product.RecentLimit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	recent, err := h.productService.Latest(ctx, product.RecentLimit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	saved, err := h.wishlistService.Saved(ctx, userID, product.IDs(recent))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "", gin.H{
		"wishlist_items":  items,
		"recent_products": product.NewResources(recent, h.url, saved),
		"stats": gin.H{
			"wishlist_count":        count,
			"recent_products_count": len(recent),
		},
	})
}
