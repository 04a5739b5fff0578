// internal/interfaces/http/handlers/product.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/catalog-backend/internal/domain/product"
	"github.com/your-org/catalog-backend/internal/domain/wishlist"
	"github.com/your-org/catalog-backend/internal/interfaces/http/middleware"
)

// ProductHandler handles the public product endpoints
type ProductHandler struct {
	productService  *product.Service
	wishlistService *wishlist.Service
	url             product.URLFunc
	log             *logrus.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(products *product.Service, wishlists *wishlist.Service, url product.URLFunc, log *logrus.Logger) *ProductHandler {
	return &ProductHandler{
		productService:  products,
		wishlistService: wishlists,
		url:             url,
		log:             log,
	}
}

// GetProducts handles GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	var req product.FilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	page, err := h.productService.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    product.NewResources(page.Products, h.url, h.savedBy(c, page.Products)),
		"meta": gin.H{
			"total":        page.Pagination.Total,
			"per_page":     page.Pagination.PerPage,
			"current_page": page.Pagination.CurrentPage,
			"last_page":    page.Pagination.LastPage,
			"filters":      page.Filters,
		},
	})
}

// GetFeaturedProducts handles GET /products/featured
func (h *ProductHandler) GetFeaturedProducts(c *gin.Context) {
	products, err := h.productService.Featured(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "", product.NewResources(products, h.url, h.savedBy(c, products)))
}

// GetProduct handles GET /products/:slug
func (h *ProductHandler) GetProduct(c *gin.Context) {
	p, related, err := h.productService.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	all := append([]product.Product{*p}, related...)
	saved := h.savedBy(c, all)
	resources := product.NewResources(all, h.url, saved)

	respondOK(c, http.StatusOK, "", gin.H{
		"product":          resources[0],
		"related_products": resources[1:],
	})
}

// savedBy marks the caller's wishlist. Anonymous callers get nil.
func (h *ProductHandler) savedBy(c *gin.Context, products []product.Product) map[uint]bool {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok || len(products) == 0 {
		return nil
	}
	saved, err := h.wishlistService.Saved(c.Request.Context(), userID, product.IDs(products))
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Warn("failed to load wishlist flags")
		return nil
	}
	return saved
}
