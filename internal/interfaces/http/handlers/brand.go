// internal/interfaces/http/handlers/brand.go
package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/catalog-backend/internal/domain/product"
)

const brandNotFound = "Brand not found."

// BrandHandler handles brand endpoints
type BrandHandler struct {
	brandService *product.BrandService
	log          *logrus.Logger
}

// NewBrandHandler creates a new brand handler
func NewBrandHandler(brands *product.BrandService, log *logrus.Logger) *BrandHandler {
	return &BrandHandler{
		brandService: brands,
		log:          log,
	}
}

// GetBrands handles GET /brands
func (h *BrandHandler) GetBrands(c *gin.Context) {
	brands, err := h.brandService.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "", brands)
}

// AdminListBrands handles GET /admin/brands?search=&page=
func (h *BrandHandler) AdminListBrands(c *gin.Context) {
	page, err := h.brandService.AdminList(c.Request.Context(), c.Query("search"), pageQuery(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    page.Brands,
		"meta":    page.Pagination,
	})
}

// GetBrand handles GET /admin/brands/:id
func (h *BrandHandler) GetBrand(c *gin.Context) {
	id, ok := idParam(c, "id", brandNotFound)
	if !ok {
		return
	}
	brand, err := h.brandService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "", brand)
}

// CreateBrand handles POST /admin/brands (JSON or multipart with a logo file)
func (h *BrandHandler) CreateBrand(c *gin.Context) {
	req, logo, ok := h.bind(c)
	if !ok {
		return
	}
	brand, err := h.brandService.Create(c.Request.Context(), req, logo)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusCreated, "Brand created successfully.", brand)
}

// UpdateBrand handles PUT /admin/brands/:id
func (h *BrandHandler) UpdateBrand(c *gin.Context) {
	id, ok := idParam(c, "id", brandNotFound)
	if !ok {
		return
	}
	req, logo, ok := h.bind(c)
	if !ok {
		return
	}
	brand, err := h.brandService.Update(c.Request.Context(), id, req, logo)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Brand updated successfully.", brand)
}

// DeleteBrand handles DELETE /admin/brands/:id
func (h *BrandHandler) DeleteBrand(c *gin.Context) {
	id, ok := idParam(c, "id", brandNotFound)
	if !ok {
		return
	}
	if err := h.brandService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Brand deleted successfully.", nil)
}

// bind reads the brand fields from JSON or a form, plus the optional logo file
func (h *BrandHandler) bind(c *gin.Context) (*product.BrandRequest, *multipart.FileHeader, bool) {
	var req product.BrandRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, err)
		return nil, nil, false
	}

	if c.ContentType() != "multipart/form-data" {
		return &req, nil, true
	}
	logo, err := c.FormFile("logo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return &req, nil, true
		}
		respondBadRequest(c, err)
		return nil, nil, false
	}
	return &req, logo, true
}
