// internal/interfaces/http/handlers/admin_product.go
package handlers

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/catalog-backend/internal/domain/product"
	"github.com/your-org/catalog-backend/internal/pkg/pdf"
)

const productNotFound = "Product not found."

// maxMultipartMemory is how much of a product upload is held in memory before spilling to disk
const maxMultipartMemory = 32 << 20

// AdminProductHandler handles product management endpoints
type AdminProductHandler struct {
	productService *product.Service
	pdfService     *pdf.Service
	url            product.URLFunc
	log            *logrus.Logger
}

// NewAdminProductHandler creates a new admin product handler
func NewAdminProductHandler(products *product.Service, sheets *pdf.Service, url product.URLFunc, log *logrus.Logger) *AdminProductHandler {
	return &AdminProductHandler{
		productService: products,
		pdfService:     sheets,
		url:            url,
		log:            log,
	}
}

// ListProducts handles GET /admin/products
func (h *AdminProductHandler) ListProducts(c *gin.Context) {
	var f product.AdminFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		respondBadRequest(c, err)
		return
	}

	page, err := h.productService.AdminList(c.Request.Context(), f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    product.NewResources(page.Products, h.url, nil),
		"meta":    page.Pagination,
	})
}

// GetProduct handles GET /admin/products/:id
func (h *AdminProductHandler) GetProduct(c *gin.Context) {
	id, ok := idParam(c, "id", productNotFound)
	if !ok {
		return
	}
	p, err := h.productService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "", product.NewResource(p, h.url))
}

// CreateProduct handles POST /admin/products
func (h *AdminProductHandler) CreateProduct(c *gin.Context) {
	req, images, ok := h.bind(c)
	if !ok {
		return
	}
	p, err := h.productService.Create(c.Request.Context(), req, images)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusCreated, "Product created successfully.", product.NewResource(p, h.url))
}

// UpdateProduct handles PUT /admin/products/:id
func (h *AdminProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := idParam(c, "id", productNotFound)
	if !ok {
		return
	}
	req, images, ok := h.bind(c)
	if !ok {
		return
	}
	p, err := h.productService.Update(c.Request.Context(), id, req, images)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Product updated successfully.", product.NewResource(p, h.url))
}

// DeleteProduct handles DELETE /admin/products/:id
func (h *AdminProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := idParam(c, "id", productNotFound)
	if !ok {
		return
	}
	if err := h.productService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Product deleted successfully.", nil)
}

// DeleteMedia handles DELETE /admin/products/:id/media/:mediaId
func (h *AdminProductHandler) DeleteMedia(c *gin.Context) {
	id, ok := idParam(c, "id", productNotFound)
	if !ok {
		return
	}
	mediaID, ok := idParam(c, "mediaId", "Media not found.")
	if !ok {
		return
	}
	if err := h.productService.DeleteMedia(c.Request.Context(), id, mediaID); err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Image deleted successfully.", nil)
}

// DownloadSheet handles GET /admin/products/:id/sheet.pdf
func (h *AdminProductHandler) DownloadSheet(c *gin.Context) {
	id, ok := idParam(c, "id", productNotFound)
	if !ok {
		return
	}
	p, err := h.productService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	buf, err := h.pdfService.GenerateProductSheet(product.NewResource(p, h.url))
	if err != nil {
		respondError(c, h.log, fmt.Errorf("failed to render sheet for product %d: %w", id, err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, p.Slug))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// FormOptions handles GET /admin/form-options
func (h *AdminProductHandler) FormOptions(c *gin.Context) {
	respondOK(c, http.StatusOK, "", h.productService.FormOptions())
}

// bind reads a product from a JSON body, or from a multipart form whose
// "product" part holds the JSON and whose "images[]" parts hold the files
func (h *AdminProductHandler) bind(c *gin.Context) (*product.ProductRequest, []*multipart.FileHeader, bool) {
	var req product.ProductRequest

	if c.ContentType() != "multipart/form-data" {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return nil, nil, false
		}
		return &req, nil, true
	}

	form, err := c.MultipartForm()
	if err != nil {
		respondBadRequest(c, err)
		return nil, nil, false
	}
	raw := form.Value["product"]
	if len(raw) == 0 {
		respondBadRequest(c, fmt.Errorf("missing product part"))
		return nil, nil, false
	}
	if err := json.Unmarshal([]byte(raw[0]), &req); err != nil {
		respondBadRequest(c, err)
		return nil, nil, false
	}

	images := append(form.File["images[]"], form.File["images"]...)
	return &req, images, true
}
