// internal/interfaces/http/handlers/category.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/catalog-backend/internal/domain/product"
)

const categoryNotFound = "Category not found."

// CategoryHandler handles category endpoints
type CategoryHandler struct {
	categoryService *product.CategoryService
	log             *logrus.Logger
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categories *product.CategoryService, log *logrus.Logger) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categories,
		log:             log,
	}
}

// GetCategories handles GET /categories
func (h *CategoryHandler) GetCategories(c *gin.Context) {
	categories, err := h.categoryService.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "", categories)
}

// GetCategoryTree handles GET /categories/tree
func (h *CategoryHandler) GetCategoryTree(c *gin.Context) {
	tree, err := h.categoryService.Tree(c.Request.Context(), false)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "", tree)
}

// GetCategoryFields handles GET /categories/:id/fields
func (h *CategoryHandler) GetCategoryFields(c *gin.Context) {
	id, ok := idParam(c, "id", categoryNotFound)
	if !ok {
		return
	}
	fields, err := h.categoryService.DescribeFields(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "", fields)
}

// AdminListCategories handles GET /admin/categories. ?tree=1 nests the result.
func (h *CategoryHandler) AdminListCategories(c *gin.Context) {
	var (
		categories []product.Category
		err        error
	)
	if c.Query("tree") != "" {
		categories, err = h.categoryService.Tree(c.Request.Context(), true)
	} else {
		categories, err = h.categoryService.AdminList(c.Request.Context())
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "", categories)
}

// GetCategory handles GET /admin/categories/:id
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id, ok := idParam(c, "id", categoryNotFound)
	if !ok {
		return
	}
	category, err := h.categoryService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "", category)
}

// CreateCategory handles POST /admin/categories
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req product.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	category, err := h.categoryService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusCreated, "Category created successfully.", category)
}

// UpdateCategory handles PUT /admin/categories/:id
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, ok := idParam(c, "id", categoryNotFound)
	if !ok {
		return
	}
	var req product.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	category, err := h.categoryService.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Category updated successfully.", category)
}

// DeleteCategory handles DELETE /admin/categories/:id
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := idParam(c, "id", categoryNotFound)
	if !ok {
		return
	}
	if err := h.categoryService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Category deleted successfully.", nil)
}

// AddField handles POST /admin/categories/:id/fields
func (h *CategoryHandler) AddField(c *gin.Context) {
	id, ok := idParam(c, "id", categoryNotFound)
	if !ok {
		return
	}
	var in product.FieldInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, err)
		return
	}

	field, err := h.categoryService.AddField(c.Request.Context(), id, &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusCreated, "Field added successfully.", field)
}

// UpdateField handles PUT /admin/categories/:id/fields/:fieldId
func (h *CategoryHandler) UpdateField(c *gin.Context) {
	id, ok := idParam(c, "id", categoryNotFound)
	if !ok {
		return
	}
	fieldID, ok := idParam(c, "fieldId", "Field not found.")
	if !ok {
		return
	}
	var in product.FieldInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, err)
		return
	}

	field, err := h.categoryService.UpdateField(c.Request.Context(), id, fieldID, &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Field updated successfully.", field)
}

// DeleteField handles DELETE /admin/categories/:id/fields/:fieldId
func (h *CategoryHandler) DeleteField(c *gin.Context) {
	id, ok := idParam(c, "id", categoryNotFound)
	if !ok {
		return
	}
	fieldID, ok := idParam(c, "fieldId", "Field not found.")
	if !ok {
		return
	}
	if err := h.categoryService.DeleteField(c.Request.Context(), id, fieldID); err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Field deleted successfully.", nil)
}
