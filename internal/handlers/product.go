// internal/handlers/product.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/marketplace-backend/internal/i18n"
	"github.com/javajoker/marketplace-backend/internal/services"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
}

func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// GET /api/products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	searchParams := services.ProductSearchParams{
		PaginationParams: params,
		Name:             c.Query("name"),
	}
	if searchParams.Name == "" {
		searchParams.Name = params.Search
	}

	products, total, err := h.productService.SearchProducts(c.Request.Context(), searchParams)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	result := utils.CreatePaginationResult(products, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /api/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.productService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, product)
}

// GET /api/products/getby/:categoryId
func (h *ProductHandler) GetProductsByCategory(c *gin.Context) {
	products, err := h.productService.ListProductsByCategory(c.Request.Context(), c.Param("categoryId"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, products)
}

// GET /api/products/user/:id
func (h *ProductHandler) GetOwnProduct(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	product, err := h.productService.GetOwnProduct(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, product)
}

// POST /api/products (multipart: name, desc, cost, categoryId, image)
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.CreateProductRequest
	if !bindRequest(c, &req) {
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), actor, &req, optionalFile(c, "image"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductCreated),
		"product": product,
	})
}

// PUT /api/products/user/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.UpdateProductRequest
	if !bindRequest(c, &req) {
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), actor, c.Param("id"), &req, optionalFile(c, "image"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductUpdated),
		"product": product,
	})
}

// DELETE /api/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), actor, c.Param("id")); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductDeleted),
	})
}
