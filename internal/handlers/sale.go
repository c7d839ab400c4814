package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/marketplace-backend/internal/i18n"
	"github.com/javajoker/marketplace-backend/internal/services"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

type SaleHandler struct {
	saleService *services.SaleService
}

func NewSaleHandler(saleService *services.SaleService) *SaleHandler {
	return &SaleHandler{
		saleService: saleService,
	}
}

// POST /api/sale
func (h *SaleHandler) FinalizeSale(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.FinalizeSaleRequest
	if !bindRequest(c, &req) {
		return
	}

	sale, err := h.saleService.FinalizeSale(c.Request.Context(), actor, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeySaleCreated),
		"sale":    sale,
	})
}

// GET /api/sale
func (h *SaleHandler) GetSales(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	sales, err := h.saleService.ListSales(c.Request.Context(), actor)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, sales)
}

// GET /api/sale/:id
func (h *SaleHandler) GetSale(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	sale, err := h.saleService.GetSale(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, sale)
}
