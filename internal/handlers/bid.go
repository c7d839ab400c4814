package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/marketplace-backend/internal/i18n"
	"github.com/javajoker/marketplace-backend/internal/services"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

type BidHandler struct {
	bidService *services.BidService
}

func NewBidHandler(bidService *services.BidService) *BidHandler {
	return &BidHandler{
		bidService: bidService,
	}
}

// POST /api/bids
func (h *BidHandler) CreateBid(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.CreateBidRequest
	if !bindRequest(c, &req) {
		return
	}

	bid, err := h.bidService.CreateBid(c.Request.Context(), actor, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyBidCreated),
		"bid":     bid,
	})
}

// GET /api/bids
func (h *BidHandler) GetMyBids(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	bids, err := h.bidService.ListMyBids(c.Request.Context(), actor)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, bids)
}

// GET /api/bids/received
func (h *BidHandler) GetReceivedBids(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	bids, err := h.bidService.ListReceivedBids(c.Request.Context(), actor)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, bids)
}

// GET /api/bids/:id
func (h *BidHandler) GetBid(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	bid, err := h.bidService.GetBid(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, bid)
}

// PUT /api/bids/:id
func (h *BidHandler) UpdateBid(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.UpdateBidRequest
	if !bindRequest(c, &req) {
		return
	}

	bid, err := h.bidService.UpdateBid(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyBidUpdated),
		"bid":     bid,
	})
}

// DELETE /api/bids/:id
func (h *BidHandler) DeleteBid(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.bidService.DeleteBid(c.Request.Context(), actor, c.Param("id")); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyBidDeleted),
	})
}
