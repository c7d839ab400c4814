// internal/handlers/admin.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/marketplace-backend/internal/services"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

type AdminHandler struct {
	statisticsService *services.StatisticsService
}

func NewAdminHandler(statisticsService *services.StatisticsService) *AdminHandler {
	return &AdminHandler{
		statisticsService: statisticsService,
	}
}

// GET /api/user-statistics/overview
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.statisticsService.Overview(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"stats": stats,
	})
}

// GET /api/user-statistics/registrations?startDate=&endDate=
func (h *AdminHandler) GetRegistrations(c *gin.Context) {
	start, end, err := services.ParseRange(c.Query("startDate"), c.Query("endDate"), time.Now())
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	stats, err := h.statisticsService.RegistrationsPerDay(c.Request.Context(), start, end)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, stats)
}
