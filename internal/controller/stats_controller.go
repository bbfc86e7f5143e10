package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prepwise/prepwise/internal/service"
)

type StatsController struct {
	statsSvc service.StatsService
}

func NewStatsController(statsSvc service.StatsService) *StatsController {
	return &StatsController{statsSvc: statsSvc}
}

func (c *StatsController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/stats", c.GetUserStats)
}

// GetUserStats godoc
// @Summary Get the caller's completion stats
// @Tags Stats
// @Produce json
// @Success 200 {object} dto.UserStatDTO
// @Router /stats [get]
func (c *StatsController) GetUserStats(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	stats, err := c.statsSvc.GetUserStats(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, stats)
}
