package handlers

import (
	"net/http"

	"surveyapp/internal/config"
	"surveyapp/internal/observability"
	"surveyapp/internal/services"

	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the owner dashboard
type DashboardHandler struct {
	dashboardService services.DashboardServiceInterface
	converter        *ResourceConverter
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardService services.DashboardServiceInterface, cfg *config.Config) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		converter:        NewResourceConverter(cfg.Server.BackendBaseURL),
	}
}

// GetDashboard returns survey and answer totals with the latest activity of the current user
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_dashboard")
	defer observability.FinishSpan(span, nil)

	userID, err := GetCurrentUserID(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	stats, err := h.dashboardService.GetDashboard(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.converter.Dashboard(stats))
}
