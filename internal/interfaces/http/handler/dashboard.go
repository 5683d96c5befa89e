package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/ledgerdesk/backend/internal/application/report"
)

// DashboardHandler serves KPI snapshots
type DashboardHandler struct {
	BaseHandler
	dashboardService *report.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardService *report.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// Get godoc
// @Summary      Dashboard snapshot
// @Description  Reconciles overdue invoices, then aggregates period comparisons,
// @Description  monthly totals, top clients and the trailing activity window
// @Tags         dashboard
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	dashboard, err := h.dashboardService.ComputeDashboard(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dashboard)
}
