package handler

import (
	"github.com/gin-gonic/gin"
	billingapp "github.com/ledgerdesk/backend/internal/application/billing"
	"github.com/ledgerdesk/backend/internal/application/timeshift"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	domaintime "github.com/ledgerdesk/backend/internal/domain/timeshift"
	"github.com/ledgerdesk/backend/internal/interfaces/http/dto"
	"github.com/ledgerdesk/backend/internal/interfaces/http/middleware"
)

// SystemHandler handles the maintenance endpoints: time travel, wipe and
// demo data generation
type SystemHandler struct {
	BaseHandler
	engine       *timeshift.Engine
	orderService *billingapp.OrderService
	clock        shared.Clock
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(engine *timeshift.Engine, orderService *billingapp.OrderService, clock shared.Clock) *SystemHandler {
	return &SystemHandler{
		engine:       engine,
		orderService: orderService,
		clock:        clock,
	}
}

// GetTime godoc
// @Summary      Current time offset
// @Description  Reports how many days the ledger has been shifted into the past
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=dto.TimeOffsetResponse}
// @Security     BearerAuth
// @Router       /system/time [get]
func (h *SystemHandler) GetTime(c *gin.Context) {
	offset, err := h.engine.Offset(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	now := h.clock.Now()
	h.Success(c, dto.TimeOffsetResponse{
		OffsetDays: offset,
		Now:        now,
		LogicalNow: domaintime.LogicalNow(now, offset),
	})
}

// ShiftTime godoc
// @Summary      Shift all records into the past
// @Description  Moves every order, invoice and audit timestamp back by the given
// @Description  number of days, then reconciles overdue invoices
// @Tags         system
// @Accept       json
// @Produce      json
// @Param        request body dto.ShiftTimeRequest true "Days"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /system/time/shift [post]
func (h *SystemHandler) ShiftTime(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	var req dto.ShiftTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	result, err := h.engine.ShiftBack(c.Request.Context(), actor, req.Days)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RestoreTime godoc
// @Summary      Undo all shifts
// @Description  Moves every record forward by the accumulated offset and resets it to zero
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /system/time/restore [post]
func (h *SystemHandler) RestoreTime(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	result, err := h.engine.Restore(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Wipe godoc
// @Summary      Delete all ledger data
// @Description  Removes every client, order, invoice and audit entry. A single DANGER
// @Description  entry describing the wipe is left behind.
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /system/wipe [post]
func (h *SystemHandler) Wipe(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	result, err := h.engine.WipeAll(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GenerateTestData godoc
// @Summary      Generate demo orders
// @Description  Creates random PENDING orders for existing clients (default 3)
// @Tags         system
// @Accept       json
// @Produce      json
// @Param        request body dto.GenerateTestDataRequest false "Count"
// @Success      201 {object} dto.Response{data=[]dto.OrderResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /system/test-data [post]
func (h *SystemHandler) GenerateTestData(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	var req dto.GenerateTestDataRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleBindError(c, err)
			return
		}
	}
	if req.Count == 0 {
		req.Count = billingapp.DefaultTestOrderCount
	}

	orders, err := h.orderService.GenerateTestOrders(c.Request.Context(), actor, req.Count)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToOrderResponses(orders))
}
