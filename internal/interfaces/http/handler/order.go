package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/ledgerdesk/backend/internal/application/billing"
	"github.com/ledgerdesk/backend/internal/domain/billing"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/interfaces/http/dto"
	"github.com/ledgerdesk/backend/internal/interfaces/http/middleware"
)

// OrderHandler handles order-related API endpoints
type OrderHandler struct {
	BaseHandler
	orderService *billingapp.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *billingapp.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// List godoc
// @Summary      List orders
// @Tags         orders
// @Produce      json
// @Param        client_id query string false "Client ID"
// @Param        status query string false "PENDING or INVOICED"
// @Param        search query string false "Code or description contains"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]dto.OrderResponse}
// @Security     BearerAuth
// @Router       /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	req, ok := h.BindList(c)
	if !ok {
		return
	}

	filter := billing.OrderFilter{Filter: req.ToFilter()}
	clientID, err := queryUUID(c, "client_id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	filter.ClientID = clientID

	if raw := c.Query("status"); raw != "" {
		status := billing.OrderStatus(strings.ToUpper(raw))
		if !status.IsValid() {
			h.HandleError(c, shared.NewValidationError("Invalid status",
				shared.FieldError{Field: "status", Message: "Must be one of: PENDING INVOICED"}))
			return
		}
		filter.Status = &status
	}

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, dto.ToOrderResponses(orders), total, req.Page, req.PageSize)
}

// Create godoc
// @Summary      Place an order
// @Description  Places a PENDING order for an existing client
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateOrderRequest true "Order"
// @Success      201 {object} dto.Response{data=dto.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), actor, billingapp.CreateOrderInput{
		ClientID:    uuid.MustParse(req.ClientID),
		Description: req.Description,
		Amount:      *req.Amount,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, dto.ToOrderResponse(order))
}
