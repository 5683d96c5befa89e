package handler

import (
	"github.com/gin-gonic/gin"
	billingapp "github.com/ledgerdesk/backend/internal/application/billing"
	"github.com/ledgerdesk/backend/internal/domain/billing"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/interfaces/http/dto"
	"github.com/ledgerdesk/backend/internal/interfaces/http/middleware"
)

// InvoiceHandler handles invoice lifecycle endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *billingapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *billingapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// CreateFromOrder godoc
// @Summary      Generate an invoice for an order
// @Description  Creates the single invoice of a PENDING order and marks the order INVOICED.
// @Description  Send an Idempotency-Key header to make retries safe.
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Order ID"
// @Param        Idempotency-Key header string false "Client supplied retry key"
// @Success      201 {object} dto.Response{data=dto.InvoiceResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/invoice [post]
func (h *InvoiceHandler) CreateFromOrder(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), actor, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, dto.ToInvoiceResponse(invoice))
}

// List godoc
// @Summary      List invoices
// @Description  Brings overdue statuses up to date, then lists invoices newest first
// @Tags         invoices
// @Produce      json
// @Param        search query string false "Code contains"
// @Param        status query string false "PENDING, SENT, PAID or OVERDUE"
// @Param        client_id query string false "Client ID"
// @Param        order_id query string false "Order ID"
// @Param        order_by query string false "code, amount, status, date_created or date_due"
// @Param        order_dir query string false "asc or desc"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]dto.InvoiceResponse}
// @Security     BearerAuth
// @Router       /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	req, ok := h.BindList(c)
	if !ok {
		return
	}

	filter := billing.InvoiceFilter{Filter: req.ToFilter()}
	var err error
	if filter.ClientID, err = queryUUID(c, "client_id"); err != nil {
		h.HandleError(c, err)
		return
	}
	if filter.OrderID, err = queryUUID(c, "order_id"); err != nil {
		h.HandleError(c, err)
		return
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := billing.ParseInvoiceStatus(raw)
		if !ok {
			h.HandleError(c, shared.NewValidationError("Invalid status",
				shared.FieldError{Field: "status", Message: "Must be one of: PENDING SENT PAID OVERDUE"}))
			return
		}
		filter.Status = &status
	}

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, dto.ToInvoiceResponses(invoices), total, req.Page, req.PageSize)
}

// Get godoc
// @Summary      Get an invoice
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID"
// @Success      200 {object} dto.Response{data=dto.InvoiceDetailResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	detail, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := dto.InvoiceDetailResponse{InvoiceResponse: dto.ToInvoiceResponse(detail.Invoice)}
	if detail.Client != nil {
		client := dto.ToClientResponse(detail.Client)
		resp.Client = &client
	}
	if detail.Order != nil {
		order := dto.ToOrderResponse(detail.Order)
		resp.Order = &order
	}
	h.Success(c, resp)
}

// Update godoc
// @Summary      Edit an invoice
// @Description  Replaces amount, status and dates. A due date in the past forces OVERDUE
// @Description  over PENDING or SENT and the response carries a warning.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID"
// @Param        request body dto.EditInvoiceRequest true "New values"
// @Success      200 {object} dto.Response{data=dto.InvoiceEditResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/{id} [put]
func (h *InvoiceHandler) Update(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.EditInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}
	status, _ := billing.ParseInvoiceStatus(req.Status)

	result, err := h.invoiceService.EditInvoice(c.Request.Context(), actor, id, billingapp.EditInvoiceInput{
		Amount:      *req.Amount,
		Status:      status,
		DateCreated: *req.DateCreated,
		DateDue:     *req.DateDue,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	changes := make([]string, len(result.Changes))
	for i, change := range result.Changes {
		changes[i] = change.String()
	}
	resp := dto.InvoiceEditResponse{
		Invoice: dto.ToInvoiceResponse(result.Invoice),
		Changes: changes,
	}
	if result.Warning != "" {
		h.SuccessWithWarning(c, resp, result.Warning)
		return
	}
	h.Success(c, resp)
}

// Delete godoc
// @Summary      Delete an invoice
// @Description  Removes the invoice and returns its order to PENDING
// @Tags         invoices
// @Param        id path string true "Invoice ID"
// @Success      204
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
