package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	appaudit "github.com/ledgerdesk/backend/internal/application/audit"
	"github.com/ledgerdesk/backend/internal/domain/audit"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/interfaces/http/dto"
	"github.com/ledgerdesk/backend/internal/interfaces/http/middleware"
)

// AuditHandler exposes the audit trail
type AuditHandler struct {
	BaseHandler
	queryService *appaudit.QueryService
	recorder     *appaudit.Recorder
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(queryService *appaudit.QueryService, recorder *appaudit.Recorder) *AuditHandler {
	return &AuditHandler{
		queryService: queryService,
		recorder:     recorder,
	}
}

// List godoc
// @Summary      List audit entries
// @Description  Newest first. Filters combine with AND.
// @Tags         audit
// @Produce      json
// @Param        status query string false "SUCCESS, FAILURE, WARNING or DANGER"
// @Param        action query string false "Exact action name"
// @Param        entity_type query string false "Invoice, Order, Client, User or System"
// @Param        search query string false "Description or actor contains"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]dto.AuditEntryResponse}
// @Security     BearerAuth
// @Router       /audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	req, ok := h.BindList(c)
	if !ok {
		return
	}

	filter := audit.Filter{
		Filter:     req.ToFilter(),
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
	}
	if raw := c.Query("status"); raw != "" {
		status := audit.Status(strings.ToUpper(raw))
		if !status.IsValid() {
			h.HandleError(c, shared.NewValidationError("Invalid status",
				shared.FieldError{Field: "status", Message: "Must be one of: SUCCESS FAILURE WARNING DANGER"}))
			return
		}
		filter.Status = &status
	}

	page, err := h.queryService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, dto.ToAuditEntryResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// Append godoc
// @Summary      Append an audit entry
// @Description  Records a client-side event attributed to the caller. Recording is
// @Description  best-effort: the request is accepted even if the write fails.
// @Tags         audit
// @Accept       json
// @Produce      json
// @Param        request body dto.AppendAuditRequest true "Entry"
// @Success      202 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /audit [post]
func (h *AuditHandler) Append(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	var req dto.AppendAuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	entityID := req.EntityID
	if entityID == "" {
		entityID = "N/A"
	}
	h.recorder.Record(c.Request.Context(),
		audit.DraftFor(actor, req.Action, audit.Status(req.Status)).
			On(req.EntityType, entityID).
			Describe(req.Description))

	h.Accepted(c, gin.H{"accepted": true})
}
