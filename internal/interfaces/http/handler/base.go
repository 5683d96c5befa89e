package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ledgerdesk/backend/internal/domain/identity"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/infrastructure/logger"
	"github.com/ledgerdesk/backend/internal/interfaces/http/dto"
	"github.com/ledgerdesk/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler holds the response helpers every ledger handler embeds
type BaseHandler struct{}

// Actor returns the caller, answering 401 when the request carries none
func (h *BaseHandler) Actor(c *gin.Context) (identity.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
	}
	return actor, ok
}

// ParseID reads a uuid path parameter, answering 400 when it is malformed
func (h *BaseHandler) ParseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		h.ErrorWithDetails(c, dto.ErrCodeValidationFormat, "Invalid "+param,
			[]dto.ValidationDetail{{Field: param, Message: "invalid id"}})
		return uuid.Nil, false
	}
	return id, true
}

// BindList binds page, page_size, order and search query parameters
func (h *BaseHandler) BindList(c *gin.Context) (dto.ListRequest, bool) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleBindError(c, err)
		return req, false
	}
	return req.WithDefaults(), true
}

func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// SuccessWithWarning answers 200 with a notice such as the overdue warning
func (h *BaseHandler) SuccessWithWarning(c *gin.Context, data any, warning string) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithWarning(data, warning))
}

func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error answers with an explicit status
func (h *BaseHandler) Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.NewErrorResponseWithRequestID(code, message, middleware.RequestIDFrom(c)))
}

// ErrorWithDetails derives the status from the code
func (h *BaseHandler) ErrorWithDetails(c *gin.Context, code, message string, details []dto.ValidationDetail) {
	resp := dto.NewValidationErrorResponse(message, middleware.RequestIDFrom(c), details)
	resp.Error.Code = dto.NormalizeErrorCode(code)
	c.JSON(dto.GetHTTPStatus(resp.Error.Code), resp)
}

func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError answers a service error. A domain error keeps its code, message
// and field details; persistence failures and foreign errors are logged and
// the latter are reported without their text.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	var de *shared.DomainError
	if !errors.As(err, &de) {
		logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
		h.InternalError(c, "An unexpected error occurred")
		return
	}
	if de.Code == shared.CodePersistenceFailure {
		logger.GetGinLogger(c).Error("Persistence failure", zap.Error(err))
	}
	h.ErrorWithDetails(c, de.Code, de.Message, middleware.FieldDetails(de.Fields))
}

// queryUUID reads an optional uuid query parameter
func queryUUID(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, shared.NewValidationError("Invalid "+name, shared.FieldError{Field: name, Message: "invalid id"})
	}
	return &id, nil
}
