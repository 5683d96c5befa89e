package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ledgerdesk/backend/internal/domain/identity"
	"github.com/ledgerdesk/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// DenialRecorder records refused actions in the audit trail
type DenialRecorder interface {
	RecordDenied(ctx context.Context, actor identity.Actor, action identity.Action, entityType, entityID string)
}

// PermissionConfig holds configuration for permission middleware
type PermissionConfig struct {
	// Recorder receives a best-effort audit entry for every denial (optional)
	Recorder DenialRecorder
	Logger   *zap.Logger
}

// RequireAction creates middleware that only lets actors whose role may
// perform the action through. The entity type names what the route touches
// in the audit entry written on denial.
func RequireAction(action identity.Action, entityType string, cfg PermissionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "Authentication required", RequestIDFrom(c)))
			return
		}

		if err := actor.Authorize(action); err != nil {
			entityID := c.Param("id")
			if entityID == "" {
				entityID = "N/A"
			}
			if cfg.Recorder != nil {
				cfg.Recorder.RecordDenied(c.Request.Context(), actor, action, entityType, entityID)
			}
			if cfg.Logger != nil {
				cfg.Logger.Warn("Permission denied",
					zap.String("actor", actor.Label()),
					zap.String("role", actor.Role.String()),
					zap.String("action", string(action)),
					zap.String("path", c.Request.URL.Path),
				)
			}
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, err.Error(), RequestIDFrom(c)))
			return
		}

		c.Next()
	}
}

// RequireRole creates middleware that requires at least the given role.
// Denials are not audited; use RequireAction for guarded operations.
func RequireRole(min identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "Authentication required", RequestIDFrom(c)))
			return
		}
		if !actor.Role.AtLeast(min) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "Requires role "+min.String(), RequestIDFrom(c)))
			return
		}
		c.Next()
	}
}
