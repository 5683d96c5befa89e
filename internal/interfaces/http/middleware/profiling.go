package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ledgerdesk/backend/internal/infrastructure/telemetry"
)

// Profiling labels every request's profile samples with its method, route
// pattern and API resource so flame graphs can be sliced per endpoint.
// Unmatched routes and /health run unlabelled.
func Profiling() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || route == "/health" {
			c.Next()
			return
		}
		labels := map[string]string{
			telemetry.ProfilingLabelMethod:   c.Request.Method,
			telemetry.ProfilingLabelRoute:    route,
			telemetry.ProfilingLabelResource: resourceOf(route),
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// resourceOf returns the first segment after the version in
// /api/{version}/{resource}/..., e.g. "invoices".
func resourceOf(route string) string {
	parts := strings.Split(strings.Trim(route, "/"), "/")
	if len(parts) >= 3 && parts[0] == "api" {
		return parts[2]
	}
	return ""
}
