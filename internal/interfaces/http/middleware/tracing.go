// Package middleware provides HTTP middleware for the ledger API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// Tracing starts a server span per request, except health probes, and
// annotates it with the ledger attributes. Span names are the method and
// route pattern, e.g. "GET /api/v1/invoices/:id". When disabled it returns
// nothing to install.
func Tracing(cfg TracingConfig) []gin.HandlerFunc {
	if !cfg.Enabled {
		return nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "ledger-backend"
	}
	traced := func(c *gin.Context) bool { return c.FullPath() != "/health" }
	return []gin.HandlerFunc{
		otelgin.Middleware(cfg.ServiceName, otelgin.WithGinFilter(traced)),
		SpanAttributes(),
	}
}

// SpanAttributes must run inside the otelgin span. It tags the span with
// the request ID up front and, once the rest of the chain has run, with the
// authenticated actor. Refusals (4xx) get ledger.refused; otelgin itself
// marks server errors and records handler errors.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}
		if id := RequestIDFrom(c); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}

		c.Next()

		if actor, ok := GetActor(c); ok {
			span.SetAttributes(
				attribute.String("ledger.actor", actor.Label()),
				attribute.String("ledger.role", actor.Role.String()),
			)
		}
		if status := c.Writer.Status(); status >= http.StatusBadRequest && status < http.StatusInternalServerError {
			span.SetAttributes(attribute.Bool("ledger.refused", true))
		}
	}
}

// RequestIDFrom prefers the ID RequestID stored; the raw header is a fallback
// for handlers mounted without it.
func RequestIDFrom(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	id := c.GetHeader(RequestIDHeader)
	if len(id) > maxRequestIDLength {
		return id[:maxRequestIDLength]
	}
	return id
}
