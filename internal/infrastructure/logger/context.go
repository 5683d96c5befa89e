package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type (
	loggerKey      struct{}
	correlationKey struct{}
)

// Correlation ties a log line to the request and the actor behind it
type Correlation struct {
	RequestID string
	UserID    string
	Actor     string
	Role      string
}

func (c Correlation) fields() []zap.Field {
	fields := make([]zap.Field, 0, 4)
	for _, f := range []struct{ key, value string }{
		{"request_id", c.RequestID},
		{"user_id", c.UserID},
		{"actor", c.Actor},
		{"role", c.Role},
	} {
		if f.value != "" {
			fields = append(fields, zap.String(f.key, f.value))
		}
	}
	return fields
}

// WithContext attaches l to ctx
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the attached logger, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}

// CorrelationFrom returns what is known about the request so far
func CorrelationFrom(ctx context.Context) Correlation {
	c, _ := ctx.Value(correlationKey{}).(Correlation)
	return c
}

// WithRequestID records the request ID on ctx and on the returned logger,
// which is also attached to the returned context.
func WithRequestID(ctx context.Context, l *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	c := CorrelationFrom(ctx)
	c.RequestID = requestID
	return correlate(ctx, c, l.With(zap.String("request_id", requestID)))
}

// WithActor records the authenticated caller the same way
func WithActor(ctx context.Context, l *zap.Logger, userID, actor, role string) (context.Context, *zap.Logger) {
	c := CorrelationFrom(ctx)
	c.UserID, c.Actor, c.Role = userID, actor, role
	return correlate(ctx, c, l.With(
		zap.String("user_id", userID),
		zap.String("actor", actor),
		zap.String("role", role),
	))
}

func correlate(ctx context.Context, c Correlation, l *zap.Logger) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, correlationKey{}, c)
	return WithContext(ctx, l), l
}

// traceFields returns trace_id and span_id when ctx carries a sampled or
// remote span
func traceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

// ContextLogger writes through a zap logger, adding the trace and
// correlation fields held by its context.
//
//	logger.WithLogger(ctx, s.log).Info("Invoice created", zap.String("code", inv.Code))
type ContextLogger struct {
	ctx        context.Context
	base       *zap.Logger
	correlated bool
}

// L logs through the logger attached to ctx, which already carries the
// correlation fields.
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, base: FromContext(ctx), correlated: true}
}

// WithLogger logs through a service's own logger
func WithLogger(ctx context.Context, l *zap.Logger) *ContextLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &ContextLogger{ctx: ctx, base: l}
}

func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, base: cl.base.With(fields...), correlated: cl.correlated}
}

// Zap returns the logger with every contextual field applied
func (cl *ContextLogger) Zap() *zap.Logger {
	fields := traceFields(cl.ctx)
	if !cl.correlated {
		fields = append(fields, CorrelationFrom(cl.ctx).fields()...)
	}
	if len(fields) == 0 {
		return cl.base
	}
	return cl.base.With(fields...)
}

func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) { cl.Zap().Debug(msg, fields...) }
func (cl *ContextLogger) Info(msg string, fields ...zap.Field)  { cl.Zap().Info(msg, fields...) }
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field)  { cl.Zap().Warn(msg, fields...) }
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) { cl.Zap().Error(msg, fields...) }
