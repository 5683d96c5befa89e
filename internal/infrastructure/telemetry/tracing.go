package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/ledgerdesk/backend/internal/domain/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of ledger service spans
const TracerName = "ledgerdesk"

// Span attribute keys set by the application services
const (
	SpanAttrInvoiceID   = "invoice_id"
	SpanAttrInvoiceCode = "invoice_code"
	SpanAttrOrderID     = "order_id"
	SpanAttrClientID    = "client_id"
	SpanAttrActor       = "actor"
	SpanAttrRole        = "role"
	SpanAttrDays        = "days"
	SpanAttrOffsetDays  = "offset_days"
	SpanAttrFlipped     = "flipped"

	// SpanAttrRefusal holds the domain code of a request the ledger turned down
	SpanAttrRefusal = "ledger.refusal"
)

// StartServiceSpan opens an internal span named "<service>.<operation>",
// for example "invoice.create". The caller ends it.
func StartServiceSpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, service+"."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// SetAttributes takes alternating key/value pairs. A pair whose key is not a
// string is skipped, as is a trailing key without a value.
func SetAttributes(span trace.Span, keyValues ...any) {
	if span == nil {
		return
	}
	span.SetAttributes(pairs(keyValues)...)
}

// RecordError attaches err to the span. Validation, permission, not-found and
// conflict outcomes are answers rather than faults: they are tagged with
// their code and leave the span status untouched.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	var de *shared.DomainError
	if errors.As(err, &de) && de.Code != shared.CodePersistenceFailure {
		span.SetAttributes(attribute.String(SpanAttrRefusal, de.Code))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddEvent records a named event with alternating key/value attributes
func AddEvent(span trace.Span, name string, keyValues ...any) {
	if span == nil {
		return
	}
	span.AddEvent(name, trace.WithAttributes(pairs(keyValues)...))
}

func pairs(keyValues []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 1; i < len(keyValues); i += 2 {
		if key, ok := keyValues[i-1].(string); ok {
			attrs = append(attrs, attributeOf(key, keyValues[i]))
		}
	}
	return attrs
}

func attributeOf(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	}
	return attribute.String(key, fmt.Sprint(value))
}
