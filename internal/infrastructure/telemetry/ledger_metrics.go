package telemetry

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LedgerMetrics provides business metrics for the ledger.
// It tracks invoice activity, overdue reconciliation, temporal shifts, and audit health.
// A nil *LedgerMetrics is valid and records nothing.
type LedgerMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	invoicesCreatedTotal *Counter
	invoiceAmountTotal   *Counter
	invoicesDeletedTotal *Counter
	overdueFlipsTotal    *Counter
	timeShiftDaysTotal   *Counter
	wipesTotal           *Counter
	auditFailuresTotal   *Counter
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewLedgerMetrics creates a new LedgerMetrics instance.
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LedgerMetrics{
		meter:  cfg.Meter,
		logger: logger,
	}

	counters := []struct {
		target      **Counter
		name        string
		description string
		unit        string
	}{
		{&lm.invoicesCreatedTotal, "ledger_invoices_created_total", "Total number of invoices generated from orders", "{invoices}"},
		{&lm.invoiceAmountTotal, "ledger_invoice_amount_total", "Total invoiced amount in cents", "{cents}"},
		{&lm.invoicesDeletedTotal, "ledger_invoices_deleted_total", "Total number of invoices deleted", "{invoices}"},
		{&lm.overdueFlipsTotal, "ledger_overdue_flips_total", "Invoices flipped to OVERDUE by reconciliation", "{invoices}"},
		{&lm.timeShiftDaysTotal, "ledger_time_shift_days_total", "Days moved by temporal shifts and restores", "{days}"},
		{&lm.wipesTotal, "ledger_wipes_total", "Total number of full ledger wipes", "{wipes}"},
		{&lm.auditFailuresTotal, "ledger_audit_write_failures_total", "Best-effort audit writes that failed and were dropped", "{entries}"},
	}

	for _, c := range counters {
		counter, err := NewCounter(cfg.Meter, c.name, c.description, c.unit)
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	return lm, nil
}

// ShiftDirection labels a temporal shift metric
type ShiftDirection string

const (
	ShiftDirectionBack    ShiftDirection = "back"
	ShiftDirectionRestore ShiftDirection = "restore"
)

// RecordInvoiceCreated records an invoice generation and its amount.
func (lm *LedgerMetrics) RecordInvoiceCreated(ctx context.Context, status string, amount decimal.Decimal) {
	if lm == nil {
		return
	}
	lm.invoicesCreatedTotal.Inc(ctx, AttrInvoiceStatus.String(status))
	lm.invoiceAmountTotal.Add(ctx, amount.Mul(decimal.NewFromInt(100)).IntPart())
}

// RecordInvoiceDeleted records an invoice deletion.
func (lm *LedgerMetrics) RecordInvoiceDeleted(ctx context.Context, linked bool) {
	if lm == nil {
		return
	}
	lm.invoicesDeletedTotal.Inc(ctx, AttrLinkedOrder.Bool(linked))
}

// RecordOverdueFlips records how many invoices one reconciliation pass flipped.
func (lm *LedgerMetrics) RecordOverdueFlips(ctx context.Context, n int) {
	if lm == nil || n <= 0 {
		return
	}
	lm.overdueFlipsTotal.Add(ctx, int64(n))
}

// RecordTimeShift records a shift or restore of days.
func (lm *LedgerMetrics) RecordTimeShift(ctx context.Context, direction ShiftDirection, days int) {
	if lm == nil || days <= 0 {
		return
	}
	lm.timeShiftDaysTotal.Add(ctx, int64(days), AttrShiftDirection.String(string(direction)))
}

// RecordWipe records a full ledger wipe.
func (lm *LedgerMetrics) RecordWipe(ctx context.Context) {
	if lm == nil {
		return
	}
	lm.wipesTotal.Inc(ctx)
}

// RecordAuditFailure records a dropped best-effort audit entry.
func (lm *LedgerMetrics) RecordAuditFailure(ctx context.Context, action string) {
	if lm == nil {
		return
	}
	lm.auditFailuresTotal.Inc(ctx, AttrAuditAction.String(action))
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewLedgerMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
