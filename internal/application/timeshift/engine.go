// Package timeshift moves every stored timestamp to simulate elapsed time and
// restores the ledger to wall time afterwards.
package timeshift

import (
	"context"
	"fmt"
	"time"

	appaudit "github.com/ledgerdesk/backend/internal/application/audit"
	"github.com/ledgerdesk/backend/internal/application/ledger"
	"github.com/ledgerdesk/backend/internal/domain/audit"
	"github.com/ledgerdesk/backend/internal/domain/identity"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/domain/timeshift"
	"github.com/ledgerdesk/backend/internal/infrastructure/logger"
	"github.com/ledgerdesk/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Reconciler runs the overdue sweep inside an open transaction
type Reconciler interface {
	ReconcileTx(ctx context.Context, repos ledger.TransactionalRepositories, now time.Time) (int, error)
}

// ShiftResult reports what a shift or restore touched
type ShiftResult struct {
	Days         int   `json:"days"`
	OffsetDays   int   `json:"offset_days"`
	Clients      int64 `json:"clients"`
	Orders       int64 `json:"orders"`
	Invoices     int64 `json:"invoices"`
	AuditEntries int64 `json:"audit_entries"`
	Overdue      int   `json:"overdue"`
	Reinstated   int   `json:"reinstated"`
}

// WipeResult reports how many rows a wipe removed
type WipeResult struct {
	Clients      int64 `json:"clients"`
	Orders       int64 `json:"orders"`
	Invoices     int64 `json:"invoices"`
	AuditEntries int64 `json:"audit_entries"`
}

// Engine shifts, restores and wipes the whole ledger. Each operation runs as
// one transaction through the scope, so readers see either the state before
// or the state after, never a partial shift.
type Engine struct {
	scope      ledger.TransactionScope
	reconciler Reconciler
	recorder   *appaudit.Recorder
	clock      shared.Clock
	logger     *zap.Logger
	metrics    *telemetry.LedgerMetrics
}

// NewEngine creates a new Engine
func NewEngine(
	scope ledger.TransactionScope,
	reconciler Reconciler,
	recorder *appaudit.Recorder,
	clock shared.Clock,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		scope:      scope,
		reconciler: reconciler,
		recorder:   recorder,
		clock:      clock,
		logger:     logger,
	}
}

// SetMetrics sets the business metrics for shift and wipe operations
func (e *Engine) SetMetrics(m *telemetry.LedgerMetrics) {
	e.metrics = m
}

// ShiftBack moves every stored timestamp days into the past, adds days to the
// offset and flags invoices whose due date has now elapsed.
func (e *Engine) ShiftBack(ctx context.Context, actor identity.Actor, days int) (*ShiftResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "timeshift", "shift_back")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrDays, days, telemetry.SpanAttrActor, actor.Label())

	if err := e.authorize(ctx, actor, identity.ActionShiftTime); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := timeshift.ValidateShiftDays(days); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	now := e.clock.Now()
	result := &ShiftResult{Days: days}
	err := e.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		offset, err := repos.Offset().GetOffsetDays(ctx)
		if err != nil {
			return err
		}
		if err := timeshift.ValidateShift(offset, days); err != nil {
			return err
		}
		if err := shiftAll(ctx, repos, -days, result); err != nil {
			return err
		}
		result.OffsetDays = offset + days
		if err := repos.Offset().SetOffsetDays(ctx, result.OffsetDays); err != nil {
			return err
		}

		if result.Overdue, err = e.reconciler.ReconcileTx(ctx, repos, now); err != nil {
			return err
		}

		_, err = e.recorder.RecordTx(ctx, repos,
			audit.DraftFor(actor, audit.ActionTimeShifted, audit.StatusWarning).
				On(audit.EntitySystem, "time").
				Describe(fmt.Sprintf("Shifted all timestamps back %d days (offset now %d days); %d invoices became overdue",
					days, result.OffsetDays, result.Overdue)))
		return err
	})
	if err != nil {
		err = ledger.PersistenceError("shift time", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOffsetDays, result.OffsetDays,
		telemetry.SpanAttrFlipped, result.Overdue,
	)
	e.metrics.RecordTimeShift(ctx, telemetry.ShiftDirectionBack, days)
	e.metrics.RecordOverdueFlips(ctx, result.Overdue)
	logger.WithLogger(ctx, e.logger).Warn("Ledger time shifted",
		zap.Int("days", days),
		zap.Int("offset_days", result.OffsetDays),
		zap.Int("overdue", result.Overdue),
	)
	return result, nil
}

// Restore moves every timestamp forward by the accumulated offset, reinstates
// OVERDUE invoices whose due date is in the future again and resets the
// offset. It is a no-op when the offset is zero.
func (e *Engine) Restore(ctx context.Context, actor identity.Actor) (*ShiftResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "timeshift", "restore")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrActor, actor.Label())

	if err := e.authorize(ctx, actor, identity.ActionShiftTime); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	now := e.clock.Now()
	result := &ShiftResult{}
	err := e.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		offset, err := repos.Offset().GetOffsetDays(ctx)
		if err != nil || offset == 0 {
			return err
		}
		result.Days = offset

		if err := shiftAll(ctx, repos, offset, result); err != nil {
			return err
		}
		if err := repos.Offset().SetOffsetDays(ctx, 0); err != nil {
			return err
		}

		if result.Reinstated, err = e.reinstateTx(ctx, repos, now); err != nil {
			return err
		}

		_, err = e.recorder.RecordTx(ctx, repos,
			audit.DraftFor(actor, audit.ActionTimeRestored, audit.StatusSuccess).
				On(audit.EntitySystem, "time").
				Describe(fmt.Sprintf("Restored all timestamps forward %d days; %d invoices reinstated", offset, result.Reinstated)))
		return err
	})
	if err != nil {
		err = ledger.PersistenceError("restore time", err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	if result.Days == 0 {
		return result, nil
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrDays, result.Days)
	e.metrics.RecordTimeShift(ctx, telemetry.ShiftDirectionRestore, result.Days)
	logger.WithLogger(ctx, e.logger).Warn("Ledger time restored",
		zap.Int("days", result.Days),
		zap.Int("reinstated", result.Reinstated),
	)
	return result, nil
}

func (e *Engine) reinstateTx(ctx context.Context, repos ledger.TransactionalRepositories, now time.Time) (int, error) {
	overdue, err := repos.Invoices().FindOverdueDueAfter(ctx, now)
	if err != nil {
		return 0, err
	}

	reconciler := identity.SystemActor(identity.SystemActorReconciler)
	reinstated := 0
	for i := range overdue {
		invoice := &overdue[i]
		if !invoice.DemoteIfNotDue(now) {
			continue
		}
		if err := repos.Invoices().Save(ctx, invoice); err != nil {
			return reinstated, err
		}
		_, err := e.recorder.RecordTx(ctx, repos,
			audit.DraftFor(reconciler, audit.ActionInvoiceReinstated, audit.StatusSuccess).
				On(audit.EntityInvoice, invoice.Code).
				Describe(fmt.Sprintf("Invoice %s is due %s again; status changed from OVERDUE to PENDING",
					invoice.Code, invoice.DateDue.UTC().Format("2006-01-02"))))
		if err != nil {
			return reinstated, err
		}
		reinstated++
	}
	return reinstated, nil
}

// WipeAll deletes every client, order, invoice and audit entry and resets
// the offset. The closing DANGER entry is the last write of the same
// transaction, so it survives the wipe and commits only with it.
func (e *Engine) WipeAll(ctx context.Context, actor identity.Actor) (*WipeResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "timeshift", "wipe_all")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrActor, actor.Label())

	if err := e.authorize(ctx, actor, identity.ActionWipe); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &WipeResult{}
	err := e.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		var err error
		// children first so foreign keys never dangle
		if result.Invoices, err = repos.Invoices().DeleteAll(ctx); err != nil {
			return err
		}
		if result.Orders, err = repos.Orders().DeleteAll(ctx); err != nil {
			return err
		}
		if result.Clients, err = repos.Clients().DeleteAll(ctx); err != nil {
			return err
		}
		if result.AuditEntries, err = repos.Audit().DeleteAll(ctx); err != nil {
			return err
		}
		if err := repos.Offset().SetOffsetDays(ctx, 0); err != nil {
			return err
		}

		_, err = e.recorder.RecordTx(ctx, repos,
			audit.DraftFor(identity.SystemActor(identity.SystemActorMaintenance), audit.ActionDataWiped, audit.StatusDanger).
				On(audit.EntitySystem, "ledger").
				Describe(fmt.Sprintf("All data wiped by %s: %d invoices, %d orders, %d clients, %d audit entries",
					actor.Label(), result.Invoices, result.Orders, result.Clients, result.AuditEntries)))
		return err
	})
	if err != nil {
		err = ledger.PersistenceError("wipe ledger", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	e.metrics.RecordWipe(ctx)
	logger.WithLogger(ctx, e.logger).Warn("Ledger wiped",
		zap.String("by", actor.Label()),
		zap.Int64("invoices", result.Invoices),
		zap.Int64("orders", result.Orders),
		zap.Int64("clients", result.Clients),
		zap.Int64("audit_entries", result.AuditEntries),
	)
	return result, nil
}

// Offset returns the cumulative shift in days
func (e *Engine) Offset(ctx context.Context) (int, error) {
	var offset int
	err := e.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		var err error
		offset, err = repos.Offset().GetOffsetDays(ctx)
		return err
	})
	if err != nil {
		return 0, ledger.PersistenceError("read time offset", err)
	}
	return offset, nil
}

func (e *Engine) authorize(ctx context.Context, actor identity.Actor, action identity.Action) error {
	if err := actor.Authorize(action); err != nil {
		e.recorder.RecordDenied(ctx, actor, action, audit.EntitySystem, string(action))
		return err
	}
	return nil
}

func shiftAll(ctx context.Context, repos ledger.TransactionalRepositories, days int, result *ShiftResult) error {
	var err error
	if result.Clients, err = repos.Clients().ShiftTimestamps(ctx, days); err != nil {
		return err
	}
	if result.Orders, err = repos.Orders().ShiftTimestamps(ctx, days); err != nil {
		return err
	}
	if result.Invoices, err = repos.Invoices().ShiftTimestamps(ctx, days); err != nil {
		return err
	}
	result.AuditEntries, err = repos.Audit().ShiftTimestamps(ctx, days)
	return err
}
