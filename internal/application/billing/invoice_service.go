package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	appaudit "github.com/ledgerdesk/backend/internal/application/audit"
	"github.com/ledgerdesk/backend/internal/application/ledger"
	"github.com/ledgerdesk/backend/internal/domain/audit"
	"github.com/ledgerdesk/backend/internal/domain/billing"
	"github.com/ledgerdesk/backend/internal/domain/identity"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/domain/timeshift"
	"github.com/ledgerdesk/backend/internal/infrastructure/logger"
	"github.com/ledgerdesk/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// InvoiceService runs the invoice lifecycle: generation from orders, edits
// under the overdue reconciliation rule, deletion and overdue sweeps.
type InvoiceService struct {
	scope    ledger.TransactionScope
	clients  billing.ClientRepository
	orders   billing.OrderRepository
	invoices billing.InvoiceRepository
	recorder *appaudit.Recorder
	clock    shared.Clock
	codes    billing.CodeGenerator
	cfg      InvoiceConfig
	logger   *zap.Logger
	metrics  *telemetry.LedgerMetrics
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	scope ledger.TransactionScope,
	clients billing.ClientRepository,
	orders billing.OrderRepository,
	invoices billing.InvoiceRepository,
	recorder *appaudit.Recorder,
	clock shared.Clock,
	cfg InvoiceConfig,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		scope:    scope,
		clients:  clients,
		orders:   orders,
		invoices: invoices,
		recorder: recorder,
		clock:    clock,
		codes:    billing.InvoiceCodeGenerator{},
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// SetCodeGenerator replaces the invoice code generator
func (s *InvoiceService) SetCodeGenerator(codes billing.CodeGenerator) {
	s.codes = codes
}

// SetMetrics sets the business metrics for invoice operations
func (s *InvoiceService) SetMetrics(m *telemetry.LedgerMetrics) {
	s.metrics = m
}

// CreateInvoice raises an invoice for a PENDING order and marks the order
// INVOICED in one transaction. Any failure rolls back and is recorded as a
// FAILURE entry.
func (s *InvoiceService) CreateInvoice(ctx context.Context, actor identity.Actor, orderID uuid.UUID) (*billing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, orderID.String(),
		telemetry.SpanAttrActor, actor.Label(),
	)

	if err := actor.Authorize(identity.ActionCreateInvoice); err != nil {
		s.recorder.RecordDenied(ctx, actor, identity.ActionCreateInvoice, audit.EntityOrder, orderID.String())
		telemetry.RecordError(span, err)
		return nil, err
	}

	now := s.clock.Now()
	bot := identity.SystemActor(identity.SystemActorInvoiceBot)
	var invoice *billing.Invoice

	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		order, err := repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return notFound(err, "Order", orderID)
		}
		if !order.IsPending() {
			return shared.NewConflictError(fmt.Sprintf("order %s is already %s", order.Code, order.Status))
		}

		code, err := uniqueCode(ctx, s.codes, repos.Invoices().ExistsByCode, now, s.cfg.CodeAttempts, "invoice")
		if err != nil {
			return err
		}
		stamp, err := logicalNow(ctx, repos, now)
		if err != nil {
			return err
		}

		inv, err := billing.NewInvoiceForOrder(order, code, s.cfg.InitialStatus, stamp, shared.Days(s.cfg.DueDays))
		if err != nil {
			return err
		}
		if err := repos.Invoices().Save(ctx, inv); err != nil {
			return err
		}
		if err := repos.Orders().Save(ctx, order); err != nil {
			return err
		}

		_, err = s.recorder.RecordTx(ctx, repos,
			audit.DraftFor(bot, audit.ActionInvoiceGenerated, audit.StatusSuccess).
				On(audit.EntityInvoice, inv.Code).
				Describe(fmt.Sprintf("Generated invoice %s for order %s (amount %s), requested by %s",
					inv.Code, order.Code, inv.Amount.StringFixed(2), actor.Label())))
		if err != nil {
			return err
		}
		invoice = inv
		return nil
	})
	if err != nil {
		err = ledger.PersistenceError("create invoice", err)
		telemetry.RecordError(span, err)
		s.recorder.Record(ctx, audit.DraftFor(bot, audit.ActionInvoiceFailed, audit.StatusFailure).
			On(audit.EntityOrder, orderID.String()).
			Describe(fmt.Sprintf("Invoice generation for order %s failed: %s", orderID, err.Error())))
		logger.WithLogger(ctx, s.logger).Warn("Invoice generation failed",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, invoice.ID.String(),
		telemetry.SpanAttrInvoiceCode, invoice.Code,
	)
	s.metrics.RecordInvoiceCreated(ctx, invoice.Status.String(), invoice.Amount)
	logger.WithLogger(ctx, s.logger).Info("Invoice generated",
		zap.String("invoice_code", invoice.Code),
		zap.String("order_id", orderID.String()),
		zap.String("amount", invoice.Amount.StringFixed(2)),
	)
	return invoice, nil
}

// EditInvoice applies an edit under the overdue reconciliation rule. The
// result carries a warning when a past due date forced the status to OVERDUE.
func (s *InvoiceService) EditInvoice(ctx context.Context, actor identity.Actor, id uuid.UUID, input EditInvoiceInput) (*EditInvoiceResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "edit")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, id.String(),
		telemetry.SpanAttrActor, actor.Label(),
	)

	if err := actor.Authorize(identity.ActionEditInvoice); err != nil {
		s.recorder.RecordDenied(ctx, actor, identity.ActionEditInvoice, audit.EntityInvoice, id.String())
		telemetry.RecordError(span, err)
		return nil, err
	}

	now := s.clock.Now()
	var result *EditInvoiceResult

	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		invoice, err := repos.Invoices().FindByID(ctx, id)
		if err != nil {
			return notFound(err, "Invoice", id)
		}

		outcome, err := invoice.ApplyEdit(billing.InvoiceEdit{
			Amount:      input.Amount,
			Status:      input.Status,
			DateCreated: input.DateCreated.UTC(),
			DateDue:     input.DateDue.UTC(),
		}, now)
		if err != nil {
			return err
		}
		stamp, err := logicalNow(ctx, repos, now)
		if err != nil {
			return err
		}
		invoice.Touch(stamp)
		if err := repos.Invoices().Save(ctx, invoice); err != nil {
			return err
		}

		description := fmt.Sprintf("Updated invoice %s: %s", invoice.Code, outcome.Describe())
		if outcome.Warning != "" {
			description += " (" + outcome.Warning + ")"
		}
		_, err = s.recorder.RecordTx(ctx, repos,
			audit.DraftFor(actor, audit.ActionInvoiceUpdated, audit.StatusSuccess).
				On(audit.EntityInvoice, invoice.Code).
				Describe(description))
		if err != nil {
			return err
		}

		result = &EditInvoiceResult{Invoice: invoice, Changes: outcome.Changes, Warning: outcome.Warning}
		return nil
	})
	if err != nil {
		err = ledger.PersistenceError("edit invoice", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	if result.Warning != "" {
		telemetry.AddEvent(span, "invoice_forced_overdue", telemetry.SpanAttrInvoiceCode, result.Invoice.Code)
	}
	logger.WithLogger(ctx, s.logger).Info("Invoice updated",
		zap.String("invoice_code", result.Invoice.Code),
		zap.String("status", result.Invoice.Status.String()),
		zap.Int("changes", len(result.Changes)),
	)
	return result, nil
}

// DeleteInvoice removes an invoice and releases its order back to PENDING.
// The audit description is taken from the invoice before it is removed.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "delete")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, id.String(),
		telemetry.SpanAttrActor, actor.Label(),
	)

	if err := actor.Authorize(identity.ActionDeleteInvoice); err != nil {
		s.recorder.RecordDenied(ctx, actor, identity.ActionDeleteInvoice, audit.EntityInvoice, id.String())
		telemetry.RecordError(span, err)
		return err
	}

	now := s.clock.Now()
	var linked bool
	var code string

	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		invoice, err := repos.Invoices().FindByID(ctx, id)
		if err != nil {
			return notFound(err, "Invoice", id)
		}
		snapshot, err := describeForDeletion(ctx, repos, invoice)
		if err != nil {
			return err
		}

		if invoice.OrderID != nil {
			order, err := repos.Orders().FindByID(ctx, *invoice.OrderID)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			if order != nil {
				stamp, err := logicalNow(ctx, repos, now)
				if err != nil {
					return err
				}
				order.RevertToPending(stamp)
				if err := repos.Orders().Save(ctx, order); err != nil {
					return err
				}
				linked = true
			}
		}

		if err := repos.Invoices().Delete(ctx, invoice.ID); err != nil {
			return err
		}
		_, err = s.recorder.RecordTx(ctx, repos,
			audit.DraftFor(actor, audit.ActionInvoiceDeleted, audit.StatusSuccess).
				On(audit.EntityInvoice, invoice.Code).
				Describe(snapshot))
		code = invoice.Code
		return err
	})
	if err != nil {
		err = ledger.PersistenceError("delete invoice", err)
		telemetry.RecordError(span, err)
		return err
	}

	s.metrics.RecordInvoiceDeleted(ctx, linked)
	logger.WithLogger(ctx, s.logger).Info("Invoice deleted",
		zap.String("invoice_code", code),
		zap.Bool("order_reverted", linked),
	)
	return nil
}

func describeForDeletion(ctx context.Context, repos ledger.TransactionalRepositories, invoice *billing.Invoice) (string, error) {
	clientName := "unknown client"
	client, err := repos.Clients().FindByID(ctx, invoice.ClientID)
	switch {
	case err == nil:
		clientName = client.Name
	case !errors.Is(err, shared.ErrNotFound):
		return "", err
	}

	orderRef := "no linked order"
	if invoice.OrderID != nil {
		order, err := repos.Orders().FindByID(ctx, *invoice.OrderID)
		switch {
		case err == nil:
			orderRef = "order " + order.Code
		case !errors.Is(err, shared.ErrNotFound):
			return "", err
		}
	}

	return fmt.Sprintf("Deleted invoice %s (amount %s, status %s, client %s, %s)",
		invoice.Code, invoice.Amount.StringFixed(2), invoice.Status, clientName, orderRef), nil
}

// ReconcileOverdue flips every PENDING or SENT invoice due before now to
// OVERDUE and returns how many changed.
func (s *InvoiceService) ReconcileOverdue(ctx context.Context, now time.Time) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "reconcile_overdue")
	defer span.End()

	var flipped int
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		n, err := s.ReconcileTx(ctx, repos, now)
		flipped = n
		return err
	})
	if err != nil {
		err = ledger.PersistenceError("reconcile overdue invoices", err)
		telemetry.RecordError(span, err)
		return 0, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrFlipped, flipped)
	if flipped > 0 {
		s.metrics.RecordOverdueFlips(ctx, flipped)
		logger.WithLogger(ctx, s.logger).Info("Invoices marked overdue", zap.Int("count", flipped))
	}
	return flipped, nil
}

// ReconcileTx runs the overdue sweep inside an existing transaction, writing
// one WARNING entry per flipped invoice.
func (s *InvoiceService) ReconcileTx(ctx context.Context, repos ledger.TransactionalRepositories, now time.Time) (int, error) {
	due, err := repos.Invoices().FindOpenDueBefore(ctx, now)
	if err != nil {
		return 0, err
	}

	reconciler := identity.SystemActor(identity.SystemActorReconciler)
	flipped := 0
	for i := range due {
		invoice := &due[i]
		previous := invoice.Status
		if !invoice.MarkOverdueIfDue(now) {
			continue
		}
		if err := repos.Invoices().Save(ctx, invoice); err != nil {
			return flipped, err
		}
		_, err := s.recorder.RecordTx(ctx, repos,
			audit.DraftFor(reconciler, audit.ActionInvoiceOverdue, audit.StatusWarning).
				On(audit.EntityInvoice, invoice.Code).
				Describe(fmt.Sprintf("Invoice %s was due %s; status changed from %s to OVERDUE",
					invoice.Code, invoice.DateDue.UTC().Format("2006-01-02"), previous)))
		if err != nil {
			return flipped, err
		}
		flipped++
	}
	return flipped, nil
}

// ListInvoices reconciles overdue invoices and then returns one page of invoices
func (s *InvoiceService) ListInvoices(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, int64, error) {
	if _, err := s.ReconcileOverdue(ctx, s.clock.Now()); err != nil {
		return nil, 0, err
	}

	invoices, total, err := s.invoices.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, ledger.PersistenceError("list invoices", err)
	}
	return invoices, total, nil
}

// GetInvoice reconciles overdue invoices and returns one invoice with its client and order
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceDetail, error) {
	if _, err := s.ReconcileOverdue(ctx, s.clock.Now()); err != nil {
		return nil, err
	}

	invoice, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, ledger.PersistenceError("get invoice", notFound(err, "Invoice", id))
	}

	detail := &InvoiceDetail{Invoice: invoice}
	if client, err := s.clients.FindByID(ctx, invoice.ClientID); err == nil {
		detail.Client = client
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, ledger.PersistenceError("get invoice client", err)
	}
	if invoice.OrderID != nil {
		if order, err := s.orders.FindByID(ctx, *invoice.OrderID); err == nil {
			detail.Order = order
		} else if !errors.Is(err, shared.ErrNotFound) {
			return nil, ledger.PersistenceError("get invoice order", err)
		}
	}
	return detail, nil
}

// notFound names the missing resource when err is NOT_FOUND
func notFound(err error, resource string, id uuid.UUID) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewNotFoundError(resource, id.String())
	}
	return err
}

// logicalNow places wall on the shifted timeline. Rows stamped with it move
// back to wall time together with everything else on restore.
func logicalNow(ctx context.Context, repos ledger.TransactionalRepositories, wall time.Time) (time.Time, error) {
	offset, err := repos.Offset().GetOffsetDays(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return timeshift.LogicalNow(wall, offset), nil
}

// uniqueCode draws candidates until one is unused or attempts run out
func uniqueCode(
	ctx context.Context,
	gen billing.CodeGenerator,
	exists func(context.Context, string) (bool, error),
	now time.Time,
	attempts int,
	kind string,
) (string, error) {
	for range attempts {
		code := gen.Next(now)
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", shared.NewConflictError(fmt.Sprintf("could not generate a unique %s code after %d attempts", kind, attempts))
}
