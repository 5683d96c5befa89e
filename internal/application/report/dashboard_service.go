// Package report serves the KPI dashboard.
package report

import (
	"context"
	"time"

	"github.com/ledgerdesk/backend/internal/application/ledger"
	"github.com/ledgerdesk/backend/internal/domain/billing"
	"github.com/ledgerdesk/backend/internal/domain/report"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// OverdueReconciler brings invoice statuses up to date before a read
type OverdueReconciler interface {
	ReconcileOverdue(ctx context.Context, now time.Time) (int, error)
}

// DashboardService computes dashboard snapshots
type DashboardService struct {
	scope      ledger.TransactionScope
	reconciler OverdueReconciler
	clock      shared.Clock
	opts       report.Options
	logger     *zap.Logger
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(
	scope ledger.TransactionScope,
	reconciler OverdueReconciler,
	clock shared.Clock,
	opts report.Options,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		scope:      scope,
		reconciler: reconciler,
		clock:      clock,
		opts:       opts,
		logger:     logger,
	}
}

// ComputeDashboard reconciles overdue invoices and aggregates the ledger as
// of the clock's current time. The records are read in one transaction so
// the snapshot never mixes states from before and after a concurrent write.
func (s *DashboardService) ComputeDashboard(ctx context.Context) (*report.Dashboard, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "dashboard", "compute")
	defer span.End()

	now := s.clock.Now()
	if _, err := s.reconciler.ReconcileOverdue(ctx, now); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		orders   []billing.Order
		invoices []billing.Invoice
		clients  []billing.Client
	)
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		var err error
		if orders, err = repos.Orders().ListAll(ctx); err != nil {
			return err
		}
		if invoices, err = repos.Invoices().ListAll(ctx); err != nil {
			return err
		}
		clients, err = repos.Clients().ListAll(ctx)
		return err
	})
	if err != nil {
		err = ledger.PersistenceError("load dashboard data", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		"orders", len(orders),
		"invoices", len(invoices),
	)
	s.logger.Debug("Dashboard computed", zap.Int("orders", len(orders)), zap.Int("invoices", len(invoices)))
	return report.ComputeDashboard(now, orders, invoices, clients, s.opts), nil
}
