// Package audit records and lists the ledger's audit trail.
package audit

import (
	"context"
	"fmt"

	"github.com/ledgerdesk/backend/internal/application/ledger"
	"github.com/ledgerdesk/backend/internal/domain/audit"
	"github.com/ledgerdesk/backend/internal/domain/identity"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/domain/timeshift"
	"github.com/ledgerdesk/backend/internal/infrastructure/logger"
	"github.com/ledgerdesk/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Recorder appends audit entries stamped with the ledger's logical time.
//
// Record is the best-effort channel for routine actions: failures are logged
// and counted, never returned. RecordTx writes inside a caller's transaction
// so the entry commits or rolls back with the mutation it describes.
type Recorder struct {
	scope   ledger.TransactionScope
	clock   shared.Clock
	logger  *zap.Logger
	metrics *telemetry.LedgerMetrics
}

// NewRecorder creates a new Recorder
func NewRecorder(scope ledger.TransactionScope, clock shared.Clock, logger *zap.Logger) *Recorder {
	return &Recorder{
		scope:  scope,
		clock:  clock,
		logger: logger,
	}
}

// SetMetrics sets the metrics used to count swallowed write failures
func (r *Recorder) SetMetrics(m *telemetry.LedgerMetrics) {
	r.metrics = m
}

// Record appends the entry in its own transaction. It must not be called
// from inside TransactionScope.Execute.
func (r *Recorder) Record(ctx context.Context, draft audit.Draft) {
	// the entry is still written when the triggering request was cancelled
	ctx = context.WithoutCancel(ctx)

	err := r.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		_, err := r.RecordTx(ctx, repos, draft)
		return err
	})
	if err == nil {
		return
	}

	logger.WithLogger(ctx, r.logger).Error("Failed to write audit entry",
		zap.String("action", draft.Action),
		zap.String("actor", draft.ActorID),
		zap.String("entity_type", draft.EntityType),
		zap.String("entity_id", draft.EntityID),
		zap.String("status", draft.Status.String()),
		zap.Error(err),
	)
	r.metrics.RecordAuditFailure(ctx, draft.Action)
}

// RecordDenied records a refused action as a FAILURE entry
func (r *Recorder) RecordDenied(ctx context.Context, actor identity.Actor, action identity.Action, entityType, entityID string) {
	r.Record(ctx, audit.DraftFor(actor, audit.ActionAccessDenied, audit.StatusFailure).
		On(entityType, entityID).
		Describe(fmt.Sprintf("%s (role %s) was refused %s", actor.Label(), actor.Role, action)))
}

// RecordTx appends the entry through the transaction's repositories. The
// offset is read in the same transaction so the stamp agrees with the rows.
func (r *Recorder) RecordTx(ctx context.Context, repos ledger.TransactionalRepositories, draft audit.Draft) (*audit.Entry, error) {
	offsetDays, err := repos.Offset().GetOffsetDays(ctx)
	if err != nil {
		return nil, ledger.PersistenceError("read time offset", err)
	}

	entry, err := draft.Stamp(timeshift.LogicalNow(r.clock.Now(), offsetDays))
	if err != nil {
		return nil, err
	}
	if err := repos.Audit().Append(ctx, entry); err != nil {
		return nil, ledger.PersistenceError("append audit entry", err)
	}
	return entry, nil
}
