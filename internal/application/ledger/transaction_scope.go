// Package ledger defines the unit of work shared by the ledger's application services.
package ledger

import (
	"context"
	"errors"

	"github.com/ledgerdesk/backend/internal/domain/audit"
	"github.com/ledgerdesk/backend/internal/domain/billing"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/domain/timeshift"
)

// TransactionScope provides transactional access to the ledger repositories.
// Write transactions are serialized: at most one runs at a time, and readers
// only observe committed state.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to every ledger repository within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	Clients() billing.ClientRepository
	Orders() billing.OrderRepository
	Invoices() billing.InvoiceRepository
	Audit() audit.EntryRepository
	Offset() timeshift.OffsetRepository
}

// NoOpTransactionScope runs functions directly against the given repositories.
// Useful for unit tests with in-memory or mocked repositories.
type NoOpTransactionScope struct {
	clients  billing.ClientRepository
	orders   billing.OrderRepository
	invoices billing.InvoiceRepository
	entries  audit.EntryRepository
	offset   timeshift.OffsetRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	clients billing.ClientRepository,
	orders billing.OrderRepository,
	invoices billing.InvoiceRepository,
	entries audit.EntryRepository,
	offset timeshift.OffsetRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		clients:  clients,
		orders:   orders,
		invoices: invoices,
		entries:  entries,
		offset:   offset,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) Clients() billing.ClientRepository   { return s.clients }
func (s *NoOpTransactionScope) Orders() billing.OrderRepository     { return s.orders }
func (s *NoOpTransactionScope) Invoices() billing.InvoiceRepository { return s.invoices }
func (s *NoOpTransactionScope) Audit() audit.EntryRepository        { return s.entries }
func (s *NoOpTransactionScope) Offset() timeshift.OffsetRepository  { return s.offset }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)

// PersistenceError passes domain errors through and wraps anything else as PERSISTENCE_FAILURE
func PersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return shared.NewPersistenceError(op, err)
}
