package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	appaudit "github.com/ledgerdesk/backend/internal/application/audit"
	"github.com/ledgerdesk/backend/internal/application/ledger"
	"github.com/ledgerdesk/backend/internal/domain/audit"
	"github.com/ledgerdesk/backend/internal/domain/billing"
	"github.com/ledgerdesk/backend/internal/domain/identity"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ClientService creates and lists clients
type ClientService struct {
	scope    ledger.TransactionScope
	clients  billing.ClientRepository
	recorder *appaudit.Recorder
	clock    shared.Clock
	logger   *zap.Logger
}

// NewClientService creates a new ClientService
func NewClientService(
	scope ledger.TransactionScope,
	clients billing.ClientRepository,
	recorder *appaudit.Recorder,
	clock shared.Clock,
	logger *zap.Logger,
) *ClientService {
	return &ClientService{
		scope:    scope,
		clients:  clients,
		recorder: recorder,
		clock:    clock,
		logger:   logger,
	}
}

// CreateClient registers a new client
func (s *ClientService) CreateClient(ctx context.Context, actor identity.Actor, input CreateClientInput) (*billing.Client, error) {
	if err := actor.Authorize(identity.ActionCreateClient); err != nil {
		s.recorder.RecordDenied(ctx, actor, identity.ActionCreateClient, audit.EntityClient, "N/A")
		return nil, err
	}

	client, err := billing.NewClient(input.Name, input.Email, input.Company, s.clock.Now())
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		stamp, err := logicalNow(ctx, repos, client.CreatedAt)
		if err != nil {
			return err
		}
		client.CreatedAt = stamp
		client.Touch(stamp)
		if err := repos.Clients().Save(ctx, client); err != nil {
			return err
		}
		_, err = s.recorder.RecordTx(ctx, repos,
			audit.DraftFor(actor, audit.ActionClientCreated, audit.StatusSuccess).
				On(audit.EntityClient, client.ID.String()).
				Describe(fmt.Sprintf("Created client %s <%s>", client.Name, client.Email)))
		return err
	})
	if err != nil {
		return nil, ledger.PersistenceError("create client", err)
	}

	s.logger.Info("Client created", zap.String("client_id", client.ID.String()), zap.String("name", client.Name))
	return client, nil
}

// ListClients returns one page of clients ordered by name by default
func (s *ClientService) ListClients(ctx context.Context, filter billing.ClientFilter) ([]billing.Client, int64, error) {
	if filter.OrderBy == "" {
		filter.OrderBy = "name"
		filter.OrderDir = "asc"
	}
	clients, total, err := s.clients.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, ledger.PersistenceError("list clients", err)
	}
	return clients, total, nil
}

// ImportClients creates every valid client in one transaction and reports the
// rows that failed validation. Nothing is written when no row is valid.
func (s *ClientService) ImportClients(ctx context.Context, actor identity.Actor, rows []ImportClientRow) (*ImportClientsResult, error) {
	if err := actor.Authorize(identity.ActionCreateClient); err != nil {
		s.recorder.RecordDenied(ctx, actor, identity.ActionCreateClient, audit.EntityClient, "import")
		return nil, err
	}

	now := s.clock.Now()
	result := &ImportClientsResult{Rejected: []RejectedRow{}}
	valid := make([]*billing.Client, 0, len(rows))
	for _, row := range rows {
		client, err := billing.NewClient(row.Name, row.Email, row.Company, now)
		if err != nil {
			result.Rejected = append(result.Rejected, RejectedRow{Line: row.Line, Reason: rejectionReason(err)})
			continue
		}
		valid = append(valid, client)
	}
	if len(valid) == 0 {
		return result, nil
	}

	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		stamp, err := logicalNow(ctx, repos, now)
		if err != nil {
			return err
		}
		for _, client := range valid {
			client.CreatedAt = stamp
			client.Touch(stamp)
			if err := repos.Clients().Save(ctx, client); err != nil {
				return err
			}
		}
		_, err = s.recorder.RecordTx(ctx, repos,
			audit.DraftFor(actor, audit.ActionClientsImported, audit.StatusSuccess).
				On(audit.EntityClient, "N/A").
				Describe(fmt.Sprintf("Imported %d clients, %d rows rejected", len(valid), len(result.Rejected))))
		return err
	})
	if err != nil {
		return nil, ledger.PersistenceError("import clients", err)
	}

	result.Imported = make([]billing.Client, len(valid))
	for i, client := range valid {
		result.Imported[i] = *client
	}
	s.logger.Info("Clients imported",
		zap.Int("imported", len(valid)),
		zap.Int("rejected", len(result.Rejected)),
	)
	return result, nil
}

func rejectionReason(err error) string {
	var de *shared.DomainError
	if !errors.As(err, &de) || len(de.Fields) == 0 {
		return err.Error()
	}
	parts := make([]string, len(de.Fields))
	for i, f := range de.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return strings.Join(parts, "; ")
}
