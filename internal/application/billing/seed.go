package billing

import (
	"context"
	"fmt"

	appaudit "github.com/ledgerdesk/backend/internal/application/audit"
	"github.com/ledgerdesk/backend/internal/application/ledger"
	"github.com/ledgerdesk/backend/internal/domain/audit"
	"github.com/ledgerdesk/backend/internal/domain/billing"
	"github.com/ledgerdesk/backend/internal/domain/identity"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DemoInvoiceCode is the code of the paid invoice created by the demo seed
const DemoInvoiceCode = "INV-20250115-001"

type demoOrder struct {
	client      int
	description string
	amount      string
	invoiced    bool
}

var (
	demoClients = []CreateClientInput{
		{Name: "TechSolutions Pte Ltd", Email: "contact@techsol.sg", Company: "TechSolutions"},
		{Name: "Green Grocer", Email: "boss@greengrocer.com", Company: "Green Grocer"},
	}
	demoOrders = []demoOrder{
		{client: 0, description: "IT Consultation - Q1", amount: "5000.00"},
		{client: 1, description: "Bulk Vegetable Order", amount: "1200.50", invoiced: true},
	}
)

// Seeder loads the demo data set into an empty ledger
type Seeder struct {
	scope    ledger.TransactionScope
	recorder *appaudit.Recorder
	clock    shared.Clock
	logger   *zap.Logger
}

// NewSeeder creates a new Seeder
func NewSeeder(scope ledger.TransactionScope, recorder *appaudit.Recorder, clock shared.Clock, logger *zap.Logger) *Seeder {
	return &Seeder{scope: scope, recorder: recorder, clock: clock, logger: logger}
}

// SeedDemoData creates two clients, a PENDING order and an INVOICED order
// with a PAID invoice. It does nothing and returns false when clients exist.
func (s *Seeder) SeedDemoData(ctx context.Context, actor identity.Actor) (bool, error) {
	if err := actor.Authorize(identity.ActionGenerateData); err != nil {
		s.recorder.RecordDenied(ctx, actor, identity.ActionGenerateData, audit.EntitySystem, "seed")
		return false, err
	}

	now := s.clock.Now()
	seeded := false
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		existing, err := repos.Clients().ListAll(ctx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}
		stamp, err := logicalNow(ctx, repos, now)
		if err != nil {
			return err
		}

		clients := make([]*billing.Client, len(demoClients))
		for i, in := range demoClients {
			client, err := billing.NewClient(in.Name, in.Email, in.Company, stamp)
			if err != nil {
				return err
			}
			if err := repos.Clients().Save(ctx, client); err != nil {
				return err
			}
			clients[i] = client
		}

		codes := billing.OrderCodeGenerator{}
		for _, d := range demoOrders {
			order, err := billing.NewOrder(codes.Next(now), clients[d.client].ID, d.description, decimal.RequireFromString(d.amount), stamp)
			if err != nil {
				return err
			}
			if !d.invoiced {
				if err := repos.Orders().Save(ctx, order); err != nil {
					return err
				}
				continue
			}

			invoice, err := billing.NewInvoiceForOrder(order, DemoInvoiceCode, billing.InvoiceStatusPending, stamp, 0)
			if err != nil {
				return err
			}
			if _, err := invoice.ApplyEdit(billing.InvoiceEdit{
				Amount:      invoice.Amount,
				Status:      billing.InvoiceStatusPaid,
				DateCreated: stamp,
				DateDue:     stamp,
			}, stamp); err != nil {
				return err
			}
			if err := repos.Orders().Save(ctx, order); err != nil {
				return err
			}
			if err := repos.Invoices().Save(ctx, invoice); err != nil {
				return err
			}
			_, err = s.recorder.RecordTx(ctx, repos,
				audit.DraftFor(identity.SystemActor(identity.SystemActorInvoiceBot), audit.ActionInvoiceGenerated, audit.StatusSuccess).
					On(audit.EntityInvoice, invoice.Code).
					Describe("Initial data load"))
			if err != nil {
				return err
			}
		}

		_, err = s.recorder.RecordTx(ctx, repos,
			audit.DraftFor(actor, audit.ActionDemoDataSeeded, audit.StatusSuccess).
				On(audit.EntitySystem, "seed").
				Describe(fmt.Sprintf("Loaded %d demo clients and %d demo orders", len(demoClients), len(demoOrders))))
		seeded = err == nil
		return err
	})
	if err != nil {
		return false, ledger.PersistenceError("seed demo data", err)
	}
	if seeded {
		s.logger.Info("Demo data seeded")
	}
	return seeded, nil
}
