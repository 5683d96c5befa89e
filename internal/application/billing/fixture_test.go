package billing

import (
	"context"
	"testing"
	"time"

	appaudit "github.com/ledgerdesk/backend/internal/application/audit"
	"github.com/ledgerdesk/backend/internal/domain/audit"
	"github.com/ledgerdesk/backend/internal/domain/billing"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/infrastructure/persistence"
	"github.com/ledgerdesk/backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	clock    *shared.FixedClock
	logs     *observer.ObservedLogs
	clients  *persistence.GormClientRepository
	orders   *persistence.GormOrderRepository
	invoices *persistence.GormInvoiceRepository
	recorder *appaudit.Recorder

	invoiceSvc *InvoiceService
	orderSvc   *OrderService
	clientSvc  *ClientService
	seeder     *Seeder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	clock := testutil.NewTestClock()
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	scope := persistence.NewGormTransactionScope(db)
	f := &fixture{
		db:       db,
		clock:    clock,
		logs:     logs,
		clients:  persistence.NewGormClientRepository(db),
		orders:   persistence.NewGormOrderRepository(db),
		invoices: persistence.NewGormInvoiceRepository(db),
		recorder: appaudit.NewRecorder(scope, clock, log),
	}
	f.invoiceSvc = NewInvoiceService(scope, f.clients, f.orders, f.invoices, f.recorder, clock, DefaultInvoiceConfig(), log)
	f.orderSvc = NewOrderService(scope, f.orders, f.recorder, clock, log)
	f.clientSvc = NewClientService(scope, f.clients, f.recorder, clock, log)
	f.seeder = NewSeeder(scope, f.recorder, clock, log)
	return f
}

func (f *fixture) client(t *testing.T, name string) *billing.Client {
	t.Helper()
	client, err := billing.NewClient(name, "accounts@example.com", name+" Inc", f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.clients.Save(context.Background(), client))
	return client
}

func (f *fixture) order(t *testing.T, client *billing.Client, amount string) *billing.Order {
	t.Helper()
	order, err := billing.NewOrder(billing.OrderCodeGenerator{}.Next(f.clock.Now()), client.ID, "Consultation Fee",
		decimal.RequireFromString(amount), f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.orders.Save(context.Background(), order))
	return order
}

// unlinkedInvoice stores an invoice that references no order
func (f *fixture) unlinkedInvoice(t *testing.T, client *billing.Client, code string, status billing.InvoiceStatus, due time.Time) *billing.Invoice {
	t.Helper()
	now := f.clock.Now()
	invoice := &billing.Invoice{
		BaseEntity:  shared.NewBaseEntity(now),
		Code:        code,
		ClientID:    client.ID,
		Amount:      decimal.RequireFromString("250.00"),
		Status:      status,
		DateCreated: now,
		DateDue:     due,
	}
	require.NoError(t, f.invoices.Save(context.Background(), invoice))
	return invoice
}

func (f *fixture) entries(t *testing.T, action string) []audit.Entry {
	t.Helper()
	entries, _, err := persistence.NewGormAuditEntryRepository(f.db).FindAll(context.Background(), audit.Filter{Action: action})
	require.NoError(t, err)
	return entries
}

func (f *fixture) reloadOrder(t *testing.T, order *billing.Order) *billing.Order {
	t.Helper()
	found, err := f.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	return found
}

func (f *fixture) invoiceCount(t *testing.T) int {
	t.Helper()
	all, err := f.invoices.ListAll(context.Background())
	require.NoError(t, err)
	return len(all)
}
