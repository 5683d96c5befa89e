package billing

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/ledgerdesk/backend/internal/domain/audit"
	"github.com/ledgerdesk/backend/internal/domain/billing"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderService_CreateOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.client(t, "Acme")

	t.Run("creates a pending order", func(t *testing.T) {
		order, err := f.orderSvc.CreateOrder(ctx, testutil.ManagerActor(), CreateOrderInput{
			ClientID:    client.ID,
			Description: "Server Maintenance",
			Amount:      decimal.RequireFromString("499.999"),
		})
		require.NoError(t, err)
		assert.Equal(t, billing.OrderStatusPending, order.Status)
		assert.Equal(t, "500.00", order.Amount.StringFixed(2))
		assert.True(t, strings.HasPrefix(order.Code, "ORD-20250615-"))
		assert.Len(t, f.entries(t, audit.ActionOrderCreated), 1)
	})

	t.Run("amount must be positive", func(t *testing.T) {
		_, err := f.orderSvc.CreateOrder(ctx, testutil.ManagerActor(), CreateOrderInput{
			ClientID: client.ID, Amount: decimal.Zero,
		})
		require.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("client must exist", func(t *testing.T) {
		_, err := f.orderSvc.CreateOrder(ctx, testutil.ManagerActor(), CreateOrderInput{
			ClientID: uuid.New(), Amount: decimal.NewFromInt(10),
		})
		require.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("staff is refused", func(t *testing.T) {
		_, err := f.orderSvc.CreateOrder(ctx, testutil.StaffActor(), CreateOrderInput{
			ClientID: client.ID, Amount: decimal.NewFromInt(10),
		})
		require.ErrorIs(t, err, shared.ErrForbidden)
	})

	orders, total, err := f.orderSvc.ListOrders(ctx, billing.OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, orders, 1)
}

func TestOrderService_GenerateTestOrders(t *testing.T) {
	t.Run("creates a placeholder client when none exist", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		orders, err := f.orderSvc.GenerateTestOrders(ctx, testutil.SuperAdminActor(), 0)
		require.NoError(t, err)
		require.Len(t, orders, DefaultTestOrderCount)

		clients, err := f.clients.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, clients, 1)
		assert.Equal(t, "Test Client", clients[0].Name)

		for _, o := range orders {
			assert.Equal(t, billing.OrderStatusPending, o.Status)
			assert.Equal(t, clients[0].ID, o.ClientID)
			assert.Contains(t, TestOrderDescriptions, o.Description)
			assert.True(t, strings.HasSuffix(o.Amount.StringFixed(2), ".50"))
			assert.True(t, o.Amount.GreaterThanOrEqual(decimal.NewFromInt(100)))
			assert.True(t, o.Amount.LessThanOrEqual(decimal.NewFromInt(5001)))
		}
		assert.Len(t, f.entries(t, audit.ActionTestDataGenerated), 1)
	})

	t.Run("uses the first existing client", func(t *testing.T) {
		f := newFixture(t)
		f.client(t, "Zeta")
		alpha := f.client(t, "Alpha")

		orders, err := f.orderSvc.GenerateTestOrders(context.Background(), testutil.SuperAdminActor(), 2)
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, alpha.ID, orders[0].ClientID)
	})

	t.Run("count is bounded", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.orderSvc.GenerateTestOrders(context.Background(), testutil.SuperAdminActor(), MaxTestOrderCount+1)
		require.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("requires super admin", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.orderSvc.GenerateTestOrders(context.Background(), testutil.ManagerActor(), 1)
		require.ErrorIs(t, err, shared.ErrForbidden)
	})
}

func TestClientService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	client, err := f.clientSvc.CreateClient(ctx, testutil.ManagerActor(), CreateClientInput{
		Name: "Green Grocer", Email: "Boss@GreenGrocer.com", Company: "Green Grocer",
	})
	require.NoError(t, err)
	assert.Equal(t, "boss@greengrocer.com", client.Email)
	assert.Len(t, f.entries(t, audit.ActionClientCreated), 1)

	_, err = f.clientSvc.CreateClient(ctx, testutil.ManagerActor(), CreateClientInput{Name: "Broken", Email: "not-an-email"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.clientSvc.CreateClient(ctx, testutil.StaffActor(), CreateClientInput{Name: "Nope", Email: "nope@example.com"})
	require.ErrorIs(t, err, shared.ErrForbidden)

	f.client(t, "Acme")
	clients, total, err := f.clientSvc.ListClients(ctx, billing.ClientFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "Acme", clients[0].Name)
}

func TestSeeder_SeedDemoData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seeded, err := f.seeder.SeedDemoData(ctx, testutil.SuperAdminActor())
	require.NoError(t, err)
	assert.True(t, seeded)

	clients, err := f.clients.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 2)

	orders, err := f.orders.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	statuses := map[string]billing.OrderStatus{}
	for _, o := range orders {
		statuses[o.Amount.StringFixed(2)] = o.Status
	}
	assert.Equal(t, billing.OrderStatusPending, statuses["5000.00"])
	assert.Equal(t, billing.OrderStatusInvoiced, statuses["1200.50"])

	invoices, err := f.invoices.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, DemoInvoiceCode, invoices[0].Code)
	assert.Equal(t, billing.InvoiceStatusPaid, invoices[0].Status)

	again, err := f.seeder.SeedDemoData(ctx, testutil.SuperAdminActor())
	require.NoError(t, err)
	assert.False(t, again)
	assert.Len(t, f.entries(t, audit.ActionDemoDataSeeded), 1)
}
