package billing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdesk/backend/internal/domain/audit"
	"github.com/ledgerdesk/backend/internal/domain/billing"
	"github.com/ledgerdesk/backend/internal/domain/identity"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/infrastructure/persistence/models"
	"github.com/ledgerdesk/backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedCodes(codes ...string) billing.CodeGenerator {
	i := 0
	return billing.CodeGeneratorFunc(func(time.Time) string {
		code := codes[min(i, len(codes)-1)]
		i++
		return code
	})
}

func TestInvoiceService_AcmeScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.client(t, "Acme")
	order := f.order(t, acme, "1000")

	invoice, err := f.invoiceSvc.CreateInvoice(ctx, testutil.ManagerActor(), order.ID)
	require.NoError(t, err)
	assert.Regexp(t, `^INV-20250615-\d{3}$`, invoice.Code)
	assert.Equal(t, billing.InvoiceStatusPending, invoice.Status)
	assert.Equal(t, acme.ID, invoice.ClientID)
	assert.True(t, decimal.NewFromInt(1000).Equal(invoice.Amount))
	assert.True(t, f.clock.Now().Add(shared.Days(30)).Equal(invoice.DateDue))
	assert.Equal(t, billing.OrderStatusInvoiced, f.reloadOrder(t, order).Status)

	generated := f.entries(t, audit.ActionInvoiceGenerated)
	require.Len(t, generated, 1)
	assert.Equal(t, identity.ActorTypeSystem, generated[0].ActorType)
	assert.Equal(t, identity.SystemActorInvoiceBot, generated[0].ActorID)
	assert.Equal(t, invoice.Code, generated[0].EntityID)

	yesterday := f.clock.Now().Add(-shared.Day)
	edited, err := f.invoiceSvc.EditInvoice(ctx, testutil.SuperAdminActor(), invoice.ID, EditInvoiceInput{
		Amount:      invoice.Amount,
		Status:      billing.InvoiceStatusPending,
		DateCreated: invoice.DateCreated,
		DateDue:     yesterday,
	})
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceStatusOverdue, edited.Invoice.Status)
	assert.Equal(t, billing.OverdueWarning, edited.Warning)

	paid, err := f.invoiceSvc.EditInvoice(ctx, testutil.SuperAdminActor(), invoice.ID, EditInvoiceInput{
		Amount:      invoice.Amount,
		Status:      billing.InvoiceStatusPaid,
		DateCreated: invoice.DateCreated,
		DateDue:     yesterday,
	})
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceStatusPaid, paid.Invoice.Status)
	assert.Empty(t, paid.Warning)

	flipped, err := f.invoiceSvc.ReconcileOverdue(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Zero(t, flipped)

	stored, err := f.invoices.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceStatusPaid, stored.Status)
	assert.Len(t, f.entries(t, audit.ActionInvoiceUpdated), 2)
}

func TestInvoiceService_CreateInvoice_Failures(t *testing.T) {
	t.Run("already invoiced order conflicts without mutation", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		order := f.order(t, f.client(t, "Acme"), "1000")

		first, err := f.invoiceSvc.CreateInvoice(ctx, testutil.ManagerActor(), order.ID)
		require.NoError(t, err)

		_, err = f.invoiceSvc.CreateInvoice(ctx, testutil.ManagerActor(), order.ID)
		require.ErrorIs(t, err, shared.ErrConflict)
		assert.Equal(t, 1, f.invoiceCount(t))

		stored, err := f.invoices.FindByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, first.Code, stored.Code)

		failures := f.entries(t, audit.ActionInvoiceFailed)
		require.Len(t, failures, 1)
		assert.Equal(t, audit.StatusFailure, failures[0].Status)
		assert.Equal(t, order.ID.String(), failures[0].EntityID)
	})

	t.Run("code retries exhausted", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		client := f.client(t, "Acme")
		first := f.order(t, client, "100")
		second := f.order(t, client, "200")
		f.invoiceSvc.SetCodeGenerator(fixedCodes("INV-20250615-500"))

		_, err := f.invoiceSvc.CreateInvoice(ctx, testutil.ManagerActor(), first.ID)
		require.NoError(t, err)

		_, err = f.invoiceSvc.CreateInvoice(ctx, testutil.ManagerActor(), second.ID)
		require.ErrorIs(t, err, shared.ErrConflict)
		assert.Contains(t, err.Error(), "after 10 attempts")
		assert.Equal(t, billing.OrderStatusPending, f.reloadOrder(t, second).Status)
		assert.Equal(t, 1, f.invoiceCount(t))
	})

	t.Run("collision is retried", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		client := f.client(t, "Acme")
		first := f.order(t, client, "100")
		second := f.order(t, client, "200")

		f.invoiceSvc.SetCodeGenerator(fixedCodes("INV-20250615-500"))
		_, err := f.invoiceSvc.CreateInvoice(ctx, testutil.ManagerActor(), first.ID)
		require.NoError(t, err)

		f.invoiceSvc.SetCodeGenerator(fixedCodes("INV-20250615-500", "INV-20250615-501"))
		invoice, err := f.invoiceSvc.CreateInvoice(ctx, testutil.ManagerActor(), second.ID)
		require.NoError(t, err)
		assert.Equal(t, "INV-20250615-501", invoice.Code)
	})

	t.Run("staff is refused", func(t *testing.T) {
		f := newFixture(t)
		order := f.order(t, f.client(t, "Acme"), "1000")

		_, err := f.invoiceSvc.CreateInvoice(context.Background(), testutil.StaffActor(), order.ID)
		require.ErrorIs(t, err, shared.ErrForbidden)
		assert.Equal(t, billing.OrderStatusPending, f.reloadOrder(t, order).Status)
		assert.Len(t, f.entries(t, audit.ActionAccessDenied), 1)
	})

	t.Run("missing order", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.invoiceSvc.CreateInvoice(context.Background(), testutil.ManagerActor(), uuid.New())
		require.ErrorIs(t, err, shared.ErrNotFound)
		assert.Len(t, f.entries(t, audit.ActionInvoiceFailed), 1)
	})

	t.Run("audit write failure rolls the invoice back", func(t *testing.T) {
		f := newFixture(t)
		order := f.order(t, f.client(t, "Acme"), "1000")
		require.NoError(t, f.db.Migrator().DropTable(&models.AuditEntryModel{}))

		_, err := f.invoiceSvc.CreateInvoice(context.Background(), testutil.ManagerActor(), order.ID)
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodePersistenceFailure))
		assert.Equal(t, billing.OrderStatusPending, f.reloadOrder(t, order).Status)
		assert.Equal(t, 0, f.invoiceCount(t))
		assert.Equal(t, 1, f.logs.FilterMessage("Failed to write audit entry").Len())
	})
}

func TestInvoiceService_EditInvoice(t *testing.T) {
	setup := func(t *testing.T) (*fixture, *billing.Invoice) {
		f := newFixture(t)
		order := f.order(t, f.client(t, "Acme"), "1000")
		invoice, err := f.invoiceSvc.CreateInvoice(context.Background(), testutil.ManagerActor(), order.ID)
		require.NoError(t, err)
		return f, invoice
	}

	t.Run("overdue with a future due date is demoted", func(t *testing.T) {
		f, invoice := setup(t)
		ctx := context.Background()
		past := f.clock.Now().Add(-shared.Days(2))
		_, err := f.invoiceSvc.EditInvoice(ctx, testutil.SuperAdminActor(), invoice.ID, EditInvoiceInput{
			Amount: invoice.Amount, Status: billing.InvoiceStatusSent, DateCreated: invoice.DateCreated, DateDue: past,
		})
		require.NoError(t, err)

		result, err := f.invoiceSvc.EditInvoice(ctx, testutil.SuperAdminActor(), invoice.ID, EditInvoiceInput{
			Amount: invoice.Amount, Status: billing.InvoiceStatusOverdue, DateCreated: invoice.DateCreated, DateDue: f.clock.Now().Add(shared.Days(5)),
		})
		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatusPending, result.Invoice.Status)
		assert.Empty(t, result.Warning)
	})

	t.Run("records a diff of the changes", func(t *testing.T) {
		f, invoice := setup(t)
		result, err := f.invoiceSvc.EditInvoice(context.Background(), testutil.SuperAdminActor(), invoice.ID, EditInvoiceInput{
			Amount: decimal.RequireFromString("1250.5"), Status: billing.InvoiceStatusSent, DateCreated: invoice.DateCreated, DateDue: invoice.DateDue,
		})
		require.NoError(t, err)
		require.Len(t, result.Changes, 2)

		updated := f.entries(t, audit.ActionInvoiceUpdated)
		require.Len(t, updated, 1)
		assert.Equal(t, "Updated invoice "+invoice.Code+": amount: 1000.00 -> 1250.50; status: PENDING -> SENT", updated[0].Description)
	})

	t.Run("negative amount is rejected without mutation", func(t *testing.T) {
		f, invoice := setup(t)
		_, err := f.invoiceSvc.EditInvoice(context.Background(), testutil.SuperAdminActor(), invoice.ID, EditInvoiceInput{
			Amount: decimal.NewFromInt(-1), Status: billing.InvoiceStatusPaid, DateCreated: invoice.DateCreated, DateDue: invoice.DateDue,
		})
		require.ErrorIs(t, err, shared.ErrValidation)

		stored, err := f.invoices.FindByID(context.Background(), invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatusPending, stored.Status)
		assert.Empty(t, f.entries(t, audit.ActionInvoiceUpdated))
	})

	t.Run("manager is refused", func(t *testing.T) {
		f, invoice := setup(t)
		_, err := f.invoiceSvc.EditInvoice(context.Background(), testutil.ManagerActor(), invoice.ID, EditInvoiceInput{
			Amount: invoice.Amount, Status: billing.InvoiceStatusPaid, DateCreated: invoice.DateCreated, DateDue: invoice.DateDue,
		})
		require.ErrorIs(t, err, shared.ErrForbidden)
	})
}

func TestInvoiceService_DeleteInvoice(t *testing.T) {
	t.Run("linked invoice releases its order", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		order := f.order(t, f.client(t, "Acme"), "1000")
		invoice, err := f.invoiceSvc.CreateInvoice(ctx, testutil.ManagerActor(), order.ID)
		require.NoError(t, err)

		require.NoError(t, f.invoiceSvc.DeleteInvoice(ctx, testutil.SuperAdminActor(), invoice.ID))

		assert.Equal(t, billing.OrderStatusPending, f.reloadOrder(t, order).Status)
		_, err = f.invoices.FindByID(ctx, invoice.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		deleted := f.entries(t, audit.ActionInvoiceDeleted)
		require.Len(t, deleted, 1)
		assert.Equal(t, "Deleted invoice "+invoice.Code+" (amount 1000.00, status PENDING, client Acme, order "+order.Code+")",
			deleted[0].Description)
	})

	t.Run("unlinked invoice leaves orders alone", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		client := f.client(t, "Acme")
		order := f.order(t, client, "1000")
		before := f.reloadOrder(t, order)
		invoice := f.unlinkedInvoice(t, client, "INV-20250615-200", billing.InvoiceStatusSent, f.clock.Now().Add(shared.Days(10)))

		require.NoError(t, f.invoiceSvc.DeleteInvoice(ctx, testutil.SuperAdminActor(), invoice.ID))

		after := f.reloadOrder(t, order)
		assert.Equal(t, before.Status, after.Status)
		assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))
		deleted := f.entries(t, audit.ActionInvoiceDeleted)
		require.Len(t, deleted, 1)
		assert.True(t, strings.HasSuffix(deleted[0].Description, "client Acme, no linked order)"))
	})

	t.Run("missing invoice", func(t *testing.T) {
		f := newFixture(t)
		err := f.invoiceSvc.DeleteInvoice(context.Background(), testutil.SuperAdminActor(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("manager is refused", func(t *testing.T) {
		f := newFixture(t)
		invoice := f.unlinkedInvoice(t, f.client(t, "Acme"), "INV-20250615-200", billing.InvoiceStatusSent, f.clock.Now())

		err := f.invoiceSvc.DeleteInvoice(context.Background(), testutil.ManagerActor(), invoice.ID)
		require.ErrorIs(t, err, shared.ErrForbidden)
		assert.Equal(t, 1, f.invoiceCount(t))
	})
}

func TestInvoiceService_ReconcileOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.client(t, "Acme")
	now := f.clock.Now()
	yesterday := now.Add(-shared.Day)

	pending := f.unlinkedInvoice(t, client, "INV-20250615-101", billing.InvoiceStatusPending, yesterday)
	sent := f.unlinkedInvoice(t, client, "INV-20250615-102", billing.InvoiceStatusSent, yesterday)
	paid := f.unlinkedInvoice(t, client, "INV-20250615-103", billing.InvoiceStatusPaid, yesterday)
	future := f.unlinkedInvoice(t, client, "INV-20250615-104", billing.InvoiceStatusPending, now.Add(shared.Day))

	flipped, err := f.invoiceSvc.ReconcileOverdue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, flipped)

	expected := map[uuid.UUID]billing.InvoiceStatus{
		pending.ID: billing.InvoiceStatusOverdue,
		sent.ID:    billing.InvoiceStatusOverdue,
		paid.ID:    billing.InvoiceStatusPaid,
		future.ID:  billing.InvoiceStatusPending,
	}
	for id, status := range expected {
		stored, err := f.invoices.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, status, stored.Status, stored.Code)
	}

	warnings := f.entries(t, audit.ActionInvoiceOverdue)
	require.Len(t, warnings, 2)
	for _, w := range warnings {
		assert.Equal(t, audit.StatusWarning, w.Status)
		assert.Equal(t, identity.SystemActorReconciler, w.ActorID)
	}

	again, err := f.invoiceSvc.ReconcileOverdue(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestInvoiceService_Reads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.client(t, "Acme")
	order := f.order(t, acme, "1000")
	invoice, err := f.invoiceSvc.CreateInvoice(ctx, testutil.ManagerActor(), order.ID)
	require.NoError(t, err)
	f.unlinkedInvoice(t, acme, "INV-20240101-999", billing.InvoiceStatusPaid, f.clock.Now())

	f.clock.Advance(shared.Days(31))

	t.Run("list reconciles before reading", func(t *testing.T) {
		invoices, total, err := f.invoiceSvc.ListInvoices(ctx, billing.InvoiceFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		byCode := map[string]billing.InvoiceStatus{}
		for _, inv := range invoices {
			byCode[inv.Code] = inv.Status
		}
		assert.Equal(t, billing.InvoiceStatusOverdue, byCode[invoice.Code])
		assert.Equal(t, billing.InvoiceStatusPaid, byCode["INV-20240101-999"])
	})

	t.Run("search by code substring", func(t *testing.T) {
		invoices, total, err := f.invoiceSvc.ListInvoices(ctx, billing.InvoiceFilter{Filter: shared.Filter{Search: "20240101"}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "INV-20240101-999", invoices[0].Code)
	})

	t.Run("get returns client and order", func(t *testing.T) {
		detail, err := f.invoiceSvc.GetInvoice(ctx, invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatusOverdue, detail.Invoice.Status)
		require.NotNil(t, detail.Client)
		assert.Equal(t, "Acme", detail.Client.Name)
		require.NotNil(t, detail.Order)
		assert.Equal(t, order.Code, detail.Order.Code)
	})

	t.Run("get missing invoice", func(t *testing.T) {
		_, err := f.invoiceSvc.GetInvoice(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
