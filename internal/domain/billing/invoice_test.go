package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newPendingOrder(t *testing.T, amount string) *Order {
	t.Helper()
	order, err := NewOrder("ORD-1", uuid.New(), "Web Design Service", decimal.RequireFromString(amount), testNow.Add(-time.Hour))
	require.NoError(t, err)
	return order
}

func TestNewInvoiceForOrder(t *testing.T) {
	t.Run("inherits client and amount and marks order invoiced", func(t *testing.T) {
		order := newPendingOrder(t, "1000")

		inv, err := NewInvoiceForOrder(order, "INV-20250615-123", InvoiceStatusPending, testNow, shared.Days(30))

		require.NoError(t, err)
		assert.Equal(t, order.ClientID, inv.ClientID)
		assert.True(t, order.Amount.Equal(inv.Amount))
		assert.True(t, inv.IsLinkedTo(order.ID))
		assert.Equal(t, InvoiceStatusPending, inv.Status)
		assert.Equal(t, testNow, inv.DateCreated)
		assert.Equal(t, testNow.Add(30*24*time.Hour), inv.DateDue)
		assert.Equal(t, OrderStatusInvoiced, order.Status)
	})

	t.Run("invoiced order is a conflict", func(t *testing.T) {
		order := newPendingOrder(t, "1000")
		require.NoError(t, order.MarkInvoiced(testNow))

		_, err := NewInvoiceForOrder(order, "INV-20250615-124", InvoiceStatusPending, testNow, shared.Days(30))

		assert.True(t, shared.IsCode(err, shared.CodeConflict))
	})

	t.Run("initial status must be open", func(t *testing.T) {
		order := newPendingOrder(t, "1000")

		_, err := NewInvoiceForOrder(order, "INV-20250615-125", InvoiceStatusPaid, testNow, shared.Days(30))

		assert.True(t, shared.IsCode(err, shared.CodeValidation))
		assert.Equal(t, OrderStatusPending, order.Status)
	})
}

func TestResolveStatus(t *testing.T) {
	past := testNow.Add(-24 * time.Hour)
	future := testNow.Add(24 * time.Hour)

	tests := []struct {
		name        string
		requested   InvoiceStatus
		due         time.Time
		want        InvoiceStatus
		wantWarning bool
	}{
		{"paid with past due stays paid", InvoiceStatusPaid, past, InvoiceStatusPaid, false},
		{"paid with future due", InvoiceStatusPaid, future, InvoiceStatusPaid, false},
		{"pending with past due forced overdue", InvoiceStatusPending, past, InvoiceStatusOverdue, true},
		{"sent with past due forced overdue", InvoiceStatusSent, past, InvoiceStatusOverdue, true},
		{"overdue with past due stays overdue", InvoiceStatusOverdue, past, InvoiceStatusOverdue, true},
		{"overdue with future due demoted", InvoiceStatusOverdue, future, InvoiceStatusPending, false},
		{"overdue due exactly now demoted", InvoiceStatusOverdue, testNow, InvoiceStatusPending, false},
		{"sent with future due accepted", InvoiceStatusSent, future, InvoiceStatusSent, false},
		{"pending with future due accepted", InvoiceStatusPending, future, InvoiceStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warning := ResolveStatus(tt.requested, tt.due, testNow)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantWarning, warning != "")
		})
	}
}

func TestInvoice_ApplyEdit(t *testing.T) {
	newInvoice := func(t *testing.T) *Invoice {
		inv, err := NewInvoiceForOrder(newPendingOrder(t, "1000"), "INV-20250615-200", InvoiceStatusPending, testNow, shared.Days(30))
		require.NoError(t, err)
		return inv
	}

	t.Run("records a diff of changed fields", func(t *testing.T) {
		inv := newInvoice(t)

		outcome, err := inv.ApplyEdit(InvoiceEdit{
			Amount:      decimal.RequireFromString("1200.5"),
			Status:      InvoiceStatusSent,
			DateCreated: inv.DateCreated,
			DateDue:     inv.DateDue,
		}, testNow)

		require.NoError(t, err)
		assert.Empty(t, outcome.Warning)
		assert.Equal(t, "amount: 1000.00 -> 1200.50; status: PENDING -> SENT", outcome.Describe())
		assert.Equal(t, InvoiceStatusSent, inv.Status)
	})

	t.Run("past due date forces overdue with warning", func(t *testing.T) {
		inv := newInvoice(t)
		yesterday := testNow.Add(-24 * time.Hour)

		outcome, err := inv.ApplyEdit(InvoiceEdit{
			Amount:      inv.Amount,
			Status:      InvoiceStatusPending,
			DateCreated: inv.DateCreated,
			DateDue:     yesterday,
		}, testNow)

		require.NoError(t, err)
		assert.Equal(t, OverdueWarning, outcome.Warning)
		assert.Equal(t, InvoiceStatusOverdue, inv.Status)
		assert.Len(t, outcome.Changes, 2)
	})

	t.Run("negative amount is rejected without mutation", func(t *testing.T) {
		inv := newInvoice(t)
		before := *inv

		_, err := inv.ApplyEdit(InvoiceEdit{
			Amount:      decimal.NewFromInt(-1),
			Status:      InvoiceStatusPaid,
			DateCreated: inv.DateCreated,
			DateDue:     inv.DateDue,
		}, testNow)

		require.Error(t, err)
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "amount", de.Fields[0].Field)
		assert.Equal(t, before, *inv)
	})

	t.Run("zero amount is allowed", func(t *testing.T) {
		inv := newInvoice(t)

		_, err := inv.ApplyEdit(InvoiceEdit{
			Amount:      decimal.Zero,
			Status:      InvoiceStatusPending,
			DateCreated: inv.DateCreated,
			DateDue:     inv.DateDue,
		}, testNow)

		assert.NoError(t, err)
	})

	t.Run("missing dates are rejected", func(t *testing.T) {
		inv := newInvoice(t)

		_, err := inv.ApplyEdit(InvoiceEdit{Amount: inv.Amount, Status: InvoiceStatusPending}, testNow)

		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})

	t.Run("no changes", func(t *testing.T) {
		inv := newInvoice(t)

		outcome, err := inv.ApplyEdit(InvoiceEdit{
			Amount:      inv.Amount,
			Status:      inv.Status,
			DateCreated: inv.DateCreated,
			DateDue:     inv.DateDue,
		}, testNow)

		require.NoError(t, err)
		assert.Equal(t, "no changes", outcome.Describe())
	})
}

func TestInvoice_MarkOverdueIfDue(t *testing.T) {
	inv := &Invoice{Status: InvoiceStatusSent, DateDue: testNow.Add(-time.Minute)}
	assert.True(t, inv.MarkOverdueIfDue(testNow))
	assert.Equal(t, InvoiceStatusOverdue, inv.Status)
	assert.False(t, inv.MarkOverdueIfDue(testNow))

	paid := &Invoice{Status: InvoiceStatusPaid, DateDue: testNow.Add(-365 * 24 * time.Hour)}
	assert.False(t, paid.MarkOverdueIfDue(testNow))
	assert.Equal(t, InvoiceStatusPaid, paid.Status)

	notYet := &Invoice{Status: InvoiceStatusPending, DateDue: testNow}
	assert.False(t, notYet.MarkOverdueIfDue(testNow))
}

func TestInvoice_DemoteIfNotDue(t *testing.T) {
	inv := &Invoice{Status: InvoiceStatusOverdue, DateDue: testNow.Add(time.Hour)}
	assert.True(t, inv.DemoteIfNotDue(testNow))
	assert.Equal(t, InvoiceStatusPending, inv.Status)

	stillDue := &Invoice{Status: InvoiceStatusOverdue, DateDue: testNow.Add(-time.Hour)}
	assert.False(t, stillDue.DemoteIfNotDue(testNow))
}

func TestParseInvoiceStatus(t *testing.T) {
	s, ok := ParseInvoiceStatus(" paid ")
	assert.True(t, ok)
	assert.Equal(t, InvoiceStatusPaid, s)

	_, ok = ParseInvoiceStatus("Draft")
	assert.False(t, ok)
}
