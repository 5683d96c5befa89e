package report

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdesk/backend/internal/domain/billing"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func order(amount string, placed time.Time, status billing.OrderStatus) billing.Order {
	return billing.Order{
		BaseEntity: shared.BaseEntity{ID: uuid.New()},
		Amount:     dec(amount),
		DatePlaced: placed,
		Status:     status,
	}
}

func invoice(client uuid.UUID, amount string, created time.Time, status billing.InvoiceStatus) billing.Invoice {
	return billing.Invoice{
		BaseEntity:  shared.BaseEntity{ID: uuid.New()},
		ClientID:    client,
		Amount:      dec(amount),
		Status:      status,
		DateCreated: created,
		DateDue:     created.Add(30 * 24 * time.Hour),
	}
}

func client(name string) billing.Client {
	return billing.Client{BaseEntity: shared.BaseEntity{ID: uuid.New()}, Name: name}
}

func TestComputeDashboard_Empty(t *testing.T) {
	d := ComputeDashboard(now, nil, nil, nil, DefaultOptions())

	assert.Equal(t, int64(0), d.OrdersYTD.Count)
	assert.True(t, d.OrdersYTD.Amount.IsZero())
	assert.True(t, d.OrdersYTD.AmountGrowth.IsZero())
	assert.True(t, d.OrdersMTD.AmountDelta.IsZero())
	for _, m := range d.MonthlyInvoiced {
		assert.True(t, m.IsZero())
	}
	assert.True(t, d.SplitYTD[0].IsZero())
	assert.True(t, d.SplitYTD[1].Equal(decimal.NewFromInt(1)))
	assert.Empty(t, d.TopClients)
	require.Len(t, d.Activity, 5)
	for _, day := range d.Activity {
		assert.Zero(t, day.Orders)
		assert.Zero(t, day.Invoices)
	}
	assert.Zero(t, d.Totals.Invoices)
	assert.True(t, d.Totals.Revenue.IsZero())
}

func TestComputeDashboard_OrderPeriods(t *testing.T) {
	orders := []billing.Order{
		order("100", time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), billing.OrderStatusPending),
		order("200", time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), billing.OrderStatusInvoiced),
		order("50", time.Date(2025, 3, 15, 11, 0, 0, 0, time.UTC), billing.OrderStatusPending),
		// prior year, inside the equivalent span
		order("100", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), billing.OrderStatusInvoiced),
		// prior year, after the equivalent span
		order("999", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), billing.OrderStatusInvoiced),
		// prior month, inside the equivalent span
		order("25", time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), billing.OrderStatusPending),
		// prior month, after the equivalent span
		order("75", time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC), billing.OrderStatusPending),
	}

	d := ComputeDashboard(now, orders, nil, nil, DefaultOptions())

	// 2025 ytd includes February's orders too
	assert.Equal(t, int64(5), d.OrdersYTD.Count)
	assert.True(t, d.OrdersYTD.Amount.Equal(dec("450")))
	assert.Equal(t, int64(1), d.OrdersYTD.PriorCount)
	assert.True(t, d.OrdersYTD.PriorAmount.Equal(dec("100")))
	assert.True(t, d.OrdersYTD.AmountDelta.Equal(dec("350")))
	assert.True(t, d.OrdersYTD.AmountGrowth.Equal(dec("350")))

	assert.Equal(t, int64(2), d.OrdersMTD.Count)
	assert.True(t, d.OrdersMTD.Amount.Equal(dec("250")))
	assert.Equal(t, int64(1), d.OrdersMTD.PriorCount)
	assert.True(t, d.OrdersMTD.PriorAmount.Equal(dec("25")))
	assert.True(t, d.OrdersMTD.AmountGrowth.Equal(dec("900")))

	assert.True(t, d.SplitMTD[0].Equal(dec("200")))
	assert.True(t, d.SplitMTD[1].Equal(dec("50")))
	assert.True(t, d.SplitYTD[0].Equal(dec("200")))
	assert.True(t, d.SplitYTD[1].Equal(dec("250")))
}

func TestMonthlyInvoiced(t *testing.T) {
	c := uuid.New()
	invoices := []billing.Invoice{
		invoice(c, "10", time.Date(2025, 1, 31, 23, 0, 0, 0, time.UTC), billing.InvoiceStatusPaid),
		invoice(c, "5", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), billing.InvoiceStatusPending),
		invoice(c, "7", time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), billing.InvoiceStatusPending),
		invoice(c, "1000", time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), billing.InvoiceStatusPending),
	}

	months := MonthlyInvoiced(2025, invoices)

	assert.True(t, months[0].Equal(dec("15")))
	assert.True(t, months[11].Equal(dec("7")))
	assert.True(t, months[5].IsZero())
}

func TestTopClients(t *testing.T) {
	acme, beta, gamma, delta, echo := client("Acme"), client("Beta"), client("Gamma"), client("Delta"), client("Echo")
	clients := []billing.Client{acme, beta, gamma, delta, echo}
	created := now.Add(-time.Hour)

	invoices := []billing.Invoice{
		invoice(acme.ID, "600", created, billing.InvoiceStatusPaid),
		invoice(acme.ID, "400", created, billing.InvoiceStatusPending),
		invoice(beta.ID, "500", created, billing.InvoiceStatusSent),
		invoice(gamma.ID, "250", created, billing.InvoiceStatusOverdue),
		invoice(delta.ID, "250", created, billing.InvoiceStatusPending),
		invoice(echo.ID, "10", created, billing.InvoiceStatusPending),
	}

	ranks := TopClients(invoices, clients, 4)

	require.Len(t, ranks, 4)
	assert.Equal(t, "Acme", ranks[0].Name)
	assert.Equal(t, 100, ranks[0].Percent)
	assert.Equal(t, "Beta", ranks[1].Name)
	assert.Equal(t, 50, ranks[1].Percent)
	// equal amounts fall back to name order
	assert.Equal(t, "Delta", ranks[2].Name)
	assert.Equal(t, "Gamma", ranks[3].Name)
	assert.Equal(t, 25, ranks[3].Percent)
}

func TestTopClients_AllZero(t *testing.T) {
	acme := client("Acme")
	ranks := TopClients([]billing.Invoice{invoice(acme.ID, "0", now, billing.InvoiceStatusPaid)}, []billing.Client{acme}, 4)

	require.Len(t, ranks, 1)
	assert.Equal(t, 0, ranks[0].Percent)
}

func TestTrailingActivity(t *testing.T) {
	c := uuid.New()
	orders := []billing.Order{
		order("1", now, billing.OrderStatusPending),
		order("1", now.Add(-11*time.Hour), billing.OrderStatusPending), // today 01:00
		order("1", now.Add(-13*time.Hour), billing.OrderStatusPending), // yesterday 23:00
		order("1", now.Add(-4*24*time.Hour), billing.OrderStatusPending),
		order("1", now.Add(-5*24*time.Hour), billing.OrderStatusPending), // outside window
		order("1", now.Add(24*time.Hour), billing.OrderStatusPending),    // future
	}
	invoices := []billing.Invoice{
		invoice(c, "1", now.Add(-2*24*time.Hour), billing.InvoiceStatusPending),
	}

	activity := TrailingActivity(now, orders, invoices, 5)

	require.Len(t, activity, 5)
	assert.Equal(t, "2025-03-11", activity[0].Date)
	assert.Equal(t, "Tue", activity[0].Label)
	assert.Equal(t, "2025-03-15", activity[4].Date)
	assert.Equal(t, []int{1, 0, 0, 1, 2}, []int{activity[0].Orders, activity[1].Orders, activity[2].Orders, activity[3].Orders, activity[4].Orders})
	assert.Equal(t, 1, activity[2].Invoices)
}

func TestComputeTotals(t *testing.T) {
	c := uuid.New()
	totals := ComputeTotals([]billing.Invoice{
		invoice(c, "100", now, billing.InvoiceStatusPaid),
		invoice(c, "50", now, billing.InvoiceStatusOverdue),
		invoice(c, "25", now, billing.InvoiceStatusSent),
		invoice(c, "5", now, billing.InvoiceStatusPending),
	})

	assert.Equal(t, int64(4), totals.Invoices)
	assert.True(t, totals.Revenue.Equal(dec("180")))
	assert.Equal(t, int64(1), totals.Paid)
	assert.Equal(t, int64(3), totals.Unpaid)
	assert.Equal(t, int64(1), totals.Overdue)
}

func TestPriorMonthToDate_ClampsToMonthEnd(t *testing.T) {
	march31 := time.Date(2025, 3, 31, 18, 0, 0, 0, time.UTC)

	w := PriorMonthToDate(march31)

	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), w.From)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond), w.To)
}
