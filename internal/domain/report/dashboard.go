package report

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdesk/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// Options tunes the dashboard computation
type Options struct {
	TopClients int
	TrendDays  int
}

// DefaultOptions returns top 4 clients and a 5 day trend
func DefaultOptions() Options {
	return Options{TopClients: 4, TrendDays: 5}
}

// PeriodComparison pairs a period's count and sum with the prior equivalent period
type PeriodComparison struct {
	Count        int64           `json:"count"`
	PriorCount   int64           `json:"prior_count"`
	CountDelta   int64           `json:"count_delta"`
	CountGrowth  decimal.Decimal `json:"count_growth"`
	Amount       decimal.Decimal `json:"amount"`
	PriorAmount  decimal.Decimal `json:"prior_amount"`
	AmountDelta  decimal.Decimal `json:"amount_delta"`
	AmountGrowth decimal.Decimal `json:"amount_growth"`
}

// ClientRank is one entry of the top clients table
type ClientRank struct {
	ClientID uuid.UUID       `json:"client_id"`
	Name     string          `json:"name"`
	Company  string          `json:"company"`
	Amount   decimal.Decimal `json:"amount"`
	Percent  int             `json:"percent"`
}

// DayActivity counts records created on one calendar day
type DayActivity struct {
	Date     string `json:"date"`
	Label    string `json:"label"`
	Orders   int    `json:"orders"`
	Invoices int    `json:"invoices"`
}

// Totals are the all-time invoice figures
type Totals struct {
	Invoices int64           `json:"invoices"`
	Revenue  decimal.Decimal `json:"revenue"`
	Paid     int64           `json:"paid"`
	Unpaid   int64           `json:"unpaid"`
	Overdue  int64           `json:"overdue"`
}

// Dashboard is a point-in-time KPI snapshot
type Dashboard struct {
	GeneratedAt     time.Time           `json:"generated_at"`
	OrdersYTD       PeriodComparison    `json:"orders_ytd"`
	OrdersMTD       PeriodComparison    `json:"orders_mtd"`
	PaidMTD         PeriodComparison    `json:"paid_mtd"`
	MonthlyInvoiced [12]decimal.Decimal `json:"monthly_invoiced"`
	SplitYTD        [2]decimal.Decimal  `json:"split_ytd"`
	SplitMTD        [2]decimal.Decimal  `json:"split_mtd"`
	TopClients      []ClientRank        `json:"top_clients"`
	Activity        []DayActivity       `json:"activity"`
	Totals          Totals              `json:"totals"`
}

// ComputeDashboard aggregates the records as seen at now
func ComputeDashboard(now time.Time, orders []billing.Order, invoices []billing.Invoice, clients []billing.Client, opts Options) *Dashboard {
	if opts.TopClients <= 0 {
		opts.TopClients = DefaultOptions().TopClients
	}
	if opts.TrendDays <= 0 {
		opts.TrendDays = DefaultOptions().TrendDays
	}

	d := &Dashboard{
		GeneratedAt: now,
		OrdersYTD:   compareOrders(orders, YearToDate(now), PriorYearToDate(now)),
		OrdersMTD:   compareOrders(orders, MonthToDate(now), PriorMonthToDate(now)),
		PaidMTD:     comparePaid(invoices, MonthToDate(now), PriorMonthToDate(now)),
		SplitYTD:    SplitOrders(orders, YearToDate(now)),
		SplitMTD:    SplitOrders(orders, MonthToDate(now)),
		TopClients:  TopClients(invoices, clients, opts.TopClients),
		Activity:    TrailingActivity(now, orders, invoices, opts.TrendDays),
		Totals:      ComputeTotals(invoices),
	}
	d.MonthlyInvoiced = MonthlyInvoiced(now.Year(), invoices)
	return d
}

func compare(count, priorCount int64, amount, priorAmount decimal.Decimal) PeriodComparison {
	return PeriodComparison{
		Count:        count,
		PriorCount:   priorCount,
		CountDelta:   count - priorCount,
		CountGrowth:  GrowthInt(count, priorCount),
		Amount:       amount,
		PriorAmount:  priorAmount,
		AmountDelta:  amount.Sub(priorAmount),
		AmountGrowth: Growth(amount, priorAmount),
	}
}

func compareOrders(orders []billing.Order, current, prior Window) PeriodComparison {
	var count, priorCount int64
	amount, priorAmount := decimal.Zero, decimal.Zero
	for _, o := range orders {
		if current.Contains(o.DatePlaced) {
			count++
			amount = amount.Add(o.Amount)
		}
		if prior.Contains(o.DatePlaced) {
			priorCount++
			priorAmount = priorAmount.Add(o.Amount)
		}
	}
	return compare(count, priorCount, amount, priorAmount)
}

func comparePaid(invoices []billing.Invoice, current, prior Window) PeriodComparison {
	var count, priorCount int64
	amount, priorAmount := decimal.Zero, decimal.Zero
	for _, inv := range invoices {
		if inv.Status != billing.InvoiceStatusPaid {
			continue
		}
		if current.Contains(inv.DateCreated) {
			count++
			amount = amount.Add(inv.Amount)
		}
		if prior.Contains(inv.DateCreated) {
			priorCount++
			priorAmount = priorAmount.Add(inv.Amount)
		}
	}
	return compare(count, priorCount, amount, priorAmount)
}

// MonthlyInvoiced totals invoice amounts per month of the given year, 0 = January
func MonthlyInvoiced(year int, invoices []billing.Invoice) [12]decimal.Decimal {
	var months [12]decimal.Decimal
	for i := range months {
		months[i] = decimal.Zero
	}
	for _, inv := range invoices {
		if inv.DateCreated.Year() != year {
			continue
		}
		m := inv.DateCreated.Month() - 1
		months[m] = months[m].Add(inv.Amount)
	}
	return months
}

// SplitOrders returns [invoiced, pending] order amounts placed within w.
// When both are zero it returns the placeholder [0, 1].
func SplitOrders(orders []billing.Order, w Window) [2]decimal.Decimal {
	invoiced, pending := decimal.Zero, decimal.Zero
	for _, o := range orders {
		if !w.Contains(o.DatePlaced) {
			continue
		}
		switch o.Status {
		case billing.OrderStatusInvoiced:
			invoiced = invoiced.Add(o.Amount)
		case billing.OrderStatusPending:
			pending = pending.Add(o.Amount)
		}
	}
	if invoiced.IsZero() && pending.IsZero() {
		return [2]decimal.Decimal{decimal.Zero, decimal.NewFromInt(1)}
	}
	return [2]decimal.Decimal{invoiced, pending}
}

// TopClients ranks clients by total invoiced amount and keeps the first n.
// Equal amounts are ordered by client name, then client id.
func TopClients(invoices []billing.Invoice, clients []billing.Client, n int) []ClientRank {
	byID := make(map[uuid.UUID]billing.Client, len(clients))
	for _, c := range clients {
		byID[c.ID] = c
	}

	totals := make(map[uuid.UUID]decimal.Decimal)
	for _, inv := range invoices {
		sum, ok := totals[inv.ClientID]
		if !ok {
			sum = decimal.Zero
		}
		totals[inv.ClientID] = sum.Add(inv.Amount)
	}

	ranks := make([]ClientRank, 0, len(totals))
	for id, amount := range totals {
		rank := ClientRank{ClientID: id, Name: "Unknown client", Amount: amount}
		if c, ok := byID[id]; ok {
			rank.Name = c.Name
			rank.Company = c.Company
		}
		ranks = append(ranks, rank)
	}

	sort.Slice(ranks, func(i, j int) bool {
		if cmp := ranks[i].Amount.Cmp(ranks[j].Amount); cmp != 0 {
			return cmp > 0
		}
		if ranks[i].Name != ranks[j].Name {
			return ranks[i].Name < ranks[j].Name
		}
		return ranks[i].ClientID.String() < ranks[j].ClientID.String()
	})

	if len(ranks) > n {
		ranks = ranks[:n]
	}
	if len(ranks) == 0 {
		return ranks
	}

	top := ranks[0].Amount
	for i := range ranks {
		ranks[i].Percent = ShareOf(ranks[i].Amount, top)
	}
	return ranks
}

// TrailingActivity counts orders placed and invoices created on each of the
// last days calendar days, oldest first, ending with now's day
func TrailingActivity(now time.Time, orders []billing.Order, invoices []billing.Invoice, days int) []DayActivity {
	today := startOfDay(now)
	first := today.AddDate(0, 0, -(days - 1))

	activity := make([]DayActivity, days)
	for i := range activity {
		day := first.AddDate(0, 0, i)
		activity[i] = DayActivity{Date: day.Format("2006-01-02"), Label: day.Format("Mon")}
	}

	index := func(t time.Time) int {
		if t.Before(first) {
			return -1
		}
		i := int(startOfDay(t).Sub(first) / (24 * time.Hour))
		if i >= days {
			return -1
		}
		return i
	}

	for _, o := range orders {
		if i := index(o.DatePlaced.In(now.Location())); i >= 0 {
			activity[i].Orders++
		}
	}
	for _, inv := range invoices {
		if i := index(inv.DateCreated.In(now.Location())); i >= 0 {
			activity[i].Invoices++
		}
	}
	return activity
}

// ComputeTotals summarizes every invoice regardless of date
func ComputeTotals(invoices []billing.Invoice) Totals {
	totals := Totals{Revenue: decimal.Zero}
	for _, inv := range invoices {
		totals.Invoices++
		totals.Revenue = totals.Revenue.Add(inv.Amount)
		switch inv.Status {
		case billing.InvoiceStatusPaid:
			totals.Paid++
		case billing.InvoiceStatusOverdue:
			totals.Overdue++
			totals.Unpaid++
		default:
			totals.Unpaid++
		}
	}
	return totals
}
