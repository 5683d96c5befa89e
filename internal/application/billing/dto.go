package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdesk/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// EditInvoiceInput carries the editable invoice fields
type EditInvoiceInput struct {
	Amount      decimal.Decimal
	Status      billing.InvoiceStatus
	DateCreated time.Time
	DateDue     time.Time
}

// EditInvoiceResult is the outcome of an invoice edit
type EditInvoiceResult struct {
	Invoice *billing.Invoice
	Changes []billing.FieldChange
	// Warning is non-empty when the due date forced the status to OVERDUE
	Warning string
}

// InvoiceDetail is an invoice with its client and, when linked, its order
type InvoiceDetail struct {
	Invoice *billing.Invoice
	Client  *billing.Client
	Order   *billing.Order
}

// CreateClientInput carries the fields of a new client
type CreateClientInput struct {
	Name    string
	Email   string
	Company string
}

// ImportClientRow is one client read from an import file
type ImportClientRow struct {
	Line int
	CreateClientInput
}

// RejectedRow names an import line that failed validation
type RejectedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ImportClientsResult is the outcome of a bulk client import
type ImportClientsResult struct {
	Imported []billing.Client
	Rejected []RejectedRow
}

// CreateOrderInput carries the fields of a new order
type CreateOrderInput struct {
	ClientID    uuid.UUID
	Description string
	Amount      decimal.Decimal
}

// InvoiceConfig tunes invoice generation
type InvoiceConfig struct {
	DueDays       int
	CodeAttempts  int
	InitialStatus billing.InvoiceStatus
}

// DefaultInvoiceConfig returns a 30 day due period, 10 code attempts and PENDING invoices
func DefaultInvoiceConfig() InvoiceConfig {
	return InvoiceConfig{
		DueDays:       30,
		CodeAttempts:  10,
		InitialStatus: billing.InvoiceStatusPending,
	}
}

func (c InvoiceConfig) withDefaults() InvoiceConfig {
	d := DefaultInvoiceConfig()
	if c.DueDays <= 0 {
		c.DueDays = d.DueDays
	}
	if c.CodeAttempts <= 0 {
		c.CodeAttempts = d.CodeAttempts
	}
	if !c.InitialStatus.IsOpen() {
		c.InitialStatus = d.InitialStatus
	}
	return c
}
