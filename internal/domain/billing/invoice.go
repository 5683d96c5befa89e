package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusSent    InvoiceStatus = "SENT"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
)

// AllInvoiceStatuses lists every status in display order
var AllInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusPending,
	InvoiceStatusSent,
	InvoiceStatusPaid,
	InvoiceStatusOverdue,
}

// IsValid checks if the status is valid
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

// String returns the string representation
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsOpen returns true for statuses subject to overdue reconciliation
func (s InvoiceStatus) IsOpen() bool {
	return s == InvoiceStatusPending || s == InvoiceStatusSent
}

// IsUnpaid returns true for every status other than PAID
func (s InvoiceStatus) IsUnpaid() bool {
	return s != InvoiceStatusPaid
}

// ParseInvoiceStatus is case-insensitive
func ParseInvoiceStatus(s string) (InvoiceStatus, bool) {
	status := InvoiceStatus(strings.ToUpper(strings.TrimSpace(s)))
	return status, status.IsValid()
}

// OverdueWarning is returned to the caller when an edit was forced to OVERDUE
const OverdueWarning = "due date is in the past; invoice status was set to OVERDUE"

// Invoice is a billing document, normally derived from an Order
type Invoice struct {
	shared.BaseEntity
	Code        string
	OrderID     *uuid.UUID
	ClientID    uuid.UUID
	Amount      decimal.Decimal
	Status      InvoiceStatus
	DateCreated time.Time
	DateDue     time.Time
}

// NewInvoiceForOrder raises an invoice for a PENDING order and marks the order INVOICED.
// The invoice inherits the order's client and amount and falls due after dueIn.
func NewInvoiceForOrder(order *Order, code string, initial InvoiceStatus, now time.Time, dueIn time.Duration) (*Invoice, error) {
	if strings.TrimSpace(code) == "" {
		return nil, shared.NewValidationError("Invoice code is required",
			shared.FieldError{Field: "code", Message: "required"})
	}
	if !initial.IsOpen() {
		return nil, shared.NewValidationError("Invoice must start PENDING or SENT",
			shared.FieldError{Field: "status", Message: "must be PENDING or SENT"})
	}
	if err := order.MarkInvoiced(now); err != nil {
		return nil, err
	}

	orderID := order.ID
	return &Invoice{
		BaseEntity:  shared.NewBaseEntity(now),
		Code:        code,
		OrderID:     &orderID,
		ClientID:    order.ClientID,
		Amount:      order.Amount,
		Status:      initial,
		DateCreated: now,
		DateDue:     now.Add(dueIn),
	}, nil
}

// IsLinkedTo reports whether the invoice references the order
func (i *Invoice) IsLinkedTo(orderID uuid.UUID) bool {
	return i.OrderID != nil && *i.OrderID == orderID
}

// MarkOverdueIfDue flips an open invoice whose due date has elapsed to OVERDUE.
// Returns true if the status changed.
func (i *Invoice) MarkOverdueIfDue(now time.Time) bool {
	if !i.Status.IsOpen() || !i.DateDue.Before(now) {
		return false
	}
	i.Status = InvoiceStatusOverdue
	i.Touch(now)
	return true
}

// DemoteIfNotDue returns an OVERDUE invoice whose due date lies in the future to PENDING.
// Returns true if the status changed.
func (i *Invoice) DemoteIfNotDue(now time.Time) bool {
	if i.Status != InvoiceStatusOverdue || !i.DateDue.After(now) {
		return false
	}
	i.Status = InvoiceStatusPending
	i.Touch(now)
	return true
}

// InvoiceEdit carries the editable fields of an invoice
type InvoiceEdit struct {
	Amount      decimal.Decimal
	Status      InvoiceStatus
	DateCreated time.Time
	DateDue     time.Time
}

// FieldChange describes one modified field for the audit trail
type FieldChange struct {
	Field string
	From  string
	To    string
}

// String renders the change as "field: from -> to"
func (c FieldChange) String() string {
	return fmt.Sprintf("%s: %s -> %s", c.Field, c.From, c.To)
}

// EditOutcome reports what an edit changed
type EditOutcome struct {
	Changes []FieldChange
	// Warning is non-empty when the requested status was overridden to OVERDUE
	Warning string
}

// Describe renders the changes as a single human-readable line
func (o EditOutcome) Describe() string {
	if len(o.Changes) == 0 {
		return "no changes"
	}
	parts := make([]string, len(o.Changes))
	for i, c := range o.Changes {
		parts[i] = c.String()
	}
	return strings.Join(parts, "; ")
}

// ResolveStatus applies the overdue reconciliation rule to a requested status:
//  1. PAID is accepted unconditionally
//  2. a due date before now forces OVERDUE and yields a warning
//  3. OVERDUE requested for a due date not in the past is demoted to PENDING
//  4. anything else is accepted as given
func ResolveStatus(requested InvoiceStatus, dateDue, now time.Time) (InvoiceStatus, string) {
	switch {
	case requested == InvoiceStatusPaid:
		return InvoiceStatusPaid, ""
	case dateDue.Before(now):
		return InvoiceStatusOverdue, OverdueWarning
	case requested == InvoiceStatusOverdue:
		return InvoiceStatusPending, ""
	default:
		return requested, ""
	}
}

// ApplyEdit validates and applies an edit, reconciling the status against now
func (i *Invoice) ApplyEdit(edit InvoiceEdit, now time.Time) (EditOutcome, error) {
	var fields []shared.FieldError
	if edit.Amount.IsNegative() {
		fields = append(fields, shared.FieldError{Field: "amount", Message: "must be greater than or equal to 0"})
	}
	if !edit.Status.IsValid() {
		fields = append(fields, shared.FieldError{Field: "status", Message: "must be one of PENDING, SENT, PAID, OVERDUE"})
	}
	if edit.DateCreated.IsZero() {
		fields = append(fields, shared.FieldError{Field: "date_created", Message: "required"})
	}
	if edit.DateDue.IsZero() {
		fields = append(fields, shared.FieldError{Field: "date_due", Message: "required"})
	}
	if len(fields) > 0 {
		return EditOutcome{}, shared.NewValidationError("Invalid invoice edit", fields...)
	}

	status, warning := ResolveStatus(edit.Status, edit.DateDue, now)
	amount := edit.Amount.Round(2)

	var changes []FieldChange
	if !i.Amount.Equal(amount) {
		changes = append(changes, FieldChange{Field: "amount", From: i.Amount.StringFixed(2), To: amount.StringFixed(2)})
	}
	if i.Status != status {
		changes = append(changes, FieldChange{Field: "status", From: i.Status.String(), To: status.String()})
	}
	if !i.DateCreated.Equal(edit.DateCreated) {
		changes = append(changes, FieldChange{Field: "date_created", From: formatDate(i.DateCreated), To: formatDate(edit.DateCreated)})
	}
	if !i.DateDue.Equal(edit.DateDue) {
		changes = append(changes, FieldChange{Field: "date_due", From: formatDate(i.DateDue), To: formatDate(edit.DateDue)})
	}

	i.Amount = amount
	i.Status = status
	i.DateCreated = edit.DateCreated
	i.DateDue = edit.DateDue
	i.Touch(now)

	return EditOutcome{Changes: changes, Warning: warning}, nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}
