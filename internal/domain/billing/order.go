package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the billing state of an order
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusInvoiced OrderStatus = "INVOICED"
)

// IsValid checks if the status is valid
func (s OrderStatus) IsValid() bool {
	return s == OrderStatusPending || s == OrderStatusInvoiced
}

// String returns the string representation
func (s OrderStatus) String() string {
	return string(s)
}

// Order is a client request for goods or services prior to billing
type Order struct {
	shared.BaseEntity
	Code        string
	ClientID    uuid.UUID
	Description string
	Amount      decimal.Decimal
	DatePlaced  time.Time
	Status      OrderStatus
}

// NewOrder creates a PENDING order placed at the given time
func NewOrder(code string, clientID uuid.UUID, description string, amount decimal.Decimal, placed time.Time) (*Order, error) {
	var fields []shared.FieldError
	if strings.TrimSpace(code) == "" {
		fields = append(fields, shared.FieldError{Field: "code", Message: "required"})
	}
	if clientID == uuid.Nil {
		fields = append(fields, shared.FieldError{Field: "client_id", Message: "required"})
	}
	if !amount.IsPositive() {
		fields = append(fields, shared.FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	if len(description) > 200 {
		fields = append(fields, shared.FieldError{Field: "description", Message: "max length 200"})
	}
	if placed.IsZero() {
		fields = append(fields, shared.FieldError{Field: "date_placed", Message: "required"})
	}
	if len(fields) > 0 {
		return nil, shared.NewValidationError("Invalid order", fields...)
	}

	return &Order{
		BaseEntity:  shared.NewBaseEntity(placed),
		Code:        code,
		ClientID:    clientID,
		Description: strings.TrimSpace(description),
		Amount:      amount.Round(2),
		DatePlaced:  placed,
		Status:      OrderStatusPending,
	}, nil
}

// IsPending returns true while the order can still be invoiced
func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}

// MarkInvoiced records that an invoice now references this order
func (o *Order) MarkInvoiced(now time.Time) error {
	if !o.IsPending() {
		return shared.NewConflictError(fmt.Sprintf("order %s is already %s", o.Code, o.Status))
	}
	o.Status = OrderStatusInvoiced
	o.Touch(now)
	return nil
}

// RevertToPending releases the order after its invoice was deleted
func (o *Order) RevertToPending(now time.Time) {
	o.Status = OrderStatusPending
	o.Touch(now)
}
