package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdesk/backend/internal/domain/shared"
)

// ClientFilter extends shared.Filter with client-specific filters
type ClientFilter struct {
	shared.Filter
}

// OrderFilter extends shared.Filter with order-specific filters
type OrderFilter struct {
	shared.Filter
	ClientID *uuid.UUID
	Status   *OrderStatus
}

// InvoiceFilter extends shared.Filter with invoice-specific filters.
// Search matches a substring of the invoice code.
type InvoiceFilter struct {
	shared.Filter
	ClientID *uuid.UUID
	OrderID  *uuid.UUID
	Status   *InvoiceStatus
}

// ClientRepository persists clients
type ClientRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Client, error)
	FindAll(ctx context.Context, filter ClientFilter) ([]Client, int64, error)
	ListAll(ctx context.Context) ([]Client, error)
	Save(ctx context.Context, client *Client) error
	DeleteAll(ctx context.Context) (int64, error)
	// ShiftTimestamps moves created_at and updated_at on every client by days
	ShiftTimestamps(ctx context.Context, days int) (int64, error)
}

// OrderRepository persists orders
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindAll(ctx context.Context, filter OrderFilter) ([]Order, int64, error)
	ListAll(ctx context.Context) ([]Order, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Save(ctx context.Context, order *Order) error
	DeleteAll(ctx context.Context) (int64, error)
	// ShiftTimestamps moves date_placed and the row timestamps on every order by days
	ShiftTimestamps(ctx context.Context, days int) (int64, error)
}

// InvoiceRepository persists invoices
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*Invoice, error)
	FindAll(ctx context.Context, filter InvoiceFilter) ([]Invoice, int64, error)
	ListAll(ctx context.Context) ([]Invoice, error)
	// FindOpenDueBefore returns PENDING or SENT invoices with date_due before t
	FindOpenDueBefore(ctx context.Context, t time.Time) ([]Invoice, error)
	// FindOverdueDueAfter returns OVERDUE invoices with date_due after t
	FindOverdueDueAfter(ctx context.Context, t time.Time) ([]Invoice, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Save(ctx context.Context, invoice *Invoice) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) (int64, error)
	// ShiftTimestamps moves date_created, date_due and the row timestamps on every invoice by days
	ShiftTimestamps(ctx context.Context, days int) (int64, error)
}
