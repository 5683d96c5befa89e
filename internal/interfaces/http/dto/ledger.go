package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdesk/backend/internal/domain/audit"
	"github.com/ledgerdesk/backend/internal/domain/billing"
	"github.com/ledgerdesk/backend/internal/domain/identity"
	"github.com/shopspring/decimal"
)

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Username string `json:"username" binding:"required,min=3,max=100"`
	Password string `json:"password" binding:"required,max=72"`
}

// IdentityResponse describes the caller of GET /auth/me
type IdentityResponse struct {
	ID          string            `json:"id"`
	Username    string            `json:"username"`
	Role        identity.Role     `json:"role"`
	Permissions []identity.Action `json:"permissions"`
}

// ToIdentityResponse converts an authenticated actor
func ToIdentityResponse(a identity.Actor) IdentityResponse {
	return IdentityResponse{ID: a.ID, Username: a.Username, Role: a.Role, Permissions: a.Role.Permissions()}
}

// CreateClientRequest is the body of POST /clients
type CreateClientRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	Email   string `json:"email" binding:"required,email,max=120"`
	Company string `json:"company" binding:"max=100"`
}

// CreateOrderRequest is the body of POST /orders
type CreateOrderRequest struct {
	ClientID    string           `json:"client_id" binding:"required,uuid"`
	Description string           `json:"description" binding:"max=200"`
	Amount      *decimal.Decimal `json:"amount" binding:"required"`
}

// EditInvoiceRequest is the body of PUT /invoices/:id. Every field is required.
type EditInvoiceRequest struct {
	Amount      *decimal.Decimal `json:"amount" binding:"required"`
	Status      string           `json:"status" binding:"required,oneof=PENDING SENT PAID OVERDUE"`
	DateCreated *time.Time       `json:"date_created" binding:"required"`
	DateDue     *time.Time       `json:"date_due" binding:"required"`
}

// AppendAuditRequest is the body of POST /audit
type AppendAuditRequest struct {
	Action      string `json:"action" binding:"required,max=100"`
	EntityType  string `json:"entity_type" binding:"required,max=50"`
	EntityID    string `json:"entity_id" binding:"max=100"`
	Status      string `json:"status" binding:"required,oneof=SUCCESS FAILURE WARNING DANGER"`
	Description string `json:"description" binding:"max=1000"`
}

// ShiftTimeRequest is the body of POST /system/time/shift
type ShiftTimeRequest struct {
	Days int `json:"days" binding:"required,min=1,max=3650"`
}

// GenerateTestDataRequest is the body of POST /system/test-data
type GenerateTestDataRequest struct {
	Count int `json:"count" binding:"omitempty,min=1,max=100"`
}

// ClientResponse is the API view of a client
type ClientResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderResponse is the API view of an order
type OrderResponse struct {
	ID          uuid.UUID       `json:"id"`
	Code        string          `json:"code"`
	ClientID    uuid.UUID       `json:"client_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	DatePlaced  time.Time       `json:"date_placed"`
	Status      string          `json:"status"`
}

// InvoiceResponse is the API view of an invoice
type InvoiceResponse struct {
	ID          uuid.UUID       `json:"id"`
	Code        string          `json:"code"`
	OrderID     *uuid.UUID      `json:"order_id"`
	ClientID    uuid.UUID       `json:"client_id"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	DateCreated time.Time       `json:"date_created"`
	DateDue     time.Time       `json:"date_due"`
}

// InvoiceDetailResponse is an invoice with its client and order
type InvoiceDetailResponse struct {
	InvoiceResponse
	Client *ClientResponse `json:"client,omitempty"`
	Order  *OrderResponse  `json:"order,omitempty"`
}

// InvoiceEditResponse is returned by PUT /invoices/:id
type InvoiceEditResponse struct {
	Invoice InvoiceResponse `json:"invoice"`
	Changes []string        `json:"changes"`
}

// AuditEntryResponse is the API view of an audit entry
type AuditEntryResponse struct {
	ID          uuid.UUID `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	ActorType   string    `json:"actor_type"`
	ActorID     string    `json:"actor_id"`
	Action      string    `json:"action"`
	EntityType  string    `json:"entity_type"`
	EntityID    string    `json:"entity_id"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
}

// TimeOffsetResponse reports the active time offset
type TimeOffsetResponse struct {
	OffsetDays int       `json:"offset_days"`
	Now        time.Time `json:"now"`
	LogicalNow time.Time `json:"logical_now"`
}

// ToClientResponse converts a client
func ToClientResponse(c *billing.Client) ClientResponse {
	return ClientResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Company:   c.Company,
		CreatedAt: c.CreatedAt,
	}
}

// ToOrderResponse converts an order
func ToOrderResponse(o *billing.Order) OrderResponse {
	return OrderResponse{
		ID:          o.ID,
		Code:        o.Code,
		ClientID:    o.ClientID,
		Description: o.Description,
		Amount:      o.Amount,
		DatePlaced:  o.DatePlaced,
		Status:      o.Status.String(),
	}
}

// ToInvoiceResponse converts an invoice
func ToInvoiceResponse(i *billing.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:          i.ID,
		Code:        i.Code,
		OrderID:     i.OrderID,
		ClientID:    i.ClientID,
		Amount:      i.Amount,
		Status:      i.Status.String(),
		DateCreated: i.DateCreated,
		DateDue:     i.DateDue,
	}
}

// ToAuditEntryResponse converts an audit entry
func ToAuditEntryResponse(e *audit.Entry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:          e.ID,
		Timestamp:   e.Timestamp,
		ActorType:   string(e.ActorType),
		ActorID:     e.ActorID,
		Action:      e.Action,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Status:      e.Status.String(),
		Description: e.Description,
	}
}

// ToClientResponses converts a slice of clients
func ToClientResponses(clients []billing.Client) []ClientResponse {
	out := make([]ClientResponse, len(clients))
	for i := range clients {
		out[i] = ToClientResponse(&clients[i])
	}
	return out
}

// ToOrderResponses converts a slice of orders
func ToOrderResponses(orders []billing.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = ToOrderResponse(&orders[i])
	}
	return out
}

// ToInvoiceResponses converts a slice of invoices
func ToInvoiceResponses(invoices []billing.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		out[i] = ToInvoiceResponse(&invoices[i])
	}
	return out
}

// ToAuditEntryResponses converts a slice of audit entries
func ToAuditEntryResponses(entries []audit.Entry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, len(entries))
	for i := range entries {
		out[i] = ToAuditEntryResponse(&entries[i])
	}
	return out
}
