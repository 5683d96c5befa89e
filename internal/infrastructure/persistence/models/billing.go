package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdesk/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// ClientModel is the persistence model for the Client entity
type ClientModel struct {
	BaseModel
	Name    string `gorm:"type:varchar(100);not null;index"`
	Email   string `gorm:"type:varchar(120);not null;index"`
	Company string `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// ToDomain converts the persistence model to a domain Client entity
func (m *ClientModel) ToDomain() *billing.Client {
	return &billing.Client{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
		Email:      m.Email,
		Company:    m.Company,
	}
}

// ClientModelFromDomain creates a persistence model from a domain Client entity
func ClientModelFromDomain(c *billing.Client) *ClientModel {
	m := &ClientModel{
		Name:    c.Name,
		Email:   c.Email,
		Company: c.Company,
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	return m
}

// OrderModel is the persistence model for the Order entity
type OrderModel struct {
	BaseModel
	Code        string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	ClientID    uuid.UUID           `gorm:"type:uuid;not null;index"`
	Client      *ClientModel        `gorm:"foreignKey:ClientID;constraint:OnDelete:RESTRICT"`
	Description string              `gorm:"type:varchar(200)"`
	Amount      decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	DatePlaced  time.Time           `gorm:"not null;index"`
	Status      billing.OrderStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order entity
func (m *OrderModel) ToDomain() *billing.Order {
	return &billing.Order{
		BaseEntity:  m.BaseModel.ToDomain(),
		Code:        m.Code,
		ClientID:    m.ClientID,
		Description: m.Description,
		Amount:      m.Amount,
		DatePlaced:  m.DatePlaced.UTC(),
		Status:      m.Status,
	}
}

// OrderModelFromDomain creates a persistence model from a domain Order entity
func OrderModelFromDomain(o *billing.Order) *OrderModel {
	m := &OrderModel{
		Code:        o.Code,
		ClientID:    o.ClientID,
		Description: o.Description,
		Amount:      o.Amount,
		DatePlaced:  o.DatePlaced.UTC(),
		Status:      o.Status,
	}
	m.FromDomainBaseEntity(o.BaseEntity)
	return m
}

// InvoiceModel is the persistence model for the Invoice entity.
// The unique index on order_id enforces at most one invoice per order.
type InvoiceModel struct {
	BaseModel
	Code        string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	OrderID     *uuid.UUID            `gorm:"type:uuid;uniqueIndex"`
	Order       *OrderModel           `gorm:"foreignKey:OrderID;constraint:OnDelete:SET NULL"`
	ClientID    uuid.UUID             `gorm:"type:uuid;not null;index"`
	Client      *ClientModel          `gorm:"foreignKey:ClientID;constraint:OnDelete:RESTRICT"`
	Amount      decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Status      billing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	DateCreated time.Time             `gorm:"not null;index"`
	DateDue     time.Time             `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	return &billing.Invoice{
		BaseEntity:  m.BaseModel.ToDomain(),
		Code:        m.Code,
		OrderID:     m.OrderID,
		ClientID:    m.ClientID,
		Amount:      m.Amount,
		Status:      m.Status,
		DateCreated: m.DateCreated.UTC(),
		DateDue:     m.DateDue.UTC(),
	}
}

// InvoiceModelFromDomain creates a persistence model from a domain Invoice entity
func InvoiceModelFromDomain(i *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		Code:        i.Code,
		OrderID:     i.OrderID,
		ClientID:    i.ClientID,
		Amount:      i.Amount,
		Status:      i.Status,
		DateCreated: i.DateCreated.UTC(),
		DateDue:     i.DateDue.UTC(),
	}
	m.FromDomainBaseEntity(i.BaseEntity)
	return m
}
