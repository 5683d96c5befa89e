package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdesk/backend/internal/domain/audit"
	"github.com/ledgerdesk/backend/internal/domain/identity"
)

// AuditEntryModel is the persistence model for audit entries.
// Rows are inserted once and never updated.
type AuditEntryModel struct {
	ID          uuid.UUID          `gorm:"type:uuid;primaryKey"`
	Timestamp   time.Time          `gorm:"not null;index"`
	ActorType   identity.ActorType `gorm:"type:varchar(20);not null"`
	ActorID     string             `gorm:"type:varchar(100)"`
	Action      string             `gorm:"type:varchar(100);not null;index"`
	EntityType  string             `gorm:"type:varchar(50);index"`
	EntityID    string             `gorm:"type:varchar(100)"`
	Status      audit.Status       `gorm:"type:varchar(20);not null;index"`
	Description string             `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (AuditEntryModel) TableName() string {
	return "audit_entries"
}

// ToDomain converts the persistence model to a domain audit entry
func (m *AuditEntryModel) ToDomain() *audit.Entry {
	return &audit.Entry{
		ID:          m.ID,
		Timestamp:   m.Timestamp.UTC(),
		ActorType:   m.ActorType,
		ActorID:     m.ActorID,
		Action:      m.Action,
		EntityType:  m.EntityType,
		EntityID:    m.EntityID,
		Status:      m.Status,
		Description: m.Description,
	}
}

// AuditEntryModelFromDomain creates a persistence model from a domain audit entry
func AuditEntryModelFromDomain(e *audit.Entry) *AuditEntryModel {
	return &AuditEntryModel{
		ID:          e.ID,
		Timestamp:   e.Timestamp.UTC(),
		ActorType:   e.ActorType,
		ActorID:     e.ActorID,
		Action:      e.Action,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Status:      e.Status,
		Description: e.Description,
	}
}
