package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdesk/backend/internal/domain/identity"
	"github.com/ledgerdesk/backend/internal/domain/shared"
)

// Status classifies the outcome an entry describes
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
	StatusWarning Status = "WARNING"
	StatusDanger  Status = "DANGER"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusWarning, StatusDanger:
		return true
	}
	return false
}

// String returns the string representation
func (s Status) String() string {
	return string(s)
}

// Entity types recorded in the trail
const (
	EntityInvoice = "Invoice"
	EntityOrder   = "Order"
	EntityClient  = "Client"
	EntityUser    = "User"
	EntitySystem  = "System"
)

// Actions recorded in the trail
const (
	ActionInvoiceGenerated  = "Invoice Generated"
	ActionInvoiceFailed     = "Invoice Generation Failed"
	ActionInvoiceUpdated    = "Invoice Updated"
	ActionInvoiceDeleted    = "Invoice Deleted"
	ActionInvoiceOverdue    = "Invoice Overdue"
	ActionInvoiceReinstated = "Invoice Reinstated"
	ActionOrderCreated      = "Order Created"
	ActionClientCreated     = "Client Created"
	ActionClientsImported   = "Clients Imported"
	ActionLogin             = "Login"
	ActionLoginFailed       = "Login Failed"
	ActionUserCreated       = "User Created"
	ActionAccessDenied      = "Access Denied"
	ActionTimeShifted       = "Time Shifted"
	ActionTimeRestored      = "Time Restored"
	ActionDataWiped         = "All Data Wiped"
	ActionTestDataGenerated = "Test Data Generated"
	ActionDemoDataSeeded    = "Demo Data Seeded"
)

// Entry is an immutable record of an action
type Entry struct {
	ID          uuid.UUID
	Timestamp   time.Time
	ActorType   identity.ActorType
	ActorID     string
	Action      string
	EntityType  string
	EntityID    string
	Status      Status
	Description string
}

// Draft carries the fields of an entry before it is stamped
type Draft struct {
	ActorType   identity.ActorType
	ActorID     string
	Action      string
	EntityType  string
	EntityID    string
	Status      Status
	Description string
}

// DraftFor starts a draft attributed to the actor
func DraftFor(actor identity.Actor, action string, status Status) Draft {
	actorType := actor.Type
	if actorType == "" {
		actorType = identity.ActorTypeUser
	}
	return Draft{
		ActorType: actorType,
		ActorID:   actor.Label(),
		Action:    action,
		Status:    status,
	}
}

// On sets the entity the draft refers to
func (d Draft) On(entityType, entityID string) Draft {
	d.EntityType = entityType
	d.EntityID = entityID
	return d
}

// Describe sets the description
func (d Draft) Describe(description string) Draft {
	d.Description = description
	return d
}

// Stamp validates the draft and turns it into an entry at the given logical time
func (d Draft) Stamp(at time.Time) (*Entry, error) {
	var fields []shared.FieldError
	if strings.TrimSpace(d.Action) == "" {
		fields = append(fields, shared.FieldError{Field: "action", Message: "required"})
	}
	if !d.Status.IsValid() {
		fields = append(fields, shared.FieldError{Field: "status", Message: "must be one of SUCCESS, FAILURE, WARNING, DANGER"})
	}
	if d.ActorType != identity.ActorTypeUser && d.ActorType != identity.ActorTypeSystem {
		fields = append(fields, shared.FieldError{Field: "actor_type", Message: "must be USER or SYSTEM"})
	}
	if len(fields) > 0 {
		return nil, shared.NewValidationError("Invalid audit entry", fields...)
	}

	return &Entry{
		ID:          uuid.New(),
		Timestamp:   at,
		ActorType:   d.ActorType,
		ActorID:     d.ActorID,
		Action:      d.Action,
		EntityType:  d.EntityType,
		EntityID:    d.EntityID,
		Status:      d.Status,
		Description: d.Description,
	}, nil
}
