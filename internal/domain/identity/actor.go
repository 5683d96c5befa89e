package identity

import (
	"fmt"

	"github.com/ledgerdesk/backend/internal/domain/shared"
)

// ActorType distinguishes human users from automated processes in the audit trail
type ActorType string

const (
	ActorTypeUser   ActorType = "USER"
	ActorTypeSystem ActorType = "SYSTEM"
)

// Reserved system actor identities
const (
	SystemActorInvoiceBot  = "invoice-bot"
	SystemActorReconciler  = "overdue-reconciler"
	SystemActorMaintenance = "system-maintenance"
	SystemActorCLI         = "ledgerctl"
)

// Actor is the identity on whose behalf an operation runs
type Actor struct {
	Type     ActorType
	ID       string
	Username string
	Role     Role
}

// NewUserActor builds an actor for an authenticated user
func NewUserActor(id, username string, role Role) Actor {
	return Actor{Type: ActorTypeUser, ID: id, Username: username, Role: role}
}

// SystemActor builds a SuperAdmin-level actor for an automated process
func SystemActor(id string) Actor {
	return Actor{Type: ActorTypeSystem, ID: id, Username: id, Role: RoleSuperAdmin}
}

// Authorize returns a FORBIDDEN domain error when the actor may not perform the action
func (a Actor) Authorize(action Action) error {
	if a.Role.Can(action) {
		return nil
	}
	return shared.NewDomainError(shared.CodeForbidden,
		fmt.Sprintf("role %s is not allowed to perform %s", displayRole(a.Role), action))
}

// Label returns the identity recorded in audit entries
func (a Actor) Label() string {
	if a.Username != "" {
		return a.Username
	}
	return a.ID
}

func displayRole(r Role) string {
	if r == "" {
		return "(none)"
	}
	return string(r)
}
