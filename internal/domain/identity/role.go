package identity

import (
	"slices"
	"strings"
)

// Role is the coarse permission level carried by every actor.
// Roles are ordered: each level includes the rights of the levels below it.
type Role string

const (
	RoleStaff      Role = "STAFF"
	RoleManager    Role = "MANAGER"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

var roleRank = map[Role]int{
	RoleStaff:      1,
	RoleManager:    2,
	RoleSuperAdmin: 3,
}

// IsValid checks if the role is a known level
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// String returns the string representation
func (r Role) String() string {
	return string(r)
}

// AtLeast reports whether r grants everything min grants
func (r Role) AtLeast(min Role) bool {
	rank, ok := roleRank[r]
	if !ok {
		return false
	}
	return rank >= roleRank[min]
}

// ParseRole accepts the canonical names plus the human spellings used in config files
func ParseRole(s string) (Role, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")
	if normalized == "SUPERADMIN" {
		normalized = string(RoleSuperAdmin)
	}
	r := Role(normalized)
	return r, r.IsValid()
}

// Action is a guarded operation on the ledger
type Action string

const (
	ActionRead           Action = "read"
	ActionCreateInvoice  Action = "invoice:create"
	ActionCreateOrder    Action = "order:create"
	ActionCreateClient   Action = "client:create"
	ActionEditInvoice    Action = "invoice:edit"
	ActionDeleteInvoice  Action = "invoice:delete"
	ActionShiftTime      Action = "system:time"
	ActionWipe           Action = "system:wipe"
	ActionGenerateData   Action = "system:generate"
	ActionManageAccounts Action = "user:manage"
)

var actionMinRole = map[Action]Role{
	ActionRead:           RoleStaff,
	ActionCreateInvoice:  RoleManager,
	ActionCreateOrder:    RoleManager,
	ActionCreateClient:   RoleManager,
	ActionEditInvoice:    RoleSuperAdmin,
	ActionDeleteInvoice:  RoleSuperAdmin,
	ActionShiftTime:      RoleSuperAdmin,
	ActionWipe:           RoleSuperAdmin,
	ActionGenerateData:   RoleSuperAdmin,
	ActionManageAccounts: RoleSuperAdmin,
}

// MinRole returns the lowest role allowed to perform the action.
// Unknown actions require SuperAdmin.
func (a Action) MinRole() Role {
	if r, ok := actionMinRole[a]; ok {
		return r
	}
	return RoleSuperAdmin
}

// Can reports whether the role may perform the action
func (r Role) Can(a Action) bool {
	return r.AtLeast(a.MinRole())
}

// Permissions lists the actions the role may perform, sorted by name
func (r Role) Permissions() []Action {
	var out []Action
	for a := range actionMinRole {
		if r.Can(a) {
			out = append(out, a)
		}
	}
	slices.Sort(out)
	return out
}
