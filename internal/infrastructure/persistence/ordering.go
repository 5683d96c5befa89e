package persistence

import (
	"slices"
	"strings"

	"github.com/ledgerdesk/backend/internal/domain/shared"
	"gorm.io/gorm/clause"
)

// sortColumns whitelists the columns a list endpoint may be ordered by.
// Anything else falls back to the default column, newest first.
type sortColumns struct {
	allowed  []string
	fallback string
}

var (
	clientSort  = sortColumns{allowed: []string{"id", "created_at", "name", "email", "company"}, fallback: "name"}
	orderSort   = sortColumns{allowed: []string{"id", "created_at", "code", "amount", "status", "date_placed"}, fallback: "date_placed"}
	invoiceSort = sortColumns{allowed: []string{"id", "created_at", "code", "amount", "status", "date_created", "date_due"}, fallback: "date_created"}
	auditSort   = sortColumns{allowed: []string{"id", "timestamp", "action", "status", "entity_type"}, fallback: "timestamp"}
)

// column returns the requested column when whitelisted
func (s sortColumns) column(requested string) string {
	requested = strings.TrimSpace(requested)
	if slices.Contains(s.allowed, requested) {
		return requested
	}
	return s.fallback
}

// orderBy builds the ORDER BY for a filter. Pages stay stable because id
// always breaks ties.
func (s sortColumns) orderBy(f shared.Filter) clause.OrderBy {
	col := s.column(f.OrderBy)
	desc := !strings.EqualFold(strings.TrimSpace(f.OrderDir), "asc")

	columns := []clause.OrderByColumn{{Column: clause.Column{Name: col}, Desc: desc}}
	if col != "id" {
		columns = append(columns, clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	}
	return clause.OrderBy{Columns: columns}
}
