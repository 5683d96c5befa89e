package audit

import (
	"context"

	"github.com/ledgerdesk/backend/internal/application/ledger"
	"github.com/ledgerdesk/backend/internal/domain/audit"
	"github.com/ledgerdesk/backend/internal/domain/shared"
)

// QueryService lists the audit trail
type QueryService struct {
	entries audit.EntryRepository
}

// NewQueryService creates a new QueryService
func NewQueryService(entries audit.EntryRepository) *QueryService {
	return &QueryService{entries: entries}
}

// List returns one page of entries, newest first unless the filter says otherwise
func (s *QueryService) List(ctx context.Context, filter audit.Filter) (shared.Paginated[audit.Entry], error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = shared.DefaultFilter().PageSize
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "timestamp"
		filter.OrderDir = "desc"
	}

	entries, total, err := s.entries.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[audit.Entry]{}, ledger.PersistenceError("list audit entries", err)
	}
	return shared.NewPaginated(entries, total, filter.Page, filter.PageSize), nil
}
