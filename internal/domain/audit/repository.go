package audit

import (
	"context"

	"github.com/ledgerdesk/backend/internal/domain/shared"
)

// Filter narrows an audit listing. Empty fields match everything.
type Filter struct {
	shared.Filter
	Status     *Status
	Action     string
	EntityType string
}

// EntryRepository appends and reads audit entries. There is no update path.
type EntryRepository interface {
	Append(ctx context.Context, entry *Entry) error
	FindAll(ctx context.Context, filter Filter) ([]Entry, int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	// ShiftTimestamps moves the timestamp of every entry by days
	ShiftTimestamps(ctx context.Context, days int) (int64, error)
}
