package persistence

import (
	"context"
	"errors"

	"github.com/ledgerdesk/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps GORM errors onto domain error codes.
// Record-not-found becomes shared.ErrNotFound, unique violations become CONFLICT,
// context cancellation passes through and everything else is a PERSISTENCE_FAILURE.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.NewConflictError(op + ": record already exists")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return shared.NewPersistenceError(op, err)
}
