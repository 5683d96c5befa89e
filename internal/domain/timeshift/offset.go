// Package timeshift models the cumulative temporal offset applied to the ledger.
//
// Shifting back by N days moves every stored timestamp N days into the past,
// which simulates N days elapsing. The offset K is the sum of all shifts since
// the last restore; restoring moves everything forward by exactly K.
package timeshift

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerdesk/backend/internal/domain/shared"
)

const (
	// MaxShiftDays bounds a single shift
	MaxShiftDays = 3650
	// MaxOffsetDays bounds the cumulative offset so shifted rows stay
	// inside the range every driver can store
	MaxOffsetDays = 36500
)

// OffsetRepository stores the cumulative offset in days outside the entity tables
type OffsetRepository interface {
	GetOffsetDays(ctx context.Context) (int, error)
	SetOffsetDays(ctx context.Context, days int) error
}

// ValidateShiftDays rejects non-positive or absurd shift requests
func ValidateShiftDays(days int) error {
	if days <= 0 {
		return shared.NewValidationError("Days must be greater than 0",
			shared.FieldError{Field: "days", Message: "must be greater than 0"})
	}
	if days > MaxShiftDays {
		return shared.NewValidationError(fmt.Sprintf("Days cannot exceed %d", MaxShiftDays),
			shared.FieldError{Field: "days", Message: fmt.Sprintf("max %d", MaxShiftDays)})
	}
	return nil
}

// ValidateShift checks a shift of days on top of the current offset
func ValidateShift(offsetDays, days int) error {
	if err := ValidateShiftDays(days); err != nil {
		return err
	}
	if offsetDays+days > MaxOffsetDays {
		return shared.NewValidationError(
			fmt.Sprintf("Offset cannot exceed %d days (currently %d); restore first", MaxOffsetDays, offsetDays),
			shared.FieldError{Field: "days", Message: fmt.Sprintf("max %d", MaxOffsetDays-offsetDays)})
	}
	return nil
}

// Shift moves t by days calendar days. All ledger timestamps are UTC, so a
// day is always 24 hours and the move is exactly reversible.
func Shift(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}

// LogicalNow maps wall time onto the shifted timeline. Entries stamped with it
// land on their wall time again once the offset is restored.
func LogicalNow(wall time.Time, offsetDays int) time.Time {
	return Shift(wall, -offsetDays)
}
