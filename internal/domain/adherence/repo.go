package adherence

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DoseLogRepository persists dose logs. Listings join the medication
// snapshot so schedule merges and exports need no second query.
type DoseLogRepository interface {
	Create(ctx context.Context, log *DoseLog) error
	// ListByUser returns the user's logs newest first. Nil bounds mean
	// unbounded; a bound filters on CreatedAt.
	ListByUser(ctx context.Context, userID uuid.UUID, from, to *time.Time) ([]*DoseLog, error)
	// FindBySlot returns the log for one (medication, slot, day) key,
	// or pgx.ErrNoRows. Day bounds are the local midnights around the
	// calendar day.
	FindBySlot(ctx context.Context, userID, medicationID uuid.UUID, scheduledTime string, dayStart, dayEnd time.Time) (*DoseLog, error)
}
