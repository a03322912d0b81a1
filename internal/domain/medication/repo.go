package medication

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists medications. All lookups are scoped to the
// owning user.
type Repository interface {
	Create(ctx context.Context, m *Medication) error
	Get(ctx context.Context, userID, id uuid.UUID) (*Medication, error)
	List(ctx context.Context, userID uuid.UUID) ([]*Medication, error)
	// ListActiveBetween returns medications whose date range overlaps
	// the inclusive [from, to] window.
	ListActiveBetween(ctx context.Context, userID uuid.UUID, from, to DateOnly) ([]*Medication, error)
	Update(ctx context.Context, m *Medication) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}
