package category

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists categories. All lookups are scoped to the owning
// user so one user can never read or modify another's categories.
type Repository interface {
	Create(ctx context.Context, cat *Category) error
	Get(ctx context.Context, userID, id uuid.UUID) (*Category, error)
	List(ctx context.Context, userID uuid.UUID) ([]*Category, error)
	Update(ctx context.Context, cat *Category) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}
