package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// BumpStreak conditionally increments the user's streak. The increment
	// applies only when last_streak_update is unset or falls on a calendar
	// day before now's day, and must be a single atomic compare-and-set so
	// concurrent dose logs cannot double-increment. It returns the streak
	// after the call and whether this call incremented it.
	BumpStreak(ctx context.Context, id uuid.UUID, now time.Time) (int, bool, error)
}
