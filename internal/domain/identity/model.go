package identity

import (
	"time"

	"github.com/google/uuid"
)

// User is an account holder. All medications, categories, and dose logs are
// scoped to exactly one user.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`

	// Streak counts consecutive engagement: it is incremented at most once
	// per calendar day, on the first dose logged as taken that day.
	Streak           int        `json:"streak"`
	LastStreakUpdate *time.Time `json:"last_streak_update,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Public returns the user without credential material, for API responses.
func (u *User) Public() map[string]interface{} {
	return map[string]interface{}{
		"id":     u.ID,
		"email":  u.Email,
		"name":   u.Name,
		"streak": u.Streak,
	}
}
