package category

import (
	"time"

	"github.com/google/uuid"
)

// Category is a user-defined grouping for medications, e.g. "Heart" or
// "Vitamins". Deleting a category detaches its medications rather than
// deleting them.
type Category struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
