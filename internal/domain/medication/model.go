package medication

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// DateOnly is a calendar date with no time or zone component. It
// marshals as "YYYY-MM-DD" and maps to a Postgres date column.
type DateOnly struct {
	time.Time
}

func NewDateOnly(s string) (DateOnly, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return DateOnly{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return DateOnly{Time: t}, nil
}

func (d DateOnly) String() string {
	return d.Format(dateLayout)
}

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date %s: expected a quoted YYYY-MM-DD string", s)
	}
	parsed, err := NewDateOnly(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d *DateOnly) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = v
		return nil
	case string:
		parsed, err := NewDateOnly(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into DateOnly", src)
	}
}

func (d DateOnly) Value() (driver.Value, error) {
	return d.Time, nil
}

// Medication is a recurring prescription: a set of clock times taken
// every day between StartDate and EndDate inclusive. Times hold
// 24-hour "HH:MM" strings.
type Medication struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"userId"`
	Name         string     `json:"name"`
	Dose         string     `json:"dose"`
	Frequency    int        `json:"frequency"`
	Times        []string   `json:"times"`
	StartDate    DateOnly   `json:"startDate"`
	EndDate      *DateOnly  `json:"endDate"`
	CategoryID   *uuid.UUID `json:"categoryId"`
	CategoryName *string    `json:"categoryName,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// ActiveOn reports whether the medication's date range covers day,
// given as "YYYY-MM-DD". ISO dates compare correctly as strings.
func (m *Medication) ActiveOn(day string) bool {
	if day < m.StartDate.String() {
		return false
	}
	if m.EndDate != nil && day > m.EndDate.String() {
		return false
	}
	return true
}
