package adherence

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Policy constants for dose timing, in minutes. Fixed for all
// medications.
const (
	preWindowMinutes    = 10  // a dose becomes due this long before its slot
	lateAfterMinutes    = 30  // taken later than this counts as late
	missedCutoffMinutes = 240 // past this a slot can no longer be taken
)

const dateLayout = "2006-01-02"

var timeRE = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// SlotInstant builds the instant a "HH:MM" slot falls on for the given
// calendar day, in loc. Errors on malformed input.
func SlotInstant(day string, hhmm string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, day, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", day)
	}
	m := timeRE.FindStringSubmatch(hhmm)
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid time %q: expected 24-hour HH:MM", hhmm)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, loc), nil
}

// DiffMinutes is how far now is past the slot instant, in fractional
// minutes. Negative means the slot is still in the future.
func DiffMinutes(now, scheduled time.Time) float64 {
	return now.Sub(scheduled).Minutes()
}

// DueNow reports whether a slot is inside its action window: from ten
// minutes before to thirty minutes after.
func DueNow(diff float64) bool {
	return diff >= -preWindowMinutes && diff <= lateAfterMinutes
}

// WasLate reports whether a dose logged at this offset counts as late:
// more than 30 and less than 240 minutes after the slot, both
// exclusive.
func WasLate(diff float64) bool {
	return diff > lateAfterMinutes && diff < missedCutoffMinutes
}

// PastCutoff reports whether the slot can no longer be taken: more
// than four hours past.
func PastCutoff(diff float64) bool {
	return diff > missedCutoffMinutes
}
