package adherence

import (
	"sort"
	"time"

	"github.com/medtrack/medtrack/internal/domain/medication"
)

func summaryOf(m *medication.Medication) MedicationSummary {
	return MedicationSummary{
		ID:           m.ID,
		Name:         m.Name,
		Dose:         m.Dose,
		CategoryName: m.CategoryName,
	}
}

// ExpandDay emits one candidate occurrence per slot of every
// medication active on day. Malformed stored times are skipped rather
// than failing the whole expansion.
func ExpandDay(meds []*medication.Medication, day string, loc *time.Location) []Occurrence {
	var out []Occurrence
	for _, m := range meds {
		if !m.ActiveOn(day) {
			continue
		}
		for _, slot := range m.Times {
			if !timeRE.MatchString(slot) {
				continue
			}
			out = append(out, Occurrence{
				MedicationID:  m.ID,
				Medication:    summaryOf(m),
				ScheduledTime: slot,
				Date:          day,
				Status:        StatusPending,
			})
		}
	}
	return out
}

// ExpandRange expands every day in [from, to] inclusive. Both bounds
// are "YYYY-MM-DD" strings; an inverted range yields nothing.
func ExpandRange(meds []*medication.Medication, from, to string, loc *time.Location) ([]Occurrence, error) {
	start, err := time.ParseInLocation(dateLayout, from, loc)
	if err != nil {
		return nil, err
	}
	end, err := time.ParseInLocation(dateLayout, to, loc)
	if err != nil {
		return nil, err
	}

	var out []Occurrence
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, ExpandDay(meds, d.Format(dateLayout), loc)...)
	}
	return out, nil
}

// SortOccurrences orders for presentation: by date, then slot time.
// Zero-padded HH:MM strings sort correctly lexicographically.
func SortOccurrences(occs []Occurrence) {
	sort.SliceStable(occs, func(i, j int) bool {
		if occs[i].Date != occs[j].Date {
			return occs[i].Date < occs[j].Date
		}
		return occs[i].ScheduledTime < occs[j].ScheduledTime
	})
}
