package adherence

import (
	"sort"

	"github.com/google/uuid"
)

// StatDose is one terminal dose outcome fed to the aggregator. The
// aggregator never sees pending slots; the service synthesizes missed
// entries for unlogged past-cutoff slots and drops everything still
// pending.
type StatDose struct {
	MedicationID   uuid.UUID
	MedicationName string
	Date           string
	Status         Status
}

type MedicationStats struct {
	MedicationID   uuid.UUID `json:"medicationId"`
	MedicationName string    `json:"medicationName"`
	Total          int       `json:"total"`
	Taken          int       `json:"taken"`
	Missed         int       `json:"missed"`
	Skipped        int       `json:"skipped"`
	AdherenceRate  float64   `json:"adherenceRate"`
}

type DayStats struct {
	Date          string  `json:"date"`
	Total         int     `json:"total"`
	Taken         int     `json:"taken"`
	Missed        int     `json:"missed"`
	Skipped       int     `json:"skipped"`
	AdherenceRate float64 `json:"adherenceRate"`
}

// Stats is the adherence report over a date range. Overall is a
// fraction in [0,1]; percentage formatting belongs to the client.
type Stats struct {
	Overall      float64           `json:"overall"`
	ByMedication []MedicationStats `json:"byMedication"`
	ByDay        []DayStats        `json:"byDay"`
}

type counts struct {
	total, taken, missed, skipped int
}

func (c *counts) add(s Status) {
	c.total++
	switch s {
	case StatusTaken:
		c.taken++
	case StatusMissed:
		c.missed++
	case StatusSkipped:
		c.skipped++
	}
}

func rate(taken, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(taken) / float64(total)
}

// Aggregate reduces terminal dose outcomes into overall, per
// medication, and per day statistics. ByDay sorts ascending by date;
// ByMedication sorts by name for a stable response.
func Aggregate(doses []StatDose) *Stats {
	var overall counts
	byMed := map[uuid.UUID]*counts{}
	medNames := map[uuid.UUID]string{}
	byDay := map[string]*counts{}

	for _, d := range doses {
		overall.add(d.Status)

		mc, ok := byMed[d.MedicationID]
		if !ok {
			mc = &counts{}
			byMed[d.MedicationID] = mc
			medNames[d.MedicationID] = d.MedicationName
		}
		mc.add(d.Status)

		dc, ok := byDay[d.Date]
		if !ok {
			dc = &counts{}
			byDay[d.Date] = dc
		}
		dc.add(d.Status)
	}

	meds := make([]MedicationStats, 0, len(byMed))
	for id, c := range byMed {
		meds = append(meds, MedicationStats{
			MedicationID:   id,
			MedicationName: medNames[id],
			Total:          c.total,
			Taken:          c.taken,
			Missed:         c.missed,
			Skipped:        c.skipped,
			AdherenceRate:  rate(c.taken, c.total),
		})
	}
	sort.Slice(meds, func(i, j int) bool {
		if meds[i].MedicationName != meds[j].MedicationName {
			return meds[i].MedicationName < meds[j].MedicationName
		}
		return meds[i].MedicationID.String() < meds[j].MedicationID.String()
	})

	days := make([]DayStats, 0, len(byDay))
	for date, c := range byDay {
		days = append(days, DayStats{
			Date:          date,
			Total:         c.total,
			Taken:         c.taken,
			Missed:        c.missed,
			Skipped:       c.skipped,
			AdherenceRate: rate(c.taken, c.total),
		})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })

	return &Stats{
		Overall:      rate(overall.taken, overall.total),
		ByMedication: meds,
		ByDay:        days,
	}
}
