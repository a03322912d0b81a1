package adherence

import (
	"time"

	"github.com/google/uuid"
)

// slotKey identifies a dose slot on a calendar day. A log answers for
// the slot whose key matches (medication, scheduled time, day the log
// was created).
type slotKey struct {
	medicationID  uuid.UUID
	scheduledTime string
	date          string
}

func keyOfLog(log *DoseLog, loc *time.Location) slotKey {
	return slotKey{
		medicationID:  log.MedicationID,
		scheduledTime: log.ScheduledTime,
		date:          log.CreatedAt.In(loc).Format(dateLayout),
	}
}

func keyOfOccurrence(occ Occurrence) slotKey {
	return slotKey{
		medicationID:  occ.MedicationID,
		scheduledTime: occ.ScheduledTime,
		date:          occ.Date,
	}
}

func indexLogs(logs []*DoseLog, loc *time.Location) map[slotKey]*DoseLog {
	idx := make(map[slotKey]*DoseLog, len(logs))
	for _, log := range logs {
		idx[keyOfLog(log, loc)] = log
	}
	return idx
}

// Resolve assigns a status to one candidate occurrence. A matching log
// is terminal and wins outright. Unlogged slots on past days are
// missed; on today they are missed only once the four-hour cutoff has
// passed; future days stay pending. Pure given its inputs.
func Resolve(occ Occurrence, logIndex map[slotKey]*DoseLog, now time.Time) Status {
	if log, ok := logIndex[keyOfOccurrence(occ)]; ok {
		return log.Status
	}

	today := now.Format(dateLayout)
	switch {
	case occ.Date < today:
		return StatusMissed
	case occ.Date > today:
		return StatusPending
	}

	scheduled, err := SlotInstant(occ.Date, occ.ScheduledTime, now.Location())
	if err != nil {
		return StatusPending
	}
	if PastCutoff(DiffMinutes(now, scheduled)) {
		return StatusMissed
	}
	return StatusPending
}

// ResolveAll resolves candidates in place, keeping one entry per slot.
// Used by the single-day view, where each expanded slot is shown with
// either its logged status or the derived one.
func ResolveAll(occs []Occurrence, logs []*DoseLog, now time.Time) {
	idx := indexLogs(logs, now.Location())
	for i := range occs {
		occs[i].Status = Resolve(occs[i], idx, now)
	}
}

// Merge combines expanded candidates with raw logs for multi-day
// views: candidates whose slot was logged are dropped, the rest are
// resolved, and one entry per log is appended carrying the logged
// status and the log's medication snapshot. Each slot-day pair appears
// exactly once, with the logged truth preferred.
func Merge(candidates []Occurrence, logs []*DoseLog, now time.Time) []Occurrence {
	idx := indexLogs(logs, now.Location())

	out := make([]Occurrence, 0, len(candidates)+len(logs))
	for _, occ := range candidates {
		if _, logged := idx[keyOfOccurrence(occ)]; logged {
			continue
		}
		occ.Status = Resolve(occ, idx, now)
		out = append(out, occ)
	}

	for _, log := range logs {
		occ := Occurrence{
			MedicationID:  log.MedicationID,
			ScheduledTime: log.ScheduledTime,
			Date:          log.CreatedAt.In(now.Location()).Format(dateLayout),
			Status:        log.Status,
		}
		if log.Medication != nil {
			occ.Medication = *log.Medication
		} else {
			occ.Medication = MedicationSummary{ID: log.MedicationID}
		}
		out = append(out, occ)
	}

	SortOccurrences(out)
	return out
}
