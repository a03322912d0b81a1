package adherence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medtrack/medtrack/internal/domain/medication"
)

const defaultStatsDays = 30

var (
	ErrDuplicateLog  = errors.New("dose already logged for this slot today")
	ErrRangeRequired = errors.New("startDate and endDate are required")
)

const missedOverrideMessage = "Dose marked as missed because it was more than 4 hours after scheduled time"

// MedicationSource supplies the caller's medications. Satisfied by the
// medication service.
type MedicationSource interface {
	Get(ctx context.Context, userID, id uuid.UUID) (*medication.Medication, error)
	ListActiveBetween(ctx context.Context, userID uuid.UUID, from, to medication.DateOnly) ([]*medication.Medication, error)
}

// Streaks maintains the per-user daily streak counter. Bump must be
// atomic: it increments at most once per calendar day and reports
// whether it did.
type Streaks interface {
	Bump(ctx context.Context, userID uuid.UUID, now time.Time) (int, bool, error)
	Current(ctx context.Context, userID uuid.UUID) (int, error)
}

// TxRunner wraps fn in a storage transaction. A nil runner executes fn
// directly, which is what tests use.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	logs    DoseLogRepository
	meds    MedicationSource
	streaks Streaks
	runTx   TxRunner
	now     func() time.Time
}

func NewService(logs DoseLogRepository, meds MedicationSource, streaks Streaks, runTx TxRunner) *Service {
	if runTx == nil {
		runTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		}
	}
	return &Service{logs: logs, meds: meds, streaks: streaks, runTx: runTx, now: time.Now}
}

// LogInput is a dose-log request. Status defaults to taken.
type LogInput struct {
	MedicationID  uuid.UUID `json:"medicationId"`
	ScheduledTime string    `json:"scheduledTime"`
	Status        Status    `json:"status"`
}

// LogResult carries the persisted log, the user's streak after the
// call, and a message explaining any automatic status override.
type LogResult struct {
	Message    string   `json:"message"`
	DoseLog    *DoseLog `json:"doseLog"`
	UserStreak int      `json:"userStreak"`
}

func dayBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}

// LogDose records a dose for one of the caller's medication slots,
// interpreted as today's instance of that slot. Logging "taken" more
// than four hours past the slot is overridden to missed. A second log
// for the same slot on the same day is rejected.
func (s *Service) LogDose(ctx context.Context, userID uuid.UUID, in LogInput) (*LogResult, error) {
	if !timeRE.MatchString(in.ScheduledTime) {
		return nil, fmt.Errorf("invalid scheduled time %q: expected 24-hour HH:MM", in.ScheduledTime)
	}
	if in.Status == "" {
		in.Status = StatusTaken
	}
	if !validLogStatuses[in.Status] {
		return nil, fmt.Errorf("invalid status %q: must be taken, missed, or skipped", in.Status)
	}

	med, err := s.meds.Get(ctx, userID, in.MedicationID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	scheduled, err := SlotInstant(now.Format(dateLayout), in.ScheduledTime, now.Location())
	if err != nil {
		return nil, err
	}
	diff := DiffMinutes(now, scheduled)

	finalStatus := in.Status
	message := "Dose logged successfully"
	if in.Status == StatusTaken && PastCutoff(diff) {
		finalStatus = StatusMissed
		message = missedOverrideMessage
	}

	dayStart, dayEnd := dayBounds(now)
	if _, err := s.logs.FindBySlot(ctx, userID, in.MedicationID, in.ScheduledTime, dayStart, dayEnd); err == nil {
		return nil, ErrDuplicateLog
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to check existing log: %w", err)
	}

	log := &DoseLog{
		MedicationID:  in.MedicationID,
		UserID:        userID,
		ScheduledTime: in.ScheduledTime,
		TakenAt:       now,
		Status:        finalStatus,
		WasLate:       WasLate(diff),
	}

	var streak int
	err = s.runTx(ctx, func(ctx context.Context) error {
		if err := s.logs.Create(ctx, log); err != nil {
			return fmt.Errorf("failed to create dose log: %w", err)
		}
		if finalStatus == StatusTaken {
			streak, _, err = s.streaks.Bump(ctx, userID, now)
			if err != nil {
				return fmt.Errorf("failed to update streak: %w", err)
			}
			return nil
		}
		streak, err = s.streaks.Current(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to read streak: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary := summaryOf(med)
	log.Medication = &summary

	return &LogResult{Message: message, DoseLog: log, UserStreak: streak}, nil
}

// TodaySchedule returns every slot expected today, ordered by time,
// each carrying either its logged status or the derived one.
func (s *Service) TodaySchedule(ctx context.Context, userID uuid.UUID) ([]Occurrence, error) {
	now := s.now()
	today := now.Format(dateLayout)
	day, err := medication.NewDateOnly(today)
	if err != nil {
		return nil, err
	}

	meds, err := s.meds.ListActiveBetween(ctx, userID, day, day)
	if err != nil {
		return nil, err
	}

	dayStart, dayEnd := dayBounds(now)
	logs, err := s.logs.ListByUser(ctx, userID, &dayStart, &dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load today's logs: %w", err)
	}

	occs := ExpandDay(meds, today, now.Location())
	ResolveAll(occs, logs, now)
	SortOccurrences(occs)

	// The single-day view omits the date field.
	for i := range occs {
		occs[i].Date = ""
	}
	if occs == nil {
		occs = []Occurrence{}
	}
	return occs, nil
}

func (s *Service) rangeBounds(from, to string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(dateLayout, from, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: expected YYYY-MM-DD", from)
	}
	end, err := time.ParseInLocation(dateLayout, to, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: expected YYYY-MM-DD", to)
	}
	return start, end.AddDate(0, 0, 1), nil
}

// RangeSchedule returns the merged schedule for each day in [from,
// to]: expanded slots with derived statuses plus one entry per actual
// log, each slot-day pair exactly once. Both bounds are required.
func (s *Service) RangeSchedule(ctx context.Context, userID uuid.UUID, from, to string) ([]Occurrence, error) {
	if from == "" || to == "" {
		return nil, ErrRangeRequired
	}
	now := s.now()
	loc := now.Location()

	rangeStart, rangeEnd, err := s.rangeBounds(from, to, loc)
	if err != nil {
		return nil, err
	}

	fromDay, err := medication.NewDateOnly(from)
	if err != nil {
		return nil, err
	}
	toDay, err := medication.NewDateOnly(to)
	if err != nil {
		return nil, err
	}

	meds, err := s.meds.ListActiveBetween(ctx, userID, fromDay, toDay)
	if err != nil {
		return nil, err
	}
	logs, err := s.logs.ListByUser(ctx, userID, &rangeStart, &rangeEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load logs: %w", err)
	}

	candidates, err := ExpandRange(meds, from, to, loc)
	if err != nil {
		return nil, err
	}

	merged := Merge(candidates, logs, now)
	if merged == nil {
		merged = []Occurrence{}
	}
	return merged, nil
}

// Stats computes adherence over [from, to], defaulting to the trailing
// 30 days ending today when no bounds are given. Logged doses count as
// recorded; unlogged slots count as missed once their day has passed
// or, on today, once the four-hour cutoff has.
func (s *Service) Stats(ctx context.Context, userID uuid.UUID, from, to string) (*Stats, error) {
	now := s.now()
	loc := now.Location()
	today := now.Format(dateLayout)

	if from == "" || to == "" {
		to = today
		from = now.AddDate(0, 0, -defaultStatsDays).Format(dateLayout)
	}

	rangeStart, rangeEnd, err := s.rangeBounds(from, to, loc)
	if err != nil {
		return nil, err
	}
	fromDay, err := medication.NewDateOnly(from)
	if err != nil {
		return nil, err
	}
	toDay, err := medication.NewDateOnly(to)
	if err != nil {
		return nil, err
	}

	meds, err := s.meds.ListActiveBetween(ctx, userID, fromDay, toDay)
	if err != nil {
		return nil, err
	}
	logs, err := s.logs.ListByUser(ctx, userID, &rangeStart, &rangeEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load logs: %w", err)
	}

	var doses []StatDose
	for _, log := range logs {
		name := ""
		if log.Medication != nil {
			name = log.Medication.Name
		}
		doses = append(doses, StatDose{
			MedicationID:   log.MedicationID,
			MedicationName: name,
			Date:           log.CreatedAt.In(loc).Format(dateLayout),
			Status:         log.Status,
		})
	}

	logged := indexLogs(logs, loc)
	for d := rangeStart; d.Before(rangeEnd); d = d.AddDate(0, 0, 1) {
		day := d.Format(dateLayout)
		if day > today {
			continue
		}
		for _, med := range meds {
			if !med.ActiveOn(day) {
				continue
			}
			for _, slot := range med.Times {
				if !timeRE.MatchString(slot) {
					continue
				}
				key := slotKey{medicationID: med.ID, scheduledTime: slot, date: day}
				if _, ok := logged[key]; ok {
					continue
				}
				if day == today {
					scheduled, err := SlotInstant(day, slot, loc)
					if err != nil {
						continue
					}
					if !PastCutoff(DiffMinutes(now, scheduled)) {
						continue
					}
				}
				doses = append(doses, StatDose{
					MedicationID:   med.ID,
					MedicationName: med.Name,
					Date:           day,
					Status:         StatusMissed,
				})
			}
		}
	}

	return Aggregate(doses), nil
}

// ListLogs returns the user's dose logs newest first, filtered to
// [from, to] when both bounds are given.
func (s *Service) ListLogs(ctx context.Context, userID uuid.UUID, from, to string) ([]*DoseLog, error) {
	var start, end *time.Time
	if from != "" && to != "" {
		rs, re, err := s.rangeBounds(from, to, s.now().Location())
		if err != nil {
			return nil, err
		}
		start, end = &rs, &re
	}
	logs, err := s.logs.ListByUser(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list dose logs: %w", err)
	}
	if logs == nil {
		logs = []*DoseLog{}
	}
	return logs, nil
}

func sortLogsAscending(logs []*DoseLog) {
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].CreatedAt.Before(logs[j].CreatedAt)
	})
}
