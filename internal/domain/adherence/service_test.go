package adherence

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medtrack/medtrack/internal/domain/medication"
)

type mockLogRepo struct {
	logs []*DoseLog
}

func (m *mockLogRepo) Create(ctx context.Context, log *DoseLog) error {
	log.ID = uuid.New()
	log.CreatedAt = log.TakenAt
	log.UpdatedAt = log.TakenAt
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockLogRepo) ListByUser(ctx context.Context, userID uuid.UUID, from, to *time.Time) ([]*DoseLog, error) {
	var out []*DoseLog
	for _, l := range m.logs {
		if l.UserID != userID {
			continue
		}
		if from != nil && l.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && !l.CreatedAt.Before(*to) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (m *mockLogRepo) FindBySlot(ctx context.Context, userID, medicationID uuid.UUID, scheduledTime string, dayStart, dayEnd time.Time) (*DoseLog, error) {
	for _, l := range m.logs {
		if l.UserID == userID && l.MedicationID == medicationID && l.ScheduledTime == scheduledTime &&
			!l.CreatedAt.Before(dayStart) && l.CreatedAt.Before(dayEnd) {
			return l, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type mockMedSource struct {
	meds map[uuid.UUID]*medication.Medication
}

func (m *mockMedSource) Get(ctx context.Context, userID, id uuid.UUID) (*medication.Medication, error) {
	med, ok := m.meds[id]
	if !ok || med.UserID != userID {
		return nil, medication.ErrNotFound
	}
	return med, nil
}

func (m *mockMedSource) ListActiveBetween(ctx context.Context, userID uuid.UUID, from, to medication.DateOnly) ([]*medication.Medication, error) {
	var out []*medication.Medication
	for _, med := range m.meds {
		if med.UserID != userID {
			continue
		}
		if med.StartDate.String() > to.String() {
			continue
		}
		if med.EndDate != nil && med.EndDate.String() < from.String() {
			continue
		}
		out = append(out, med)
	}
	return out, nil
}

type mockStreaks struct {
	streak   int
	lastBump *time.Time
}

func (m *mockStreaks) Bump(ctx context.Context, userID uuid.UUID, now time.Time) (int, bool, error) {
	if m.lastBump != nil {
		ly, lm, ld := m.lastBump.Date()
		ny, nm, nd := now.Date()
		if ly == ny && lm == nm && ld == nd {
			return m.streak, false, nil
		}
	}
	m.streak++
	t := now
	m.lastBump = &t
	return m.streak, true, nil
}

func (m *mockStreaks) Current(ctx context.Context, userID uuid.UUID) (int, error) {
	return m.streak, nil
}

type fixture struct {
	svc     *Service
	logs    *mockLogRepo
	meds    *mockMedSource
	streaks *mockStreaks
	userID  uuid.UUID
	now     time.Time
}

// newFixture pins now to 13:00 UTC on 2026-03-10.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	logs := &mockLogRepo{}
	meds := &mockMedSource{meds: map[uuid.UUID]*medication.Medication{}}
	streaks := &mockStreaks{}
	svc := NewService(logs, meds, streaks, nil)
	now := time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return &fixture{svc: svc, logs: logs, meds: meds, streaks: streaks, userID: uuid.New(), now: now}
}

func (f *fixture) addMed(t *testing.T, name, start string, times ...string) *medication.Medication {
	t.Helper()
	med := testMed(t, name, start, nil, times...)
	med.UserID = f.userID
	f.meds.meds[med.ID] = med
	return med
}

func TestLogDose(t *testing.T) {
	f := newFixture(t)
	med := f.addMed(t, "Lisinopril", "2026-03-01", "08:00", "12:45", "20:00")

	// 12:45 is 15 minutes before now: inside the window, not late.
	result, err := f.svc.LogDose(context.Background(), f.userID, LogInput{
		MedicationID: med.ID, ScheduledTime: "12:45",
	})
	if err != nil {
		t.Fatalf("LogDose failed: %v", err)
	}
	if result.DoseLog.Status != StatusTaken {
		t.Errorf("expected default status taken, got %s", result.DoseLog.Status)
	}
	if result.DoseLog.WasLate {
		t.Error("dose within 30 minutes must not be late")
	}
	if result.UserStreak != 1 {
		t.Errorf("expected streak 1, got %d", result.UserStreak)
	}
	if result.DoseLog.Medication == nil || result.DoseLog.Medication.Name != "Lisinopril" {
		t.Errorf("expected medication snapshot on response: %+v", result.DoseLog)
	}
}

func TestLogDose_Late(t *testing.T) {
	f := newFixture(t)
	med := f.addMed(t, "Lisinopril", "2026-03-01", "12:00")

	// 12:00 is 60 minutes before now: late but still loggable.
	result, err := f.svc.LogDose(context.Background(), f.userID, LogInput{
		MedicationID: med.ID, ScheduledTime: "12:00",
	})
	if err != nil {
		t.Fatalf("LogDose failed: %v", err)
	}
	if result.DoseLog.Status != StatusTaken {
		t.Errorf("expected taken, got %s", result.DoseLog.Status)
	}
	if !result.DoseLog.WasLate {
		t.Error("dose 60 minutes after slot must be late")
	}
}

func TestLogDose_CutoffOverride(t *testing.T) {
	f := newFixture(t)
	med := f.addMed(t, "Lisinopril", "2026-03-01", "08:00")

	// 08:00 is 300 minutes before now: past the four-hour cutoff.
	result, err := f.svc.LogDose(context.Background(), f.userID, LogInput{
		MedicationID: med.ID, ScheduledTime: "08:00", Status: StatusTaken,
	})
	if err != nil {
		t.Fatalf("LogDose failed: %v", err)
	}
	if result.DoseLog.Status != StatusMissed {
		t.Errorf("expected override to missed, got %s", result.DoseLog.Status)
	}
	if result.DoseLog.WasLate {
		t.Error("past-cutoff dose is not late, it is missed")
	}
	if !strings.Contains(result.Message, "more than 4 hours") {
		t.Errorf("expected explanatory message, got %q", result.Message)
	}
	if f.streaks.streak != 0 {
		t.Errorf("missed dose must not bump streak, got %d", f.streaks.streak)
	}
}

func TestLogDose_SkippedKeepsStreak(t *testing.T) {
	f := newFixture(t)
	med := f.addMed(t, "Lisinopril", "2026-03-01", "12:45")
	f.streaks.streak = 3

	result, err := f.svc.LogDose(context.Background(), f.userID, LogInput{
		MedicationID: med.ID, ScheduledTime: "12:45", Status: StatusSkipped,
	})
	if err != nil {
		t.Fatalf("LogDose failed: %v", err)
	}
	if result.DoseLog.Status != StatusSkipped {
		t.Errorf("expected skipped, got %s", result.DoseLog.Status)
	}
	if result.UserStreak != 3 {
		t.Errorf("expected unchanged streak 3, got %d", result.UserStreak)
	}
}

func TestLogDose_StreakOncePerDay(t *testing.T) {
	f := newFixture(t)
	med := f.addMed(t, "Lisinopril", "2026-03-01", "12:00", "12:45")
	f.streaks.streak = 3
	yesterday := f.now.AddDate(0, 0, -1)
	f.streaks.lastBump = &yesterday

	first, err := f.svc.LogDose(context.Background(), f.userID, LogInput{MedicationID: med.ID, ScheduledTime: "12:00"})
	if err != nil {
		t.Fatalf("first LogDose failed: %v", err)
	}
	if first.UserStreak != 4 {
		t.Errorf("first taken dose: expected streak 4, got %d", first.UserStreak)
	}

	second, err := f.svc.LogDose(context.Background(), f.userID, LogInput{MedicationID: med.ID, ScheduledTime: "12:45"})
	if err != nil {
		t.Fatalf("second LogDose failed: %v", err)
	}
	if second.UserStreak != 4 {
		t.Errorf("second taken dose same day: expected streak still 4, got %d", second.UserStreak)
	}
}

func TestLogDose_Duplicate(t *testing.T) {
	f := newFixture(t)
	med := f.addMed(t, "Lisinopril", "2026-03-01", "12:45")

	if _, err := f.svc.LogDose(context.Background(), f.userID, LogInput{MedicationID: med.ID, ScheduledTime: "12:45"}); err != nil {
		t.Fatalf("first LogDose failed: %v", err)
	}
	if _, err := f.svc.LogDose(context.Background(), f.userID, LogInput{MedicationID: med.ID, ScheduledTime: "12:45"}); !errors.Is(err, ErrDuplicateLog) {
		t.Errorf("expected ErrDuplicateLog, got %v", err)
	}
	if len(f.logs.logs) != 1 {
		t.Errorf("duplicate must not persist, have %d logs", len(f.logs.logs))
	}
}

func TestLogDose_UnknownMedication(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.LogDose(context.Background(), f.userID, LogInput{MedicationID: uuid.New(), ScheduledTime: "12:00"}); !errors.Is(err, medication.ErrNotFound) {
		t.Errorf("expected medication.ErrNotFound, got %v", err)
	}
}

func TestLogDose_OtherUsersMedication(t *testing.T) {
	f := newFixture(t)
	med := f.addMed(t, "Lisinopril", "2026-03-01", "12:00")
	if _, err := f.svc.LogDose(context.Background(), uuid.New(), LogInput{MedicationID: med.ID, ScheduledTime: "12:00"}); !errors.Is(err, medication.ErrNotFound) {
		t.Errorf("expected medication.ErrNotFound for other user, got %v", err)
	}
}

func TestLogDose_Validation(t *testing.T) {
	f := newFixture(t)
	med := f.addMed(t, "Lisinopril", "2026-03-01", "12:00")

	if _, err := f.svc.LogDose(context.Background(), f.userID, LogInput{MedicationID: med.ID, ScheduledTime: "noon"}); err == nil {
		t.Error("expected error for malformed time")
	}
	if _, err := f.svc.LogDose(context.Background(), f.userID, LogInput{MedicationID: med.ID, ScheduledTime: "12:00", Status: "pending"}); err == nil {
		t.Error("expected error for non-loggable status")
	}
}

func TestTodaySchedule(t *testing.T) {
	f := newFixture(t)
	med := f.addMed(t, "Lisinopril", "2026-03-01", "08:00", "20:00")

	// A log answers for the 08:00 slot, which would otherwise derive
	// to missed at 13:00.
	f.logs.logs = append(f.logs.logs, &DoseLog{
		ID: uuid.New(), MedicationID: med.ID, UserID: f.userID,
		ScheduledTime: "08:00", Status: StatusTaken,
		TakenAt:   time.Date(2026, 3, 10, 8, 10, 0, 0, time.UTC),
		CreatedAt: time.Date(2026, 3, 10, 8, 10, 0, 0, time.UTC),
	})

	schedule, err := f.svc.TodaySchedule(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("TodaySchedule failed: %v", err)
	}
	if len(schedule) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(schedule))
	}
	if schedule[0].ScheduledTime != "08:00" || schedule[0].Status != StatusTaken {
		t.Errorf("unexpected first slot: %+v", schedule[0])
	}
	if schedule[1].ScheduledTime != "20:00" || schedule[1].Status != StatusPending {
		t.Errorf("unexpected second slot: %+v", schedule[1])
	}
	if schedule[0].Date != "" {
		t.Errorf("single-day view must omit the date, got %q", schedule[0].Date)
	}
}

func TestTodaySchedule_UnloggedPastCutoff(t *testing.T) {
	f := newFixture(t)
	f.addMed(t, "Lisinopril", "2026-03-01", "08:00")

	schedule, err := f.svc.TodaySchedule(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("TodaySchedule failed: %v", err)
	}
	if len(schedule) != 1 || schedule[0].Status != StatusMissed {
		t.Errorf("expected derived missed, got %+v", schedule)
	}
}

func TestRangeSchedule_RequiresBounds(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.RangeSchedule(context.Background(), f.userID, "", "2026-03-10"); !errors.Is(err, ErrRangeRequired) {
		t.Errorf("expected ErrRangeRequired, got %v", err)
	}
	if _, err := f.svc.RangeSchedule(context.Background(), f.userID, "2026-03-08", ""); !errors.Is(err, ErrRangeRequired) {
		t.Errorf("expected ErrRangeRequired, got %v", err)
	}
}

func TestRangeSchedule(t *testing.T) {
	f := newFixture(t)
	med := f.addMed(t, "Lisinopril", "2026-03-01", "08:00", "20:00")

	f.logs.logs = append(f.logs.logs, &DoseLog{
		ID: uuid.New(), MedicationID: med.ID, UserID: f.userID,
		ScheduledTime: "08:00", Status: StatusTaken,
		Medication: &MedicationSummary{ID: med.ID, Name: "Lisinopril", Dose: "10mg"},
		TakenAt:    time.Date(2026, 3, 8, 8, 10, 0, 0, time.UTC),
		CreatedAt:  time.Date(2026, 3, 8, 8, 10, 0, 0, time.UTC),
	})

	schedule, err := f.svc.RangeSchedule(context.Background(), f.userID, "2026-03-08", "2026-03-09")
	if err != nil {
		t.Fatalf("RangeSchedule failed: %v", err)
	}
	if len(schedule) != 4 {
		t.Fatalf("expected 4 entries over 2 days, got %d", len(schedule))
	}

	byKey := map[string]Status{}
	for _, occ := range schedule {
		byKey[occ.Date+" "+occ.ScheduledTime] = occ.Status
	}
	if byKey["2026-03-08 08:00"] != StatusTaken {
		t.Errorf("logged slot: expected taken, got %s", byKey["2026-03-08 08:00"])
	}
	for _, key := range []string{"2026-03-08 20:00", "2026-03-09 08:00", "2026-03-09 20:00"} {
		if byKey[key] != StatusMissed {
			t.Errorf("unlogged past slot %s: expected missed, got %s", key, byKey[key])
		}
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	med := f.addMed(t, "Lisinopril", "2026-03-01", "08:00", "20:00")

	addLog := func(day int, slot string, status Status, hour, minute int) {
		at := time.Date(2026, 3, day, hour, minute, 0, 0, time.UTC)
		f.logs.logs = append(f.logs.logs, &DoseLog{
			ID: uuid.New(), MedicationID: med.ID, UserID: f.userID,
			ScheduledTime: slot, Status: status,
			Medication: &MedicationSummary{ID: med.ID, Name: "Lisinopril"},
			TakenAt:    at, CreatedAt: at,
		})
	}
	// Day 8: both taken. Day 9: morning taken, evening logged missed.
	addLog(8, "08:00", StatusTaken, 8, 5)
	addLog(8, "20:00", StatusTaken, 20, 10)
	addLog(9, "08:00", StatusTaken, 8, 0)
	addLog(9, "20:00", StatusMissed, 23, 0)
	// Day 10 (today, 13:00): 08:00 unlogged and past cutoff counts as
	// missed; 20:00 is still pending and excluded.

	stats, err := f.svc.Stats(context.Background(), f.userID, "2026-03-08", "2026-03-10")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.Overall != 0.6 {
		t.Errorf("expected overall 0.6, got %v", stats.Overall)
	}
	if len(stats.ByMedication) != 1 {
		t.Fatalf("expected one medication group, got %d", len(stats.ByMedication))
	}
	m := stats.ByMedication[0]
	if m.Total != 5 || m.Taken != 3 || m.Missed != 2 {
		t.Errorf("unexpected medication counts: %+v", m)
	}
	if len(stats.ByDay) != 3 {
		t.Fatalf("expected 3 day groups, got %d", len(stats.ByDay))
	}
	if stats.ByDay[2].Date != "2026-03-10" || stats.ByDay[2].Total != 1 || stats.ByDay[2].Missed != 1 {
		t.Errorf("unexpected today counts: %+v", stats.ByDay[2])
	}
}

func TestStats_DefaultRange(t *testing.T) {
	f := newFixture(t)
	med := f.addMed(t, "Lisinopril", "2026-03-09", "08:00")

	at := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	f.logs.logs = append(f.logs.logs, &DoseLog{
		ID: uuid.New(), MedicationID: med.ID, UserID: f.userID,
		ScheduledTime: "08:00", Status: StatusTaken,
		Medication: &MedicationSummary{ID: med.ID, Name: "Lisinopril"},
		TakenAt:    at, CreatedAt: at,
	})

	stats, err := f.svc.Stats(context.Background(), f.userID, "", "")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	// Trailing 30 days covers the 9th (taken) and today's unlogged
	// past-cutoff slot (missed).
	if stats.Overall != 0.5 {
		t.Errorf("expected overall 0.5, got %v", stats.Overall)
	}
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	med := f.addMed(t, "Lisinopril", "2026-03-01", "08:00")

	at := time.Date(2026, 3, 9, 8, 40, 0, 0, time.UTC)
	cat := "Heart"
	f.logs.logs = append(f.logs.logs, &DoseLog{
		ID: uuid.New(), MedicationID: med.ID, UserID: f.userID,
		ScheduledTime: "08:00", Status: StatusTaken, WasLate: true,
		Medication: &MedicationSummary{ID: med.ID, Name: "Lisinopril", Dose: "10mg", CategoryName: &cat},
		TakenAt:    at, CreatedAt: at,
	})

	var buf bytes.Buffer
	if err := f.svc.ExportCSV(context.Background(), f.userID, "2026-03-08", "2026-03-10", &buf); err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "log_id,date,time_taken") {
		t.Errorf("unexpected header %q", lines[0])
	}
	row := lines[1]
	for _, want := range []string{"2026-03-09", "08:40:00", "08:00", "Lisinopril", "10mg", "Heart", "taken", "Yes"} {
		if !strings.Contains(row, want) {
			t.Errorf("row missing %q: %q", want, row)
		}
	}
}
