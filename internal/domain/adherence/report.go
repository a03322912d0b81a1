package adherence

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/google/uuid"
)

var csvHeader = []string{
	"log_id", "date", "time_taken", "scheduled_time", "medication_id",
	"medication_name", "dose", "category", "status", "was_late",
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// ExportCSV streams the user's dose logs for [from, to] as CSV, oldest
// first. Empty bounds default to the trailing 30 days ending today,
// matching the stats default.
func (s *Service) ExportCSV(ctx context.Context, userID uuid.UUID, from, to string, w io.Writer) error {
	now := s.now()
	if from == "" || to == "" {
		to = now.Format(dateLayout)
		from = now.AddDate(0, 0, -defaultStatsDays).Format(dateLayout)
	}

	logs, err := s.ListLogs(ctx, userID, from, to)
	if err != nil {
		return err
	}
	sortLogsAscending(logs)

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	loc := now.Location()
	for _, log := range logs {
		name, dose, categoryName := "", "", "None"
		if log.Medication != nil {
			name = log.Medication.Name
			dose = log.Medication.Dose
			if log.Medication.CategoryName != nil {
				categoryName = *log.Medication.CategoryName
			}
		}
		row := []string{
			log.ID.String(),
			log.CreatedAt.In(loc).Format(dateLayout),
			log.TakenAt.In(loc).Format("15:04:05"),
			log.ScheduledTime,
			log.MedicationID.String(),
			name,
			dose,
			categoryName,
			string(log.Status),
			yesNo(log.WasLate),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
