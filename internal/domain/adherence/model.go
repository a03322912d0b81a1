package adherence

import (
	"time"

	"github.com/google/uuid"
)

// Status is the adherence state of a single dose slot. Pending is only
// ever derived at read time; the other three are persisted by a log.
type Status string

const (
	StatusPending Status = "pending"
	StatusTaken   Status = "taken"
	StatusMissed  Status = "missed"
	StatusSkipped Status = "skipped"
)

// validLogStatuses are the statuses a client may submit when logging a
// dose. Pending is excluded: it is never persisted.
var validLogStatuses = map[Status]bool{
	StatusTaken:   true,
	StatusMissed:  true,
	StatusSkipped: true,
}

// MedicationSummary is the denormalized medication snapshot attached to
// schedule entries and dose logs.
type MedicationSummary struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Dose         string    `json:"dose"`
	CategoryName *string   `json:"category,omitempty"`
}

// DoseLog records one dose event against a medication slot.
// ScheduledTime is the "HH:MM" slot the log answers for, not the
// actual time taken. The calendar day it belongs to is the day of
// CreatedAt.
type DoseLog struct {
	ID            uuid.UUID          `json:"id"`
	MedicationID  uuid.UUID          `json:"medicationId"`
	UserID        uuid.UUID          `json:"userId"`
	ScheduledTime string             `json:"scheduledTime"`
	TakenAt       time.Time          `json:"takenAt"`
	Status        Status             `json:"status"`
	WasLate       bool               `json:"wasLate"`
	Medication    *MedicationSummary `json:"medication,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// Occurrence is one expected dose slot on one calendar day, resolved to
// a status. It exists only in memory; schedule views are built from
// occurrences per request. Date is empty in the single-day view.
type Occurrence struct {
	MedicationID  uuid.UUID         `json:"medicationId"`
	Medication    MedicationSummary `json:"medication"`
	ScheduledTime string            `json:"scheduledTime"`
	Date          string            `json:"date,omitempty"`
	Status        Status            `json:"status"`
}
