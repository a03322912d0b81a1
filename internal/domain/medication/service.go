package medication

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound         = errors.New("medication not found")
	ErrCategoryNotFound = errors.New("category not found")
)

var timeRE = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// CategoryChecker verifies that a category exists and belongs to the
// user. Implemented by the category service and wired in main.
type CategoryChecker interface {
	CategoryExists(ctx context.Context, userID, id uuid.UUID) (bool, error)
}

type Service struct {
	repo       Repository
	categories CategoryChecker
}

func NewService(repo Repository, categories CategoryChecker) *Service {
	return &Service{repo: repo, categories: categories}
}

// Input carries the client-editable medication fields. Dates arrive as
// "YYYY-MM-DD" strings.
type Input struct {
	Name       string     `json:"name"`
	Dose       string     `json:"dose"`
	Frequency  int        `json:"frequency"`
	Times      []string   `json:"times"`
	StartDate  string     `json:"startDate"`
	EndDate    *string    `json:"endDate"`
	CategoryID *uuid.UUID `json:"categoryId"`
}

func (s *Service) validate(ctx context.Context, userID uuid.UUID, in Input) (*Medication, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Dose = strings.TrimSpace(in.Dose)

	if in.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if in.Dose == "" {
		return nil, fmt.Errorf("dose is required")
	}
	if in.Frequency < 1 {
		return nil, fmt.Errorf("frequency must be at least 1")
	}
	if len(in.Times) == 0 {
		return nil, fmt.Errorf("at least one scheduled time is required")
	}
	for _, tm := range in.Times {
		if !timeRE.MatchString(tm) {
			return nil, fmt.Errorf("invalid time %q: expected 24-hour HH:MM", tm)
		}
	}

	start, err := NewDateOnly(in.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date: %w", err)
	}
	var end *DateOnly
	if in.EndDate != nil && *in.EndDate != "" {
		e, err := NewDateOnly(*in.EndDate)
		if err != nil {
			return nil, fmt.Errorf("invalid end date: %w", err)
		}
		if e.String() < start.String() {
			return nil, fmt.Errorf("end date must not be before start date")
		}
		end = &e
	}

	if in.CategoryID != nil {
		ok, err := s.categories.CategoryExists(ctx, userID, *in.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to check category: %w", err)
		}
		if !ok {
			return nil, ErrCategoryNotFound
		}
	}

	return &Medication{
		UserID:     userID,
		Name:       in.Name,
		Dose:       in.Dose,
		Frequency:  in.Frequency,
		Times:      in.Times,
		StartDate:  start,
		EndDate:    end,
		CategoryID: in.CategoryID,
	}, nil
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, in Input) (*Medication, error) {
	m, err := s.validate(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create medication: %w", err)
	}
	return m, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Medication, error) {
	m, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load medication: %w", err)
	}
	return m, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*Medication, error) {
	meds, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	if meds == nil {
		meds = []*Medication{}
	}
	return meds, nil
}

// ListActiveBetween returns the user's medications whose date range
// overlaps the [from, to] window. Used by schedule expansion.
func (s *Service) ListActiveBetween(ctx context.Context, userID uuid.UUID, from, to DateOnly) ([]*Medication, error) {
	meds, err := s.repo.ListActiveBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	return meds, nil
}

func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, in Input) (*Medication, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	m, err := s.validate(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	m.ID = existing.ID
	m.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update medication: %w", err)
	}
	return m, nil
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete medication: %w", err)
	}
	return nil
}
