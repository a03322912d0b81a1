package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/medtrack/medtrack/internal/domain/medication"
)

const (
	ProviderGoogle = "google"

	calendarScope  = "https://www.googleapis.com/auth/calendar"
	defaultBaseURL = "https://www.googleapis.com/calendar/v3"

	eventDuration = 30 * time.Minute
	reminderLead  = 10 // minutes before the event
)

var ErrNotConnected = errors.New("google calendar is not connected for this user")

var timeRE = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// MedicationLister supplies the user's medications to sync. Satisfied
// by the medication service.
type MedicationLister interface {
	List(ctx context.Context, userID uuid.UUID) ([]*medication.Medication, error)
}

// Event is one recurring calendar entry derived from a medication
// slot.
type Event struct {
	MedicationName string
	ScheduledTime  string
	Summary        string
	Description    string
	Start          time.Time
	End            time.Time
	Recurrence     []string
}

// SyncResult reports the outcome of inserting one event.
type SyncResult struct {
	Medication string `json:"medication"`
	Time       string `json:"time"`
	Success    bool   `json:"success"`
	EventID    string `json:"eventId,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Syncer connects user accounts to Google Calendar and mirrors their
// medication schedule as recurring events.
type Syncer struct {
	oauth   *oauth2.Config
	store   CredentialStore
	meds    MedicationLister
	baseURL string
	client  *http.Client // nil means per-token oauth2 client
	now     func() time.Time
}

func NewSyncer(clientID, clientSecret, redirectURL string, store CredentialStore, meds MedicationLister) *Syncer {
	return &Syncer{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{calendarScope},
			Endpoint:     google.Endpoint,
		},
		store:   store,
		meds:    meds,
		baseURL: defaultBaseURL,
		now:     time.Now,
	}
}

// AuthURL builds the consent URL. The user id rides in the state
// parameter so the callback can attribute the tokens.
func (s *Syncer) AuthURL(userID uuid.UUID) string {
	return s.oauth.AuthCodeURL(userID.String(), oauth2.AccessTypeOffline)
}

// HandleCallback exchanges the authorization code and stores the
// resulting tokens against the user carried in state.
func (s *Syncer) HandleCallback(ctx context.Context, state, code string) error {
	userID, err := uuid.Parse(state)
	if err != nil {
		return fmt.Errorf("invalid state: %w", err)
	}
	if code == "" {
		return fmt.Errorf("authorization code is missing")
	}
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if err := s.store.Save(ctx, userID, ProviderGoogle, tok); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return nil
}

// BuildEvents derives the calendar events for a medication set. Each
// slot of each non-expired medication becomes a daily recurring event
// starting at the next upcoming instance of that slot.
func BuildEvents(meds []*medication.Medication, now time.Time) []Event {
	today := now.Format("2006-01-02")
	var events []Event
	for _, m := range meds {
		if m.EndDate != nil && m.EndDate.String() < today {
			continue
		}
		for _, slot := range m.Times {
			match := timeRE.FindStringSubmatch(slot)
			if match == nil {
				continue
			}
			var hour, minute int
			fmt.Sscanf(slot, "%d:%d", &hour, &minute)

			start := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
			if start.Before(now) {
				start = start.AddDate(0, 0, 1)
			}

			rule := "RRULE:FREQ=DAILY"
			if m.EndDate != nil {
				rule += ";UNTIL=" + strings.ReplaceAll(m.EndDate.String(), "-", "") + "T235959Z"
			}

			desc := "Medication reminder"
			if m.CategoryName != nil {
				desc += "\nCategory: " + *m.CategoryName
			}

			events = append(events, Event{
				MedicationName: m.Name,
				ScheduledTime:  slot,
				Summary:        fmt.Sprintf("Take %s (%s)", m.Name, m.Dose),
				Description:    desc,
				Start:          start,
				End:            start.Add(eventDuration),
				Recurrence:     []string{rule},
			})
		}
	}
	return events
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type reminderOverride struct {
	Method  string `json:"method"`
	Minutes int    `json:"minutes"`
}

type eventPayload struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
	Recurrence  []string  `json:"recurrence"`
	Reminders   struct {
		UseDefault bool               `json:"useDefault"`
		Overrides  []reminderOverride `json:"overrides"`
	} `json:"reminders"`
}

// Sync inserts one recurring event per medication slot into the
// user's primary calendar. Per-event failures are reported in the
// result list rather than aborting the whole sync.
func (s *Syncer) Sync(ctx context.Context, userID uuid.UUID) ([]SyncResult, error) {
	tok, err := s.store.Get(ctx, userID, ProviderGoogle)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotConnected
		}
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	meds, err := s.meds.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	client := s.client
	if client == nil {
		client = s.oauth.Client(ctx, tok)
	}

	now := s.now()
	tz := now.Location().String()
	results := make([]SyncResult, 0)
	for _, ev := range BuildEvents(meds, now) {
		result := SyncResult{Medication: ev.MedicationName, Time: ev.ScheduledTime}

		payload := eventPayload{
			Summary:     ev.Summary,
			Description: ev.Description,
			Start:       eventTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: tz},
			End:         eventTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: tz},
			Recurrence:  ev.Recurrence,
		}
		payload.Reminders.Overrides = []reminderOverride{{Method: "popup", Minutes: reminderLead}}

		id, err := s.insertEvent(ctx, client, payload)
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Success = true
			result.EventID = id
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *Syncer) insertEvent(ctx context.Context, client *http.Client, payload eventPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/calendars/primary/events", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("calendar api returned %s", resp.Status)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode event response: %w", err)
	}
	return out.ID, nil
}
