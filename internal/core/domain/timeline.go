package domain

import (
	"time"

	"github.com/google/uuid"
)

// TimelineEntry is a persisted journal entry, unique per (user, week)
type TimelineEntry struct {
	ID                  uuid.UUID       `json:"id"`
	UserID              uuid.UUID       `json:"user_id"`
	PregnancyWeek       Week            `json:"pregnancy_week"`
	HealthServices      map[string]bool `json:"health_services"`
	Symptoms            map[string]bool `json:"symptoms"`
	HealthServicesNotes string          `json:"health_services_notes"`
	SymptomsNotes       string          `json:"symptoms_notes"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// ToWire renders the stored record in the entries API format
func (t *TimelineEntry) ToWire() JournalEntryWire {
	wire := JournalEntryWire{
		PregnancyWeek:       int(t.PregnancyWeek),
		HealthServices:      copyFlags(t.HealthServices),
		Symptoms:            copyFlags(t.Symptoms),
		HealthServicesNotes: t.HealthServicesNotes,
		SymptomsNotes:       t.SymptomsNotes,
	}
	if !t.CreatedAt.IsZero() {
		wire.CreatedAt = t.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !t.UpdatedAt.IsZero() {
		wire.UpdatedAt = t.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return wire
}

// DangerWarning is the advisory event raised when a danger symptom gets checked
type DangerWarning struct {
	ID               uuid.UUID `json:"id"`
	Week             Week      `json:"pregnancy_week,omitempty"`
	UserID           string    `json:"user_id,omitempty"`
	SymptomID        string    `json:"symptom_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	EmergencyActions []string  `json:"emergency_actions"`
	RaisedAt         time.Time `json:"raised_at"`
}

// NotificationKind distinguishes transient success and error notifications
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

// Notification is a transient message for the UI, scoped to a week
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Week    Week             `json:"pregnancy_week"`
	Message string           `json:"message"`
	At      time.Time        `json:"at"`
}

// Selection is the trimester/week currently shown by the UI
type Selection struct {
	Trimester Trimester `json:"trimester"`
	Week      Week      `json:"week"`
	Weeks     []Week    `json:"weeks"`
}

// WeekStatus is one cell of the progress grid
type WeekStatus struct {
	Week                Week     `json:"week"`
	Filled              bool     `json:"filled"`
	RecommendedServices []string `json:"recommended_services"`
}

// TrimesterProgress is one row of the progress grid
type TrimesterProgress struct {
	Trimester Trimester    `json:"trimester"`
	Weeks     []WeekStatus `json:"weeks"`
	Filled    int          `json:"filled"`
}

// Progress is the derived "which weeks are filled" view
type Progress struct {
	Trimesters  []TrimesterProgress `json:"trimesters"`
	FilledWeeks int                 `json:"filled_weeks"`
	TotalWeeks  int                 `json:"total_weeks"`
}
