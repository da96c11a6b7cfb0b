package domain

import (
	"time"
)

// JournalEntryWire is the entries API representation of a journal entry
type JournalEntryWire struct {
	PregnancyWeek       int             `json:"pregnancy_week"`
	HealthServices      map[string]bool `json:"health_services"`
	Symptoms            map[string]bool `json:"symptoms"`
	HealthServicesNotes string          `json:"health_services_notes"`
	SymptomsNotes       string          `json:"symptoms_notes"`
	CreatedAt           string          `json:"created_at"`
	UpdatedAt           string          `json:"updated_at,omitempty"`
}

// UpsertEntryRequest is the body of POST /timeline/entries
type UpsertEntryRequest struct {
	PregnancyWeek       int             `json:"pregnancy_week"`
	HealthServices      map[string]bool `json:"health_services"`
	Symptoms            map[string]bool `json:"symptoms"`
	HealthServicesNotes string          `json:"health_services_notes"`
	SymptomsNotes       string          `json:"symptoms_notes"`
}

// ListEntriesResponse is the envelope of GET /timeline/entries
type ListEntriesResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Data    *ListEntriesData `json:"data,omitempty"`
}

type ListEntriesData struct {
	Entries []JournalEntryWire `json:"entries"`
}

// UpsertEntryResponse is the envelope of POST /timeline/entries
type UpsertEntryResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Data    *UpsertEntryData `json:"data,omitempty"`
}

type UpsertEntryData struct {
	Entry JournalEntryWire `json:"entry"`
}

// StatusResponse is the envelope used by DELETE and by every error answer
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ToJournalEntry converts a wire record into a journal entry
// Every optional field gets a defined default, so the conversion never fails;
// callers check Week.Valid() before storing the result
func (w JournalEntryWire) ToJournalEntry() JournalEntry {
	entry := NewJournalEntry(Week(w.PregnancyWeek))
	for k, v := range w.HealthServices {
		entry.HealthServices[k] = v
	}
	for k, v := range w.Symptoms {
		entry.Symptoms[k] = v
	}
	entry.HealthServicesNotes = w.HealthServicesNotes
	entry.SymptomsNotes = w.SymptomsNotes

	entry.Date = parseWireTime(w.UpdatedAt)
	if entry.Date.IsZero() {
		entry.Date = parseWireTime(w.CreatedAt)
	}
	return entry
}

// NewUpsertEntryRequest builds the save payload from an in-memory entry
func NewUpsertEntryRequest(e JournalEntry) UpsertEntryRequest {
	return UpsertEntryRequest{
		PregnancyWeek:       int(e.Week),
		HealthServices:      copyFlags(e.HealthServices),
		Symptoms:            copyFlags(e.Symptoms),
		HealthServicesNotes: e.HealthServicesNotes,
		SymptomsNotes:       e.SymptomsNotes,
	}
}

// parseWireTime accepts RFC3339 timestamps and plain ISO dates; anything else is zero
func parseWireTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
