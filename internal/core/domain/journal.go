package domain

import (
	"fmt"
	"strings"
	"time"
)

// Section selects one of the two checklists of a journal entry (and its notes field)
type Section string

const (
	SectionHealthServices Section = "health_services"
	SectionSymptoms       Section = "symptoms"
)

// ParseSection accepts both the wire spelling and the URL-friendly spelling
func ParseSection(raw string) (Section, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "health_services", "health-services", "healthservices":
		return SectionHealthServices, nil
	case "symptoms":
		return SectionSymptoms, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSection, raw)
	}
}

// JournalEntry is the per-week record of completed health services, symptoms and notes
// An absent map key means unchecked
type JournalEntry struct {
	Week                Week            `json:"pregnancy_week"`
	Date                time.Time       `json:"date"`
	HealthServices      map[string]bool `json:"health_services"`
	Symptoms            map[string]bool `json:"symptoms"`
	HealthServicesNotes string          `json:"health_services_notes"`
	SymptomsNotes       string          `json:"symptoms_notes"`
}

// NewJournalEntry synthesizes an empty entry for a week with no record
func NewJournalEntry(week Week) JournalEntry {
	return JournalEntry{
		Week:           week,
		HealthServices: map[string]bool{},
		Symptoms:       map[string]bool{},
	}
}

// Clone returns a deep copy so callers can never reach shared maps
func (e JournalEntry) Clone() JournalEntry {
	out := e
	out.HealthServices = copyFlags(e.HealthServices)
	out.Symptoms = copyFlags(e.Symptoms)
	return out
}

// Checked reports the state of a checklist field; absent means false
func (e JournalEntry) Checked(section Section, fieldID string) bool {
	switch section {
	case SectionHealthServices:
		return e.HealthServices[fieldID]
	case SectionSymptoms:
		return e.Symptoms[fieldID]
	}
	return false
}

// Notes returns the free-text notes of a section
func (e JournalEntry) Notes(section Section) string {
	if section == SectionSymptoms {
		return e.SymptomsNotes
	}
	return e.HealthServicesNotes
}

// WithField returns a copy of the entry with section[fieldID] = value
// The receiver and its maps are left untouched
func (e JournalEntry) WithField(section Section, fieldID string, value bool) (JournalEntry, error) {
	out := e.Clone()
	switch section {
	case SectionHealthServices:
		out.HealthServices[fieldID] = value
	case SectionSymptoms:
		out.Symptoms[fieldID] = value
	default:
		return e, fmt.Errorf("%w: %q", ErrInvalidSection, string(section))
	}
	return out, nil
}

// WithNotes returns a copy of the entry with the section's notes replaced
func (e JournalEntry) WithNotes(section Section, text string) (JournalEntry, error) {
	out := e.Clone()
	switch section {
	case SectionHealthServices:
		out.HealthServicesNotes = text
	case SectionSymptoms:
		out.SymptomsNotes = text
	default:
		return e, fmt.Errorf("%w: %q", ErrInvalidSection, string(section))
	}
	return out, nil
}

// IsWeekFilled reports whether an entry carries any content:
// a checked health service, a checked symptom, or non-blank notes
func IsWeekFilled(e JournalEntry) bool {
	if anyChecked(e.HealthServices) || anyChecked(e.Symptoms) {
		return true
	}
	if strings.TrimSpace(e.HealthServicesNotes) != "" {
		return true
	}
	return strings.TrimSpace(e.SymptomsNotes) != ""
}

func anyChecked(flags map[string]bool) bool {
	for _, v := range flags {
		if v {
			return true
		}
	}
	return false
}

func copyFlags(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
