package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/IANDYI/journal-service/internal/core/domain"
	"github.com/IANDYI/journal-service/internal/core/ports"
)

// Journal binds the timeline store, week selector, danger-sign detector and save
// coordinator of one user session
type Journal struct {
	catalog     *domain.Catalog
	session     *SessionContext
	store       *TimelineStore
	selector    *WeekSelector
	detector    *DangerSignDetector
	coordinator *SaveCoordinator
	inbox       *NotificationInbox
	publisher   ports.WarningPublisher
}

// NewJournal wires a journal session; publisher may be nil
func NewJournal(catalog *domain.Catalog, gateway ports.TimelineGateway, session *SessionContext, publisher ports.WarningPublisher) *Journal {
	store := NewTimelineStore(gateway, session)
	inbox := NewNotificationInbox(defaultInboxCapacity)
	return &Journal{
		catalog:     catalog,
		session:     session,
		store:       store,
		selector:    NewWeekSelector(),
		detector:    NewDangerSignDetector(catalog),
		coordinator: NewSaveCoordinator(store, gateway, session, inbox),
		inbox:       inbox,
		publisher:   publisher,
	}
}

// Load replaces the in-memory entries with the user's persisted entries
func (j *Journal) Load(ctx context.Context) (map[domain.Week]domain.JournalEntry, error) {
	return j.store.Load(ctx)
}

// Entry returns the week's entry, synthesizing an empty one when none exists
func (j *Journal) Entry(week domain.Week) (domain.JournalEntry, error) {
	if !week.Valid() {
		return domain.JournalEntry{}, fmt.Errorf("%w: %d", domain.ErrInvalidWeek, int(week))
	}
	return j.store.Get(week), nil
}

// ToggleHealthService checks or unchecks a health service (unsaved)
func (j *Journal) ToggleHealthService(week domain.Week, serviceID string, checked bool) (domain.JournalEntry, error) {
	if err := j.catalog.ValidateField(domain.SectionHealthServices, serviceID); err != nil {
		return domain.JournalEntry{}, err
	}
	return j.store.SetField(week, domain.SectionHealthServices, serviceID, checked)
}

// ToggleSymptom checks or unchecks a symptom (unsaved) and runs the danger-sign detector
func (j *Journal) ToggleSymptom(week domain.Week, symptomID string, checked bool) (domain.JournalEntry, *domain.DangerWarning, error) {
	if err := j.catalog.ValidateField(domain.SectionSymptoms, symptomID); err != nil {
		return domain.JournalEntry{}, nil, err
	}

	entry, previous, err := j.store.SwapField(week, domain.SectionSymptoms, symptomID, checked)
	if err != nil {
		return domain.JournalEntry{}, nil, err
	}

	// Re-checking an already checked box is not a transition
	if previous == checked {
		return entry, nil, nil
	}

	warning := j.detector.OnSymptomToggle(symptomID, checked)
	if warning == nil {
		return entry, nil, nil
	}

	session := j.session.Current()
	warning.Week = week
	warning.UserID = session.UserID
	j.detector.annotate(warning.ID, week, session.UserID)
	j.publishWarning(*warning)

	return entry, warning, nil
}

// SetNotes replaces a section's free-text notes (unsaved)
func (j *Journal) SetNotes(week domain.Week, section domain.Section, text string) (domain.JournalEntry, error) {
	return j.store.SetNotes(week, section, text)
}

// Save persists the week's entry
func (j *Journal) Save(ctx context.Context, week domain.Week) (domain.JournalEntry, error) {
	return j.coordinator.Save(ctx, week)
}

// SelectTrimester selects a trimester and resets the week to its first week
func (j *Journal) SelectTrimester(t domain.Trimester) (domain.Selection, error) {
	return j.selector.SelectTrimester(t)
}

// SelectWeek selects a week
func (j *Journal) SelectWeek(w domain.Week) (domain.Selection, error) {
	return j.selector.SelectWeek(w)
}

// Selection returns the current trimester/week selection
func (j *Journal) Selection() domain.Selection {
	return j.selector.Current()
}

// Progress returns the filled-weeks grid
func (j *Journal) Progress() domain.Progress {
	return BuildProgress(j.store.current(), j.catalog)
}

// ActiveWarning returns the open danger warning, if any
func (j *Journal) ActiveWarning() *domain.DangerWarning {
	return j.detector.Active()
}

// DismissWarning closes the danger warning modal; the symptom stays checked
func (j *Journal) DismissWarning() bool {
	return j.detector.Dismiss()
}

// Notifications drains the pending save notifications
func (j *Journal) Notifications() []domain.Notification {
	return j.inbox.Drain()
}

// publishWarning forwards the warning asynchronously; failures are only logged
func (j *Journal) publishWarning(warning domain.DangerWarning) {
	logWarning(warning)
	if j.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := j.publisher.PublishWarning(ctx, warning); err != nil {
			log.Printf("Failed to publish danger warning %s: %v", warning.ID, err)
		}
	}()
}

func logWarning(w domain.DangerWarning) {
	logEntry := map[string]interface{}{
		"event":          "danger_warning_raised",
		"warning_id":     w.ID.String(),
		"user_id":        w.UserID,
		"pregnancy_week": int(w.Week),
		"symptom_id":     w.SymptomID,
		"raised_at":      w.RaisedAt.Format(time.RFC3339),
	}
	jsonBytes, err := json.Marshal(logEntry)
	if err != nil {
		log.Printf("Failed to marshal warning log entry: %v", err)
		return
	}
	log.Printf("%s", string(jsonBytes))
}

// Ensure Journal implements the interface
var _ ports.Journal = (*Journal)(nil)
