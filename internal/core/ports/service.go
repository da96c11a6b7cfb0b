package ports

import (
	"context"

	"github.com/IANDYI/journal-service/internal/core/domain"
	"github.com/google/uuid"
)

// EntryService defines the business logic behind the entries API
type EntryService interface {
	// ListEntries retrieves every entry owned by the user
	ListEntries(ctx context.Context, userID uuid.UUID) ([]*domain.TimelineEntry, error)

	// UpsertEntry validates the payload against the catalog and stores it
	UpsertEntry(ctx context.Context, userID uuid.UUID, req domain.UpsertEntryRequest) (*domain.TimelineEntry, error)

	// DeleteEntry removes the user's entry for a week
	DeleteEntry(ctx context.Context, userID uuid.UUID, week domain.Week) error
}

// Journal is one user's journal session: the timeline store, the week selection,
// the danger-sign modal and the save coordination
type Journal interface {
	Load(ctx context.Context) (map[domain.Week]domain.JournalEntry, error)
	Entry(week domain.Week) (domain.JournalEntry, error)

	ToggleHealthService(week domain.Week, serviceID string, checked bool) (domain.JournalEntry, error)
	// ToggleSymptom always applies the toggle; the warning is non-nil only when
	// a danger symptom went from unchecked to checked
	ToggleSymptom(week domain.Week, symptomID string, checked bool) (domain.JournalEntry, *domain.DangerWarning, error)
	SetNotes(week domain.Week, section domain.Section, text string) (domain.JournalEntry, error)

	Save(ctx context.Context, week domain.Week) (domain.JournalEntry, error)

	SelectTrimester(t domain.Trimester) (domain.Selection, error)
	SelectWeek(w domain.Week) (domain.Selection, error)
	Selection() domain.Selection
	Progress() domain.Progress

	ActiveWarning() *domain.DangerWarning
	DismissWarning() bool

	// Notifications drains the pending transient notifications
	Notifications() []domain.Notification
}

// JournalRegistry hands out the journal session of a user
type JournalRegistry interface {
	Journal(session domain.Session) Journal
}
