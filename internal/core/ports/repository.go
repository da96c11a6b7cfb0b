package ports

import (
	"context"

	"github.com/IANDYI/journal-service/internal/core/domain"
	"github.com/google/uuid"
)

// TimelineGateway is the remote persistence collaborator seen from the journal
// Every call carries the session whose bearer credential authorizes it
type TimelineGateway interface {
	// ListEntries fetches every entry of the session's user
	ListEntries(ctx context.Context, session domain.Session) ([]domain.JournalEntryWire, error)

	// UpsertEntry creates or replaces the entry for req.PregnancyWeek
	// Returns the server-confirmed record
	UpsertEntry(ctx context.Context, session domain.Session, req domain.UpsertEntryRequest) (domain.JournalEntryWire, error)

	// DeleteEntry removes the entry for a week
	DeleteEntry(ctx context.Context, session domain.Session, week domain.Week) error
}

// EntryRepository defines persistence of timeline entries behind the entries API
type EntryRepository interface {
	// ListEntries retrieves all entries of a user ordered by week
	ListEntries(ctx context.Context, userID uuid.UUID) ([]*domain.TimelineEntry, error)

	// UpsertEntry inserts or updates the (user, week) entry and returns the stored row
	UpsertEntry(ctx context.Context, entry *domain.TimelineEntry) (*domain.TimelineEntry, error)

	// DeleteEntry deletes the (user, week) entry
	// Returns domain.ErrEntryNotFound when nothing was deleted
	DeleteEntry(ctx context.Context, userID uuid.UUID, week domain.Week) error
}

// WarningPublisher forwards danger warnings to downstream consumers (midwife dashboards)
type WarningPublisher interface {
	PublishWarning(ctx context.Context, warning domain.DangerWarning) error
}

// WarningBroadcaster pushes consumed danger warnings to connected midwife dashboards
// It returns the number of dashboards the warning was handed to
type WarningBroadcaster interface {
	BroadcastWarning(ctx context.Context, warning domain.DangerWarning) (int, error)
}

// Notifier receives transient success/error notifications for the UI
type Notifier interface {
	Notify(n domain.Notification)
}
