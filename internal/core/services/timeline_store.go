package services

import (
	"context"
	"fmt"
	"log"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/IANDYI/journal-service/internal/core/domain"
	"github.com/IANDYI/journal-service/internal/core/ports"
)

// entryMap is never mutated after it is published
type entryMap = map[domain.Week]domain.JournalEntry

// TimelineStore is the single source of truth for the journal entries of a session
// Readers get immutable snapshots; writers serialize on mu and publish a new map
type TimelineStore struct {
	gateway ports.TimelineGateway
	session *SessionContext

	mu      sync.Mutex
	entries atomic.Pointer[entryMap]
}

// NewTimelineStore creates an empty store bound to a session
func NewTimelineStore(gateway ports.TimelineGateway, session *SessionContext) *TimelineStore {
	s := &TimelineStore{
		gateway: gateway,
		session: session,
	}
	empty := make(entryMap)
	s.entries.Store(&empty)
	return s
}

// Load fetches every entry of the user and replaces the in-memory map wholesale
// On failure the previous map is kept and the error is returned for display
func (s *TimelineStore) Load(ctx context.Context) (map[domain.Week]domain.JournalEntry, error) {
	session := s.session.Current()
	if !session.Authenticated() {
		return nil, fmt.Errorf("%w: %w", domain.ErrLoadFailed, domain.ErrAuthMissing)
	}

	records, err := s.gateway.ListEntries(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLoadFailed, err)
	}

	loaded := make(entryMap, len(records))
	for _, record := range records {
		entry := record.ToJournalEntry()
		if !entry.Week.Valid() {
			log.Printf("Skipping timeline entry with out-of-range week %d for user %s", record.PregnancyWeek, session.UserID)
			continue
		}
		loaded[entry.Week] = entry
	}

	s.mu.Lock()
	s.entries.Store(&loaded)
	s.mu.Unlock()

	return cloneEntries(loaded), nil
}

// Snapshot returns a private copy of the current week→entry map
func (s *TimelineStore) Snapshot() map[domain.Week]domain.JournalEntry {
	return cloneEntries(s.current())
}

// current returns the published map; callers must not write to it
func (s *TimelineStore) current() entryMap {
	return *s.entries.Load()
}

// Get returns the stored entry or a freshly synthesized empty one
func (s *TimelineStore) Get(week domain.Week) domain.JournalEntry {
	if entry, ok := s.current()[week]; ok {
		return entry.Clone()
	}
	return domain.NewJournalEntry(week)
}

// Has reports whether an entry exists for the week
func (s *TimelineStore) Has(week domain.Week) bool {
	_, ok := s.current()[week]
	return ok
}

// IsWeekFilled reports whether the week has an entry with content
func (s *TimelineStore) IsWeekFilled(week domain.Week) bool {
	entry, ok := s.current()[week]
	return ok && domain.IsWeekFilled(entry)
}

// SetField sets section[fieldID] = value on the week's entry (unsaved)
func (s *TimelineStore) SetField(week domain.Week, section domain.Section, fieldID string, value bool) (domain.JournalEntry, error) {
	entry, _, err := s.SwapField(week, section, fieldID, value)
	return entry, err
}

// SwapField is SetField that also reports the value it replaced
// Both happen under the writer lock, so concurrent swaps see each other's result
func (s *TimelineStore) SwapField(week domain.Week, section domain.Section, fieldID string, value bool) (domain.JournalEntry, bool, error) {
	var previous bool
	entry, err := s.update(week, func(e domain.JournalEntry) (domain.JournalEntry, error) {
		previous = e.Checked(section, fieldID)
		return e.WithField(section, fieldID, value)
	})
	if err != nil {
		return domain.JournalEntry{}, false, err
	}
	return entry, previous, nil
}

// SetNotes replaces the notes of a section on the week's entry (unsaved)
func (s *TimelineStore) SetNotes(week domain.Week, section domain.Section, text string) (domain.JournalEntry, error) {
	return s.update(week, func(e domain.JournalEntry) (domain.JournalEntry, error) {
		return e.WithNotes(section, text)
	})
}

// UpsertFromSave replaces the week's entry with the server-confirmed version
func (s *TimelineStore) UpsertFromSave(week domain.Week, saved domain.JournalEntry) domain.JournalEntry {
	saved = saved.Clone()
	saved.Week = week
	entry, _ := s.update(week, func(domain.JournalEntry) (domain.JournalEntry, error) {
		return saved, nil
	})
	return entry
}

// update applies fn to the current entry and publishes a new map containing the result
func (s *TimelineStore) update(week domain.Week, fn func(domain.JournalEntry) (domain.JournalEntry, error)) (domain.JournalEntry, error) {
	if !week.Valid() {
		return domain.JournalEntry{}, fmt.Errorf("%w: %d", domain.ErrInvalidWeek, int(week))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := *s.entries.Load()
	entry, ok := current[week]
	if !ok {
		entry = domain.NewJournalEntry(week)
	}

	updated, err := fn(entry)
	if err != nil {
		return domain.JournalEntry{}, err
	}

	next := maps.Clone(current)
	next[week] = updated
	s.entries.Store(&next)

	return updated.Clone(), nil
}

// cloneEntries deep-copies a week→entry map
func cloneEntries(in entryMap) map[domain.Week]domain.JournalEntry {
	out := make(map[domain.Week]domain.JournalEntry, len(in))
	for w, e := range in {
		out[w] = e.Clone()
	}
	return out
}
