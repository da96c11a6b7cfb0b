package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/IANDYI/journal-service/internal/core/domain"
	"github.com/IANDYI/journal-service/internal/core/ports"
)

// pendingSave is the in-flight save of one week
type pendingSave struct {
	seq    uint64
	cancel context.CancelFunc
}

// SaveCoordinator persists the selected week's entry through the gateway
// One network write per Save call, no retry, no debouncing.
// A newer save of the same week cancels the pending one, so the store always
// ends up with the result of the latest intent
type SaveCoordinator struct {
	store    *TimelineStore
	gateway  ports.TimelineGateway
	session  *SessionContext
	notifier ports.Notifier

	mu       sync.Mutex
	seq      uint64
	inflight map[domain.Week]pendingSave
}

// NewSaveCoordinator creates a save coordinator; notifier may be nil
func NewSaveCoordinator(store *TimelineStore, gateway ports.TimelineGateway, session *SessionContext, notifier ports.Notifier) *SaveCoordinator {
	return &SaveCoordinator{
		store:    store,
		gateway:  gateway,
		session:  session,
		notifier: notifier,
		inflight: make(map[domain.Week]pendingSave),
	}
}

// Save persists the in-memory entry of a week
// On success the store holds the server-confirmed entry; on failure the store
// is left untouched so the unsaved edits survive for a retry
func (c *SaveCoordinator) Save(ctx context.Context, week domain.Week) (domain.JournalEntry, error) {
	startTime := time.Now()

	if !week.Valid() {
		return domain.JournalEntry{}, fmt.Errorf("%w: %w: %d", domain.ErrSaveFailed, domain.ErrInvalidWeek, int(week))
	}

	session := c.session.Current()
	if !session.Authenticated() {
		err := fmt.Errorf("%w: %w", domain.ErrSaveFailed, domain.ErrAuthMissing)
		c.notifyFailure(week, err)
		return domain.JournalEntry{}, err
	}

	saveCtx, seq := c.begin(ctx, week)

	entry := c.store.Get(week)
	req := domain.NewUpsertEntryRequest(entry)

	wire, err := c.gateway.UpsertEntry(saveCtx, session, req)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.finishLocked(week, seq) {
		c.logSave(session, week, "superseded", time.Since(startTime), err)
		return domain.JournalEntry{}, fmt.Errorf("%w: week %d", domain.ErrSaveSuperseded, int(week))
	}

	if err != nil {
		c.logSave(session, week, "failed", time.Since(startTime), err)
		wrapped := fmt.Errorf("%w: %w", domain.ErrSaveFailed, err)
		c.notifyFailure(week, wrapped)
		return domain.JournalEntry{}, wrapped
	}

	saved := wire.ToJournalEntry()
	if saved.Week != week {
		log.Printf("Entries API echoed week %d for a save of week %d, keeping %d", int(saved.Week), int(week), int(week))
	}
	if saved.Date.IsZero() {
		saved.Date = time.Now().UTC()
	}
	// Applied under c.mu so a newer save of the same week cannot land first
	confirmed := c.store.UpsertFromSave(week, saved)

	c.logSave(session, week, "saved", time.Since(startTime), nil)
	c.notify(domain.Notification{
		Kind:    domain.NotificationSuccess,
		Week:    week,
		Message: fmt.Sprintf("Catatan minggu ke-%d berhasil disimpan", int(week)),
	})

	return confirmed, nil
}

// Pending reports whether a save of the week is in flight
func (c *SaveCoordinator) Pending(week domain.Week) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[week]
	return ok
}

// begin registers a new save for the week and cancels the one it supersedes
func (c *SaveCoordinator) begin(ctx context.Context, week domain.Week) (context.Context, uint64) {
	saveCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.inflight[week]; ok {
		prev.cancel()
	}
	c.seq++
	c.inflight[week] = pendingSave{seq: c.seq, cancel: cancel}
	return saveCtx, c.seq
}

// finishLocked releases the week's slot; false means a newer save owns it
func (c *SaveCoordinator) finishLocked(week domain.Week, seq uint64) bool {
	current, ok := c.inflight[week]
	if !ok || current.seq != seq {
		return false
	}
	current.cancel()
	delete(c.inflight, week)
	return true
}

func (c *SaveCoordinator) notifyFailure(week domain.Week, err error) {
	c.notify(domain.Notification{
		Kind:    domain.NotificationError,
		Week:    week,
		Message: fmt.Sprintf("Gagal menyimpan catatan minggu ke-%d: %s", int(week), failureReason(err)),
	})
}

func (c *SaveCoordinator) notify(n domain.Notification) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(n)
}

// failureReason picks the most useful message for the user
func failureReason(err error) string {
	var remote *domain.RemoteError
	switch {
	case errors.As(err, &remote) && remote.Message != "":
		return remote.Message
	case errors.Is(err, domain.ErrAuthMissing):
		return "sesi berakhir, silakan masuk kembali"
	default:
		return err.Error()
	}
}

// logSave logs structured JSON for save attempts
func (c *SaveCoordinator) logSave(session domain.Session, week domain.Week, outcome string, duration time.Duration, err error) {
	logEntry := map[string]interface{}{
		"event":          "journal_save",
		"outcome":        outcome,
		"user_id":        session.UserID,
		"pregnancy_week": int(week),
		"duration_ms":    duration.Milliseconds(),
	}
	if err != nil {
		logEntry["error"] = err.Error()
	}

	jsonBytes, marshalErr := json.Marshal(logEntry)
	if marshalErr != nil {
		log.Printf("Failed to marshal save log entry: %v", marshalErr)
		return
	}
	log.Printf("%s", string(jsonBytes))
}
