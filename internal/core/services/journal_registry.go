package services

import (
	"log"
	"sync"
	"time"

	"github.com/IANDYI/journal-service/internal/core/domain"
	"github.com/IANDYI/journal-service/internal/core/ports"
)

const DefaultSessionIdleTimeout = 30 * time.Minute

// minJanitorInterval keeps very short idle timeouts from spinning the janitor
const minJanitorInterval = time.Second

type registryEntry struct {
	journal  *Journal
	session  *SessionContext
	lastSeen time.Time
}

// JournalRegistry keeps one journal session per user and evicts idle ones
type JournalRegistry struct {
	catalog     *domain.Catalog
	gateway     ports.TimelineGateway
	publisher   ports.WarningPublisher
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	journals map[string]*registryEntry

	janitorStop chan bool
	stopOnce    sync.Once
}

// NewJournalRegistry creates a registry and starts its idle-session janitor
func NewJournalRegistry(catalog *domain.Catalog, gateway ports.TimelineGateway, publisher ports.WarningPublisher, idleTimeout time.Duration) *JournalRegistry {
	if idleTimeout <= 0 {
		idleTimeout = DefaultSessionIdleTimeout
	}
	r := &JournalRegistry{
		catalog:     catalog,
		gateway:     gateway,
		publisher:   publisher,
		idleTimeout: idleTimeout,
		now:         time.Now,
		journals:    make(map[string]*registryEntry),
		janitorStop: make(chan bool),
	}

	go r.startJanitor(janitorInterval(idleTimeout))

	return r
}

func janitorInterval(idleTimeout time.Duration) time.Duration {
	return max(idleTimeout/2, minJanitorInterval)
}

// Journal returns the user's journal, creating it on first use
// The session's bearer credential is refreshed on every call
func (r *JournalRegistry) Journal(session domain.Session) ports.Journal {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.journals[session.UserID]
	if !ok {
		sc := NewSessionContext(session)
		entry = &registryEntry{
			journal: NewJournal(r.catalog, r.gateway, sc, r.publisher),
			session: sc,
		}
		r.journals[session.UserID] = entry
		log.Printf("Journal session opened for user %s (active sessions: %d)", session.UserID, len(r.journals))
	} else {
		entry.session.Refresh(session.Token)
	}
	entry.lastSeen = r.now()

	return entry.journal
}

// Len returns the number of live sessions
func (r *JournalRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.journals)
}

// EvictIdle drops sessions not used within the idle timeout
func (r *JournalRegistry) EvictIdle() int {
	cutoff := r.now().Add(-r.idleTimeout)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for userID, entry := range r.journals {
		if entry.lastSeen.Before(cutoff) {
			entry.session.Clear()
			delete(r.journals, userID)
			evicted++
		}
	}
	return evicted
}

// startJanitor periodically evicts idle sessions
func (r *JournalRegistry) startJanitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if evicted := r.EvictIdle(); evicted > 0 {
				log.Printf("Journal Janitor: Evicted %d idle sessions", evicted)
			}
		case <-r.janitorStop:
			return
		}
	}
}

// Stop stops the background janitor (for graceful shutdown)
func (r *JournalRegistry) Stop() {
	r.stopOnce.Do(func() { close(r.janitorStop) })
}

// Ensure JournalRegistry implements the interface
var _ ports.JournalRegistry = (*JournalRegistry)(nil)
