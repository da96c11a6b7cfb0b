package services

import (
	"sync"

	"github.com/IANDYI/journal-service/internal/core/domain"
)

// SessionContext is the explicit credential holder handed to the store and the
// save coordinator; the registry refreshes the token as new requests arrive
type SessionContext struct {
	mu      sync.RWMutex
	session domain.Session
}

// NewSessionContext creates a session context for a user
func NewSessionContext(session domain.Session) *SessionContext {
	return &SessionContext{session: session}
}

// Current returns the session as of now
func (s *SessionContext) Current() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Refresh replaces the bearer credential
func (s *SessionContext) Refresh(token string) {
	s.mu.Lock()
	s.session.Token = token
	s.mu.Unlock()
}

// Clear drops the credential, e.g. after sign-out
func (s *SessionContext) Clear() {
	s.Refresh("")
}
