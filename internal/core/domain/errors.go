package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthMissing is returned before any network call when the session has no credential
	ErrAuthMissing = errors.New("auth missing: no valid session credential")

	ErrLoadFailed     = errors.New("load timeline entries failed")
	ErrSaveFailed     = errors.New("save timeline entry failed")
	ErrSaveSuperseded = errors.New("save superseded by a newer save for the same week")

	ErrInvalidWeek          = errors.New("invalid pregnancy week")
	ErrInvalidTrimester     = errors.New("invalid trimester")
	ErrInvalidSection       = errors.New("invalid journal section")
	ErrUnknownHealthService = errors.New("unknown health service")
	ErrUnknownSymptom       = errors.New("unknown symptom")
	ErrEntryNotFound        = errors.New("timeline entry not found")
	ErrInvalidCatalog       = errors.New("invalid clinical catalog")
)

// RemoteError is a non-2xx or success=false answer from the entries API
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("remote error (status %d): %s", e.StatusCode, msg)
}

// ClientError reports whether the remote rejected the request itself (4xx)
func (e *RemoteError) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}
