package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/IANDYI/journal-service/internal/adapters/middleware"
	"github.com/IANDYI/journal-service/internal/core/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEntryService is a mock implementation of EntryService
type MockEntryService struct {
	mock.Mock
}

func (m *MockEntryService) ListEntries(ctx context.Context, userID uuid.UUID) ([]*domain.TimelineEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TimelineEntry), args.Error(1)
}

func (m *MockEntryService) UpsertEntry(ctx context.Context, userID uuid.UUID, req domain.UpsertEntryRequest) (*domain.TimelineEntry, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TimelineEntry), args.Error(1)
}

func (m *MockEntryService) DeleteEntry(ctx context.Context, userID uuid.UUID, week domain.Week) error {
	args := m.Called(ctx, userID, week)
	return args.Error(0)
}

// MockTimelineGateway is a mock implementation of TimelineGateway
type MockTimelineGateway struct {
	mock.Mock
}

func (m *MockTimelineGateway) ListEntries(ctx context.Context, session domain.Session) ([]domain.JournalEntryWire, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.JournalEntryWire), args.Error(1)
}

func (m *MockTimelineGateway) UpsertEntry(ctx context.Context, session domain.Session, req domain.UpsertEntryRequest) (domain.JournalEntryWire, error) {
	args := m.Called(ctx, session, req)
	return args.Get(0).(domain.JournalEntryWire), args.Error(1)
}

func (m *MockTimelineGateway) DeleteEntry(ctx context.Context, session domain.Session, week domain.Week) error {
	args := m.Called(ctx, session, week)
	return args.Error(0)
}

// withCaller attaches what the auth middleware would put on the request context
func withCaller(req *http.Request, userID, token string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	ctx = context.WithValue(ctx, middleware.RoleKey, "PARENT")
	ctx = context.WithValue(ctx, middleware.TokenKey, token)
	return req.WithContext(ctx)
}

// envelope is the decoded {success, message, data} answer
type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Retryable *bool           `json:"retryable"`
	Data      json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return env
}

func decodeData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	require.NotEmpty(t, env.Data)
	require.NoError(t, json.Unmarshal(env.Data, dst))
}
