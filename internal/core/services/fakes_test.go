package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/IANDYI/journal-service/internal/core/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

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

// MockEntryRepository is a mock implementation of EntryRepository
type MockEntryRepository struct {
	mock.Mock
}

func (m *MockEntryRepository) ListEntries(ctx context.Context, userID uuid.UUID) ([]*domain.TimelineEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TimelineEntry), args.Error(1)
}

func (m *MockEntryRepository) UpsertEntry(ctx context.Context, entry *domain.TimelineEntry) (*domain.TimelineEntry, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TimelineEntry), args.Error(1)
}

func (m *MockEntryRepository) DeleteEntry(ctx context.Context, userID uuid.UUID, week domain.Week) error {
	args := m.Called(ctx, userID, week)
	return args.Error(0)
}

// recordingPublisher collects published warnings
type recordingPublisher struct {
	mu       sync.Mutex
	warnings []domain.DangerWarning
	done     chan struct{}
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{done: make(chan struct{}, 10)}
}

func (p *recordingPublisher) PublishWarning(ctx context.Context, warning domain.DangerWarning) error {
	p.mu.Lock()
	p.warnings = append(p.warnings, warning)
	p.mu.Unlock()
	p.done <- struct{}{}
	return nil
}

func (p *recordingPublisher) published() []domain.DangerWarning {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.DangerWarning(nil), p.warnings...)
}

// recordingNotifier collects notifications
type recordingNotifier struct {
	mu    sync.Mutex
	items []domain.Notification
}

func (n *recordingNotifier) Notify(item domain.Notification) {
	n.mu.Lock()
	n.items = append(n.items, item)
	n.mu.Unlock()
}

func (n *recordingNotifier) all() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Notification(nil), n.items...)
}

var testSession = domain.Session{UserID: "6f1c2a4e-0000-4000-8000-000000000001", Token: "token-abc"}

// testCatalog builds a small catalog with one danger and one normal symptom
func testCatalog(t *testing.T) *domain.Catalog {
	t.Helper()
	catalog, err := domain.NewCatalog(
		[]domain.HealthServiceDefinition{
			{ID: "bloodPressure", Title: "Pengukuran Tekanan Darah", RecommendedWeeks: []domain.Week{8, 20}},
			{ID: "weight", Title: "Penimbangan Berat Badan"},
		},
		[]domain.SymptomDefinition{
			{ID: "bleeding", Title: "Perdarahan", Description: "Keluar darah dari jalan lahir.", IsDanger: true},
			{ID: "fever", Title: "Demam Tinggi", IsDanger: true},
			{ID: "nausea", Title: "Mual dan Muntah"},
		},
		[]string{"Segera hubungi bidan atau dokter Anda."},
	)
	require.NoError(t, err)
	return catalog
}
