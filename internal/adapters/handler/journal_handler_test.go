package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/IANDYI/journal-service/internal/adapters/handler"
	"github.com/IANDYI/journal-service/internal/config"
	"github.com/IANDYI/journal-service/internal/core/domain"
	"github.com/IANDYI/journal-service/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	journalUser  = "6f1c2a4e-0000-4000-8000-000000000001"
	journalToken = "token-abc"
)

func newJournalHandler(t *testing.T) (*handler.JournalHandler, *MockTimelineGateway) {
	t.Helper()
	gateway := new(MockTimelineGateway)
	catalog := config.DefaultCatalog()
	registry := services.NewJournalRegistry(catalog, gateway, nil, time.Hour)
	t.Cleanup(registry.Stop)
	return handler.NewJournalHandler(registry, catalog), gateway
}

// journalRequest builds an authenticated request with the given path values
func journalRequest(method, target, body string, pathValues map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	return withCaller(req, journalUser, journalToken)
}

func TestJournalHandler_Catalog(t *testing.T) {
	h, _ := newJournalHandler(t)

	w := httptest.NewRecorder()
	h.Catalog(w, httptest.NewRequest(http.MethodGet, "/journal/catalog", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var data handler.CatalogResponse
	decodeData(t, decodeEnvelope(t, w), &data)
	assert.Len(t, data.HealthServices, 10)
	assert.Len(t, data.Symptoms, 14)
	require.Len(t, data.Trimesters, 3)
	assert.Equal(t, domain.Week(1), data.Trimesters[0].FirstWeek)
	assert.Equal(t, domain.Week(40), data.Trimesters[2].LastWeek)
}

func TestJournalHandler_Load(t *testing.T) {
	h, gateway := newJournalHandler(t)

	gateway.On("ListEntries", mock.Anything, domain.Session{UserID: journalUser, Token: journalToken}).Return([]domain.JournalEntryWire{
		{PregnancyWeek: 24, Symptoms: map[string]bool{"nausea": true}},
		{PregnancyWeek: 8, HealthServices: map[string]bool{"weight": true}},
	}, nil).Once()

	w := httptest.NewRecorder()
	h.Load(w, journalRequest(http.MethodPost, "/journal/load", "", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var data handler.LoadResponse
	decodeData(t, decodeEnvelope(t, w), &data)
	require.Len(t, data.Entries, 2)
	assert.Equal(t, domain.Week(8), data.Entries[0].Week)
	assert.Equal(t, domain.Week(24), data.Entries[1].Week)
	assert.Equal(t, 2, data.Progress.FilledWeeks)
	gateway.AssertExpectations(t)
}

func TestJournalHandler_LoadFailureIsRetryable(t *testing.T) {
	h, gateway := newJournalHandler(t)

	gateway.On("ListEntries", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: connection refused")).Once()

	w := httptest.NewRecorder()
	h.Load(w, journalRequest(http.MethodPost, "/journal/load", "", nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	env := decodeEnvelope(t, w)
	assert.False(t, env.Success)
	require.NotNil(t, env.Retryable)
	assert.True(t, *env.Retryable)
	assert.Equal(t, "Gagal memuat data timeline. Silakan coba lagi.", env.Message)
}

func TestJournalHandler_LoadWithoutCredential(t *testing.T) {
	h, gateway := newJournalHandler(t)

	req := withCaller(httptest.NewRequest(http.MethodPost, "/journal/load", nil), journalUser, "")
	w := httptest.NewRecorder()
	h.Load(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Retryable)
	assert.False(t, *env.Retryable)
	gateway.AssertNotCalled(t, "ListEntries", mock.Anything, mock.Anything)
}

func TestJournalHandler_NoSession(t *testing.T) {
	h, _ := newJournalHandler(t)

	w := httptest.NewRecorder()
	h.Progress(w, httptest.NewRequest(http.MethodGet, "/journal/progress", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJournalHandler_ToggleSymptomRaisesWarning(t *testing.T) {
	h, _ := newJournalHandler(t)
	paths := map[string]string{"week": "20", "symptomID": "bleeding"}

	w := httptest.NewRecorder()
	h.ToggleSymptom(w, journalRequest(http.MethodPut, "/journal/weeks/20/symptoms/bleeding", `{"checked": true}`, paths))

	assert.Equal(t, http.StatusOK, w.Code)
	var data handler.SymptomToggleResponse
	decodeData(t, decodeEnvelope(t, w), &data)
	assert.True(t, data.Entry.Symptoms["bleeding"], "the toggle is applied together with the warning")
	require.NotNil(t, data.Warning)
	assert.Equal(t, "Perdarahan", data.Warning.Title)
	assert.NotEmpty(t, data.Warning.EmergencyActions)

	// The modal stays open until dismissed
	w = httptest.NewRecorder()
	h.Warning(w, journalRequest(http.MethodGet, "/journal/warning", "", nil))
	var active domain.DangerWarning
	decodeData(t, decodeEnvelope(t, w), &active)
	assert.Equal(t, "bleeding", active.SymptomID)

	w = httptest.NewRecorder()
	h.DismissWarning(w, journalRequest(http.MethodDelete, "/journal/warning", "", nil))
	assert.Equal(t, "warning dismissed", decodeEnvelope(t, w).Message)

	// Dismissing leaves the symptom checked
	w = httptest.NewRecorder()
	h.Week(w, journalRequest(http.MethodGet, "/journal/weeks/20", "", map[string]string{"week": "20"}))
	var week handler.WeekResponse
	decodeData(t, decodeEnvelope(t, w), &week)
	assert.True(t, week.Entry.Symptoms["bleeding"])
	assert.True(t, week.Filled)
}

func TestJournalHandler_ToggleNormalSymptom(t *testing.T) {
	h, _ := newJournalHandler(t)
	paths := map[string]string{"week": "6", "symptomID": "nausea"}

	w := httptest.NewRecorder()
	h.ToggleSymptom(w, journalRequest(http.MethodPut, "/journal/weeks/6/symptoms/nausea", `{"checked": true}`, paths))

	assert.Equal(t, http.StatusOK, w.Code)
	var data handler.SymptomToggleResponse
	decodeData(t, decodeEnvelope(t, w), &data)
	assert.True(t, data.Entry.Symptoms["nausea"])
	assert.Nil(t, data.Warning)
}

func TestJournalHandler_ToggleBadRequests(t *testing.T) {
	tests := []struct {
		name  string
		paths map[string]string
		body  string
	}{
		{name: "missing checked", paths: map[string]string{"week": "6", "serviceID": "weight"}, body: `{}`},
		{name: "empty body", paths: map[string]string{"week": "6", "serviceID": "weight"}, body: ""},
		{name: "week out of range", paths: map[string]string{"week": "41", "serviceID": "weight"}, body: `{"checked": true}`},
		{name: "unknown service", paths: map[string]string{"week": "6", "serviceID": "xray"}, body: `{"checked": true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newJournalHandler(t)

			w := httptest.NewRecorder()
			h.ToggleHealthService(w, journalRequest(http.MethodPut, "/journal/weeks/x/health-services/y", tt.body, tt.paths))

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestJournalHandler_SetNotes(t *testing.T) {
	h, _ := newJournalHandler(t)

	w := httptest.NewRecorder()
	h.SetNotes(w, journalRequest(http.MethodPut, "/journal/weeks/12/notes/symptoms", `{"text": "mual pagi hari"}`,
		map[string]string{"week": "12", "section": "symptoms"}))

	assert.Equal(t, http.StatusOK, w.Code)
	var entry domain.JournalEntry
	decodeData(t, decodeEnvelope(t, w), &entry)
	assert.Equal(t, "mual pagi hari", entry.SymptomsNotes)

	w = httptest.NewRecorder()
	h.SetNotes(w, journalRequest(http.MethodPut, "/journal/weeks/12/notes/diet", `{"text": "x"}`,
		map[string]string{"week": "12", "section": "diet"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJournalHandler_SaveSuccess(t *testing.T) {
	h, gateway := newJournalHandler(t)

	w := httptest.NewRecorder()
	h.ToggleHealthService(w, journalRequest(http.MethodPut, "/journal/weeks/8/health-services/weight", `{"checked": true}`,
		map[string]string{"week": "8", "serviceID": "weight"}))
	require.Equal(t, http.StatusOK, w.Code)

	gateway.On("UpsertEntry", mock.Anything, mock.Anything, mock.MatchedBy(func(req domain.UpsertEntryRequest) bool {
		return req.PregnancyWeek == 8 && req.HealthServices["weight"]
	})).Return(domain.JournalEntryWire{
		PregnancyWeek:  8,
		HealthServices: map[string]bool{"weight": true},
		CreatedAt:      "2024-06-01T10:00:00Z",
	}, nil).Once()

	w = httptest.NewRecorder()
	h.Save(w, journalRequest(http.MethodPost, "/journal/weeks/8/save", "", map[string]string{"week": "8"}))

	assert.Equal(t, http.StatusOK, w.Code)
	var saved domain.JournalEntry
	decodeData(t, decodeEnvelope(t, w), &saved)
	assert.True(t, saved.HealthServices["weight"])
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), saved.Date.UTC())

	w = httptest.NewRecorder()
	h.Notifications(w, journalRequest(http.MethodGet, "/journal/notifications", "", nil))
	var notes []domain.Notification
	decodeData(t, decodeEnvelope(t, w), &notes)
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationSuccess, notes[0].Kind)
	gateway.AssertExpectations(t)
}

func TestJournalHandler_SaveNetworkFailureKeepsEdits(t *testing.T) {
	h, gateway := newJournalHandler(t)

	w := httptest.NewRecorder()
	h.SetNotes(w, journalRequest(http.MethodPut, "/journal/weeks/30/notes/health_services", `{"text": "tensi 120/80"}`,
		map[string]string{"week": "30", "section": "health_services"}))
	require.Equal(t, http.StatusOK, w.Code)

	gateway.On("UpsertEntry", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.JournalEntryWire{}, context.DeadlineExceeded).Once()

	w = httptest.NewRecorder()
	h.Save(w, journalRequest(http.MethodPost, "/journal/weeks/30/save", "", map[string]string{"week": "30"}))
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = httptest.NewRecorder()
	h.Week(w, journalRequest(http.MethodGet, "/journal/weeks/30", "", map[string]string{"week": "30"}))
	var week handler.WeekResponse
	decodeData(t, decodeEnvelope(t, w), &week)
	assert.Equal(t, "tensi 120/80", week.Entry.HealthServicesNotes)
}

func TestJournalHandler_SaveWithoutCredential(t *testing.T) {
	h, gateway := newJournalHandler(t)

	req := withCaller(httptest.NewRequest(http.MethodPost, "/journal/weeks/8/save", nil), journalUser, "")
	req.SetPathValue("week", "8")
	w := httptest.NewRecorder()
	h.Save(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	gateway.AssertNotCalled(t, "UpsertEntry", mock.Anything, mock.Anything, mock.Anything)
}

func TestJournalHandler_Selection(t *testing.T) {
	h, _ := newJournalHandler(t)

	w := httptest.NewRecorder()
	h.SelectTrimester(w, journalRequest(http.MethodPut, "/journal/selection/trimester/2", "", map[string]string{"trimester": "2"}))
	assert.Equal(t, http.StatusOK, w.Code)
	var selection domain.Selection
	decodeData(t, decodeEnvelope(t, w), &selection)
	assert.Equal(t, domain.Trimester(2), selection.Trimester)
	assert.Equal(t, domain.Week(13), selection.Week)

	w = httptest.NewRecorder()
	h.SelectWeek(w, journalRequest(http.MethodPut, "/journal/selection/week/30", "", map[string]string{"week": "30"}))
	assert.Equal(t, http.StatusOK, w.Code)
	decodeData(t, decodeEnvelope(t, w), &selection)
	assert.Equal(t, domain.Trimester(3), selection.Trimester)
	assert.Equal(t, domain.Week(30), selection.Week)

	w = httptest.NewRecorder()
	h.SelectTrimester(w, journalRequest(http.MethodPut, "/journal/selection/trimester/4", "", map[string]string{"trimester": "4"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJournalHandler_SaveRemoteStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		remote     *domain.RemoteError
		wantStatus int
	}{
		{name: "rejected payload", remote: &domain.RemoteError{StatusCode: http.StatusBadRequest, Message: "unknown symptom"}, wantStatus: http.StatusBadRequest},
		{name: "expired credential", remote: &domain.RemoteError{StatusCode: http.StatusUnauthorized}, wantStatus: http.StatusUnauthorized},
		{name: "server failure", remote: &domain.RemoteError{StatusCode: http.StatusInternalServerError}, wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, gateway := newJournalHandler(t)

			w := httptest.NewRecorder()
			h.SetNotes(w, journalRequest(http.MethodPut, "/journal/weeks/12/notes/symptoms", `{"text": "mual pagi"}`,
				map[string]string{"week": "12", "section": "symptoms"}))
			require.Equal(t, http.StatusOK, w.Code)

			gateway.On("UpsertEntry", mock.Anything, mock.Anything, mock.Anything).
				Return(domain.JournalEntryWire{}, tt.remote).Once()

			w = httptest.NewRecorder()
			h.Save(w, journalRequest(http.MethodPost, "/journal/weeks/12/save", "", map[string]string{"week": "12"}))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.False(t, decodeEnvelope(t, w).Success)
			gateway.AssertExpectations(t)
		})
	}
}
