package handler_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/IANDYI/journal-service/internal/adapters/handler"
	"github.com/IANDYI/journal-service/internal/core/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEntriesHandler_ListEntries(t *testing.T) {
	service := new(MockEntryService)
	h := handler.NewEntriesHandler(service)
	userID := uuid.New()

	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	service.On("ListEntries", mock.Anything, userID).Return([]*domain.TimelineEntry{
		{UserID: userID, PregnancyWeek: 12, HealthServices: map[string]bool{"weight": true}, CreatedAt: created},
	}, nil)

	req := withCaller(httptest.NewRequest(http.MethodGet, "/timeline/entries", nil), userID.String(), "token")
	w := httptest.NewRecorder()
	h.ListEntries(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)

	var data domain.ListEntriesData
	decodeData(t, env, &data)
	require.Len(t, data.Entries, 1)
	assert.Equal(t, 12, data.Entries[0].PregnancyWeek)
	assert.Equal(t, "2024-05-01T09:00:00Z", data.Entries[0].CreatedAt)
	assert.NotNil(t, data.Entries[0].Symptoms)
}

func TestEntriesHandler_ListEntriesUnauthorized(t *testing.T) {
	h := handler.NewEntriesHandler(new(MockEntryService))

	w := httptest.NewRecorder()
	h.ListEntries(w, httptest.NewRequest(http.MethodGet, "/timeline/entries", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, decodeEnvelope(t, w).Success)
}

func TestEntriesHandler_InvalidUserID(t *testing.T) {
	h := handler.NewEntriesHandler(new(MockEntryService))

	req := withCaller(httptest.NewRequest(http.MethodGet, "/timeline/entries", nil), "not-a-uuid", "token")
	w := httptest.NewRecorder()
	h.ListEntries(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEntriesHandler_ListEntriesFailure(t *testing.T) {
	service := new(MockEntryService)
	h := handler.NewEntriesHandler(service)
	userID := uuid.New()

	service.On("ListEntries", mock.Anything, userID).Return(nil, errors.New("database unavailable"))

	req := withCaller(httptest.NewRequest(http.MethodGet, "/timeline/entries", nil), userID.String(), "token")
	w := httptest.NewRecorder()
	h.ListEntries(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "database unavailable")
}

func TestEntriesHandler_UpsertEntry(t *testing.T) {
	service := new(MockEntryService)
	h := handler.NewEntriesHandler(service)
	userID := uuid.New()

	expected := domain.UpsertEntryRequest{
		PregnancyWeek: 20,
		Symptoms:      map[string]bool{"bleeding": true},
		SymptomsNotes: "sedikit flek",
	}
	service.On("UpsertEntry", mock.Anything, userID, expected).Return(&domain.TimelineEntry{
		UserID:        userID,
		PregnancyWeek: 20,
		Symptoms:      map[string]bool{"bleeding": true},
		SymptomsNotes: "sedikit flek",
	}, nil).Once()

	body := `{"pregnancy_week": 20, "symptoms": {"bleeding": true}, "symptoms_notes": "sedikit flek"}`
	req := withCaller(httptest.NewRequest(http.MethodPost, "/timeline/entries", strings.NewReader(body)), userID.String(), "token")
	w := httptest.NewRecorder()
	h.UpsertEntry(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "timeline entry saved", env.Message)

	var data domain.UpsertEntryData
	decodeData(t, env, &data)
	assert.Equal(t, 20, data.Entry.PregnancyWeek)
	assert.Equal(t, "sedikit flek", data.Entry.SymptomsNotes)
	service.AssertExpectations(t)
}

func TestEntriesHandler_UpsertEntryErrors(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
	}{
		{name: "empty body", body: "", wantStatus: http.StatusBadRequest},
		{name: "malformed body", body: `{"pregnancy_week":`, wantStatus: http.StatusBadRequest},
		{name: "invalid week", body: `{"pregnancy_week": 41}`, serviceErr: domain.ErrInvalidWeek, wantStatus: http.StatusBadRequest},
		{name: "unknown symptom", body: `{"pregnancy_week": 4, "symptoms": {"x": true}}`, serviceErr: domain.ErrUnknownSymptom, wantStatus: http.StatusBadRequest},
		{name: "repository failure", body: `{"pregnancy_week": 4}`, serviceErr: errors.New("connection reset"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockEntryService)
			h := handler.NewEntriesHandler(service)
			if tt.serviceErr != nil {
				service.On("UpsertEntry", mock.Anything, userID, mock.Anything).Return(nil, tt.serviceErr)
			}

			req := withCaller(httptest.NewRequest(http.MethodPost, "/timeline/entries", strings.NewReader(tt.body)), userID.String(), "token")
			w := httptest.NewRecorder()
			h.UpsertEntry(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.False(t, decodeEnvelope(t, w).Success)
		})
	}
}

func TestEntriesHandler_DeleteEntry(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name       string
		week       string
		serviceErr error
		callsRepo  bool
		wantStatus int
	}{
		{name: "deleted", week: "8", callsRepo: true, wantStatus: http.StatusOK},
		{name: "not found", week: "8", serviceErr: domain.ErrEntryNotFound, callsRepo: true, wantStatus: http.StatusNotFound},
		{name: "not a number", week: "eight", wantStatus: http.StatusBadRequest},
		{name: "out of range", week: "0", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockEntryService)
			h := handler.NewEntriesHandler(service)
			if tt.callsRepo {
				service.On("DeleteEntry", mock.Anything, userID, domain.Week(8)).Return(tt.serviceErr).Once()
			}

			req := httptest.NewRequest(http.MethodDelete, "/timeline/entries/"+tt.week, nil)
			req.SetPathValue("week", tt.week)
			req = withCaller(req, userID.String(), "token")
			w := httptest.NewRecorder()
			h.DeleteEntry(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			service.AssertExpectations(t)
			if !tt.callsRepo {
				service.AssertNotCalled(t, "DeleteEntry", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}
