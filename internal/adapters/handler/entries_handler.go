package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/IANDYI/journal-service/internal/adapters/middleware"
	"github.com/IANDYI/journal-service/internal/core/domain"
	"github.com/IANDYI/journal-service/internal/core/ports"
	"github.com/google/uuid"
)

// EntriesHandler serves the timeline entries API
type EntriesHandler struct {
	entryService ports.EntryService
}

// NewEntriesHandler creates a new entries handler
func NewEntriesHandler(entryService ports.EntryService) *EntriesHandler {
	return &EntriesHandler{
		entryService: entryService,
	}
}

// ListEntries handles GET /timeline/entries
func (h *EntriesHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()

	userID, role, ok := h.caller(w, r, requestID)
	if !ok {
		return
	}

	entries, err := h.entryService.ListEntries(r.Context(), userID)
	if err != nil {
		log.Printf("[%s] Failed to list entries for user %s: %v", requestID, userID, err)
		writeError(w, http.StatusInternalServerError, "failed to list timeline entries")
		logStructured(requestID, userID.String(), role, r.Method, r.URL.Path, http.StatusInternalServerError, time.Since(startTime))
		return
	}

	wire := make([]domain.JournalEntryWire, 0, len(entries))
	for _, e := range entries {
		wire = append(wire, e.ToWire())
	}

	writeJSON(w, http.StatusOK, domain.ListEntriesResponse{
		Success: true,
		Data:    &domain.ListEntriesData{Entries: wire},
	})
	logStructured(requestID, userID.String(), role, r.Method, r.URL.Path, http.StatusOK, time.Since(startTime))
}

// UpsertEntry handles POST /timeline/entries
func (h *EntriesHandler) UpsertEntry(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()

	userID, role, ok := h.caller(w, r, requestID)
	if !ok {
		return
	}

	var req domain.UpsertEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		logStructured(requestID, userID.String(), role, r.Method, r.URL.Path, http.StatusBadRequest, time.Since(startTime))
		return
	}

	entry, err := h.entryService.UpsertEntry(r.Context(), userID, req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		message := "failed to save timeline entry"
		if isValidationError(err) {
			statusCode = http.StatusBadRequest
			message = err.Error()
		} else {
			log.Printf("[%s] Failed to upsert entry week %d for user %s: %v", requestID, req.PregnancyWeek, userID, err)
		}
		EntriesUpsertedTotal.WithLabelValues("error").Inc()
		writeError(w, statusCode, message)
		logStructured(requestID, userID.String(), role, r.Method, r.URL.Path, statusCode, time.Since(startTime))
		return
	}

	EntriesUpsertedTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, domain.UpsertEntryResponse{
		Success: true,
		Message: "timeline entry saved",
		Data:    &domain.UpsertEntryData{Entry: entry.ToWire()},
	})
	logStructured(requestID, userID.String(), role, r.Method, r.URL.Path, http.StatusOK, time.Since(startTime))
}

// DeleteEntry handles DELETE /timeline/entries/{week}
func (h *EntriesHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()

	userID, role, ok := h.caller(w, r, requestID)
	if !ok {
		return
	}

	week, err := domain.ParseWeek(r.PathValue("week"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		logStructured(requestID, userID.String(), role, r.Method, r.URL.Path, http.StatusBadRequest, time.Since(startTime))
		return
	}

	if err := h.entryService.DeleteEntry(r.Context(), userID, week); err != nil {
		statusCode := http.StatusInternalServerError
		message := "failed to delete timeline entry"
		switch {
		case errors.Is(err, domain.ErrEntryNotFound):
			statusCode = http.StatusNotFound
			message = "timeline entry not found"
		case isValidationError(err):
			statusCode = http.StatusBadRequest
			message = err.Error()
		default:
			log.Printf("[%s] Failed to delete entry week %d for user %s: %v", requestID, int(week), userID, err)
		}
		writeError(w, statusCode, message)
		logStructured(requestID, userID.String(), role, r.Method, r.URL.Path, statusCode, time.Since(startTime))
		return
	}

	writeJSON(w, http.StatusOK, domain.StatusResponse{Success: true, Message: "timeline entry deleted"})
	logStructured(requestID, userID.String(), role, r.Method, r.URL.Path, http.StatusOK, time.Since(startTime))
}

// caller resolves the authenticated user id, writing the error response when it cannot
func (h *EntriesHandler) caller(w http.ResponseWriter, r *http.Request, requestID string) (uuid.UUID, string, bool) {
	userIDStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		log.Printf("[%s] Failed to get user ID from context", requestID)
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, "", false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		log.Printf("[%s] Invalid user ID: %v", requestID, err)
		writeError(w, http.StatusBadRequest, "invalid user ID")
		return uuid.Nil, "", false
	}

	role, _ := middleware.GetRole(r.Context())
	return userID, role, true
}
