package handler

import (
	"errors"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/IANDYI/journal-service/internal/adapters/middleware"
	"github.com/IANDYI/journal-service/internal/core/domain"
	"github.com/IANDYI/journal-service/internal/core/ports"
)

// JournalHandler serves the journal endpoints used by the pregnancy timeline UI
type JournalHandler struct {
	registry ports.JournalRegistry
	catalog  *domain.Catalog
}

// NewJournalHandler creates a new journal handler
func NewJournalHandler(registry ports.JournalRegistry, catalog *domain.Catalog) *JournalHandler {
	return &JournalHandler{
		registry: registry,
		catalog:  catalog,
	}
}

// DataResponse is the {success, message, data} envelope of journal answers
type DataResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// LoadErrorResponse is returned when the timeline could not be loaded
type LoadErrorResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// CatalogResponse describes the clinical catalog and trimester layout
type CatalogResponse struct {
	HealthServices   []domain.HealthServiceDefinition `json:"health_services"`
	Symptoms         []domain.SymptomDefinition       `json:"symptoms"`
	EmergencyActions []string                         `json:"emergency_actions"`
	Trimesters       []TrimesterRange                 `json:"trimesters"`
}

// TrimesterRange is the inclusive week range of a trimester
type TrimesterRange struct {
	Trimester domain.Trimester `json:"trimester"`
	FirstWeek domain.Week      `json:"first_week"`
	LastWeek  domain.Week      `json:"last_week"`
}

// LoadResponse carries the loaded entries and the derived progress grid
type LoadResponse struct {
	Entries  []domain.JournalEntry `json:"entries"`
	Progress domain.Progress       `json:"progress"`
}

// WeekResponse carries one week's entry and its derived state
type WeekResponse struct {
	Entry               domain.JournalEntry `json:"entry"`
	Filled              bool                `json:"filled"`
	RecommendedServices []string            `json:"recommended_services"`
}

// SymptomToggleResponse carries the updated entry and any danger warning raised
type SymptomToggleResponse struct {
	Entry   domain.JournalEntry   `json:"entry"`
	Warning *domain.DangerWarning `json:"warning"`
}

type checkedRequest struct {
	Checked *bool `json:"checked"`
}

type notesRequest struct {
	Text *string `json:"text"`
}

// Catalog handles GET /journal/catalog
func (h *JournalHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	trimesters := make([]TrimesterRange, 0, 3)
	for _, t := range []domain.Trimester{domain.TrimesterFirst, domain.TrimesterSecond, domain.TrimesterThird} {
		first, last, _ := t.Bounds()
		trimesters = append(trimesters, TrimesterRange{Trimester: t, FirstWeek: first, LastWeek: last})
	}

	writeJSON(w, http.StatusOK, DataResponse{
		Success: true,
		Data: CatalogResponse{
			HealthServices:   h.catalog.HealthServices(),
			Symptoms:         h.catalog.Symptoms(),
			EmergencyActions: h.catalog.EmergencyActions(),
			Trimesters:       trimesters,
		},
	})
}

// Load handles POST /journal/load
// Replaces the in-memory timeline with the user's persisted entries
func (h *JournalHandler) Load(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()

	session, journal, ok := h.journal(w, r, requestID)
	if !ok {
		return
	}

	entries, err := journal.Load(r.Context())
	if err != nil {
		JournalLoadsTotal.WithLabelValues("error").Inc()
		log.Printf("[%s] Failed to load timeline for user %s: %v", requestID, session.UserID, err)

		statusCode := http.StatusBadGateway
		response := LoadErrorResponse{
			Success:   false,
			Message:   "Gagal memuat data timeline. Silakan coba lagi.",
			Retryable: true,
		}
		if errors.Is(err, domain.ErrAuthMissing) {
			statusCode = http.StatusUnauthorized
			response.Message = "Sesi Anda telah berakhir. Silakan masuk kembali."
			response.Retryable = false
		}
		writeJSON(w, statusCode, response)
		h.log(requestID, session, r, statusCode, startTime)
		return
	}

	JournalLoadsTotal.WithLabelValues("success").Inc()

	list := make([]domain.JournalEntry, 0, len(entries))
	for _, e := range entries {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Week < list[j].Week })

	writeJSON(w, http.StatusOK, DataResponse{
		Success: true,
		Data: LoadResponse{
			Entries:  list,
			Progress: journal.Progress(),
		},
	})
	h.log(requestID, session, r, http.StatusOK, startTime)
}

// Progress handles GET /journal/progress
func (h *JournalHandler) Progress(w http.ResponseWriter, r *http.Request) {
	requestID := generateRequestID()
	_, journal, ok := h.journal(w, r, requestID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, DataResponse{Success: true, Data: journal.Progress()})
}

// Selection handles GET /journal/selection
func (h *JournalHandler) Selection(w http.ResponseWriter, r *http.Request) {
	requestID := generateRequestID()
	_, journal, ok := h.journal(w, r, requestID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, DataResponse{Success: true, Data: journal.Selection()})
}

// SelectTrimester handles PUT /journal/selection/trimester/{trimester}
func (h *JournalHandler) SelectTrimester(w http.ResponseWriter, r *http.Request) {
	requestID := generateRequestID()
	_, journal, ok := h.journal(w, r, requestID)
	if !ok {
		return
	}

	trimester, err := domain.ParseTrimester(r.PathValue("trimester"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	selection, err := journal.SelectTrimester(trimester)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, DataResponse{Success: true, Data: selection})
}

// SelectWeek handles PUT /journal/selection/week/{week}
func (h *JournalHandler) SelectWeek(w http.ResponseWriter, r *http.Request) {
	requestID := generateRequestID()
	_, journal, ok := h.journal(w, r, requestID)
	if !ok {
		return
	}

	week, err := domain.ParseWeek(r.PathValue("week"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	selection, err := journal.SelectWeek(week)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, DataResponse{Success: true, Data: selection})
}

// Week handles GET /journal/weeks/{week}
func (h *JournalHandler) Week(w http.ResponseWriter, r *http.Request) {
	requestID := generateRequestID()
	_, journal, ok := h.journal(w, r, requestID)
	if !ok {
		return
	}

	week, err := domain.ParseWeek(r.PathValue("week"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := journal.Entry(week)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, DataResponse{
		Success: true,
		Data: WeekResponse{
			Entry:               entry,
			Filled:              domain.IsWeekFilled(entry),
			RecommendedServices: h.catalog.RecommendedServiceIDs(week),
		},
	})
}

// ToggleHealthService handles PUT /journal/weeks/{week}/health-services/{serviceID}
func (h *JournalHandler) ToggleHealthService(w http.ResponseWriter, r *http.Request) {
	requestID := generateRequestID()
	_, journal, ok := h.journal(w, r, requestID)
	if !ok {
		return
	}

	week, checked, ok := parseToggle(w, r)
	if !ok {
		return
	}

	entry, err := journal.ToggleHealthService(week, r.PathValue("serviceID"), checked)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, DataResponse{Success: true, Data: entry})
}

// ToggleSymptom handles PUT /journal/weeks/{week}/symptoms/{symptomID}
// The toggle is applied even when a danger warning is raised
func (h *JournalHandler) ToggleSymptom(w http.ResponseWriter, r *http.Request) {
	requestID := generateRequestID()
	_, journal, ok := h.journal(w, r, requestID)
	if !ok {
		return
	}

	week, checked, ok := parseToggle(w, r)
	if !ok {
		return
	}

	entry, warning, err := journal.ToggleSymptom(week, r.PathValue("symptomID"), checked)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if warning != nil {
		DangerWarningsTotal.WithLabelValues(warning.SymptomID).Inc()
	}

	writeJSON(w, http.StatusOK, DataResponse{
		Success: true,
		Data:    SymptomToggleResponse{Entry: entry, Warning: warning},
	})
}

// SetNotes handles PUT /journal/weeks/{week}/notes/{section}
func (h *JournalHandler) SetNotes(w http.ResponseWriter, r *http.Request) {
	requestID := generateRequestID()
	_, journal, ok := h.journal(w, r, requestID)
	if !ok {
		return
	}

	week, err := domain.ParseWeek(r.PathValue("week"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	section, err := domain.ParseSection(r.PathValue("section"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req notesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Text == nil {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	entry, err := journal.SetNotes(week, section, *req.Text)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, DataResponse{Success: true, Data: entry})
}

// Save handles POST /journal/weeks/{week}/save
func (h *JournalHandler) Save(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()

	session, journal, ok := h.journal(w, r, requestID)
	if !ok {
		return
	}

	week, err := domain.ParseWeek(r.PathValue("week"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := journal.Save(r.Context(), week)
	if err != nil {
		statusCode := http.StatusBadGateway
		outcome := "error"
		if rejected, ok := remoteRejectionStatus(err); ok {
			statusCode = rejected
			outcome = "rejected"
		}
		switch {
		case errors.Is(err, domain.ErrSaveSuperseded):
			statusCode = http.StatusConflict
			outcome = "superseded"
		case errors.Is(err, domain.ErrAuthMissing):
			statusCode = http.StatusUnauthorized
		}
		JournalSavesTotal.WithLabelValues(outcome).Inc()
		log.Printf("[%s] Save of week %d failed for user %s: %v", requestID, int(week), session.UserID, err)
		writeError(w, statusCode, err.Error())
		h.log(requestID, session, r, statusCode, startTime)
		return
	}

	JournalSavesTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, DataResponse{Success: true, Data: entry})
	h.log(requestID, session, r, http.StatusOK, startTime)
}

// Warning handles GET /journal/warning
func (h *JournalHandler) Warning(w http.ResponseWriter, r *http.Request) {
	requestID := generateRequestID()
	_, journal, ok := h.journal(w, r, requestID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, DataResponse{Success: true, Data: journal.ActiveWarning()})
}

// DismissWarning handles DELETE /journal/warning
// Dismissing never unchecks the symptom
func (h *JournalHandler) DismissWarning(w http.ResponseWriter, r *http.Request) {
	requestID := generateRequestID()
	_, journal, ok := h.journal(w, r, requestID)
	if !ok {
		return
	}

	if !journal.DismissWarning() {
		writeJSON(w, http.StatusOK, DataResponse{Success: true, Message: "no active warning"})
		return
	}
	writeJSON(w, http.StatusOK, DataResponse{Success: true, Message: "warning dismissed"})
}

// Notifications handles GET /journal/notifications
func (h *JournalHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	requestID := generateRequestID()
	_, journal, ok := h.journal(w, r, requestID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, DataResponse{Success: true, Data: journal.Notifications()})
}

// journal resolves the caller's journal session, writing the error response when it cannot
func (h *JournalHandler) journal(w http.ResponseWriter, r *http.Request, requestID string) (domain.Session, ports.Journal, bool) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		log.Printf("[%s] Failed to get session from context", requestID)
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.Session{}, nil, false
	}
	return session, h.registry.Journal(session), true
}

func (h *JournalHandler) log(requestID string, session domain.Session, r *http.Request, statusCode int, startTime time.Time) {
	role, _ := middleware.GetRole(r.Context())
	logStructured(requestID, session.UserID, role, r.Method, r.URL.Path, statusCode, time.Since(startTime))
}

// parseToggle reads the week path value and the {"checked": bool} body
func parseToggle(w http.ResponseWriter, r *http.Request) (domain.Week, bool, bool) {
	week, err := domain.ParseWeek(r.PathValue("week"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, false, false
	}

	var req checkedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, false, false
	}
	if req.Checked == nil {
		writeError(w, http.StatusBadRequest, "checked is required")
		return 0, false, false
	}
	return week, *req.Checked, true
}
