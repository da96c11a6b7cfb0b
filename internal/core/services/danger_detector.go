package services

import (
	"sync"
	"time"

	"github.com/IANDYI/journal-service/internal/core/domain"
	"github.com/google/uuid"
)

// DangerSignDetector watches symptom toggles and opens the warning modal when a
// danger symptom gets checked. The warning never blocks or alters the toggle
type DangerSignDetector struct {
	catalog *domain.Catalog
	now     func() time.Time

	mu     sync.Mutex
	active *domain.DangerWarning
}

// NewDangerSignDetector creates a detector over the clinical catalog
func NewDangerSignDetector(catalog *domain.Catalog) *DangerSignDetector {
	return &DangerSignDetector{
		catalog: catalog,
		now:     time.Now,
	}
}

// OnSymptomToggle returns a warning only for an unchecked→checked transition of a
// danger symptom; unchecking, or toggling a normal symptom, returns nil
// A new warning replaces one that is still open
func (d *DangerSignDetector) OnSymptomToggle(symptomID string, newValue bool) *domain.DangerWarning {
	if !newValue {
		return nil
	}
	symptom, ok := d.catalog.Symptom(symptomID)
	if !ok || !symptom.IsDanger {
		return nil
	}

	warning := domain.DangerWarning{
		ID:               uuid.New(),
		SymptomID:        symptom.ID,
		Title:            symptom.Title,
		Description:      symptom.Description,
		EmergencyActions: d.catalog.EmergencyActions(),
		RaisedAt:         d.now(),
	}

	d.mu.Lock()
	d.active = &warning
	d.mu.Unlock()

	out := warning
	return &out
}

// Active returns the open warning, or nil when the modal is closed
func (d *DangerSignDetector) Active() *domain.DangerWarning {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return nil
	}
	out := *d.active
	return &out
}

// Dismiss closes the warning modal; it reports whether a warning was open
func (d *DangerSignDetector) Dismiss() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	open := d.active != nil
	d.active = nil
	return open
}

// annotate records the week and user of the open warning once the journal knows them
func (d *DangerSignDetector) annotate(id uuid.UUID, week domain.Week, userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active != nil && d.active.ID == id {
		d.active.Week = week
		d.active.UserID = userID
	}
}
