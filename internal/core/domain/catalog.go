package domain

import (
	"fmt"
	"sort"
)

// HealthServiceDefinition describes an antenatal health service the mother can tick off
type HealthServiceDefinition struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	RecommendedWeeks []Week `json:"recommended_weeks"`
}

// RecommendedFor reports whether the service is clinically recommended in the given week
func (d HealthServiceDefinition) RecommendedFor(w Week) bool {
	for _, rw := range d.RecommendedWeeks {
		if rw == w {
			return true
		}
	}
	return false
}

// SymptomDefinition describes a symptom; danger symptoms warrant urgent medical contact
type SymptomDefinition struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	IsDanger    bool   `json:"is_danger"`
}

// Catalog is the immutable clinical catalog, built once at startup and referenced by id
type Catalog struct {
	healthServices   []HealthServiceDefinition
	servicesByID     map[string]int
	symptoms         []SymptomDefinition
	symptomsByID     map[string]int
	emergencyActions []string
}

// NewCatalog validates the definitions and freezes them into lookup tables
func NewCatalog(services []HealthServiceDefinition, symptoms []SymptomDefinition, emergencyActions []string) (*Catalog, error) {
	c := &Catalog{
		healthServices:   make([]HealthServiceDefinition, 0, len(services)),
		servicesByID:     make(map[string]int, len(services)),
		symptoms:         make([]SymptomDefinition, 0, len(symptoms)),
		symptomsByID:     make(map[string]int, len(symptoms)),
		emergencyActions: append([]string(nil), emergencyActions...),
	}

	for _, svc := range services {
		if svc.ID == "" {
			return nil, fmt.Errorf("%w: health service with empty id", ErrInvalidCatalog)
		}
		if _, dup := c.servicesByID[svc.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate health service %q", ErrInvalidCatalog, svc.ID)
		}
		weeks := append([]Week(nil), svc.RecommendedWeeks...)
		for _, w := range weeks {
			if !w.Valid() {
				return nil, fmt.Errorf("%w: health service %q recommends week %d", ErrInvalidCatalog, svc.ID, int(w))
			}
		}
		sort.Slice(weeks, func(i, j int) bool { return weeks[i] < weeks[j] })
		svc.RecommendedWeeks = weeks
		c.servicesByID[svc.ID] = len(c.healthServices)
		c.healthServices = append(c.healthServices, svc)
	}

	for _, sym := range symptoms {
		if sym.ID == "" {
			return nil, fmt.Errorf("%w: symptom with empty id", ErrInvalidCatalog)
		}
		if _, dup := c.symptomsByID[sym.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate symptom %q", ErrInvalidCatalog, sym.ID)
		}
		c.symptomsByID[sym.ID] = len(c.symptoms)
		c.symptoms = append(c.symptoms, sym)
	}

	return c, nil
}

// HealthServices returns the health service definitions in catalog order
func (c *Catalog) HealthServices() []HealthServiceDefinition {
	out := make([]HealthServiceDefinition, len(c.healthServices))
	copy(out, c.healthServices)
	return out
}

// Symptoms returns the symptom definitions in catalog order
func (c *Catalog) Symptoms() []SymptomDefinition {
	out := make([]SymptomDefinition, len(c.symptoms))
	copy(out, c.symptoms)
	return out
}

// HealthService looks up a health service by id
func (c *Catalog) HealthService(id string) (HealthServiceDefinition, bool) {
	idx, ok := c.servicesByID[id]
	if !ok {
		return HealthServiceDefinition{}, false
	}
	return c.healthServices[idx], true
}

// Symptom looks up a symptom by id
func (c *Catalog) Symptom(id string) (SymptomDefinition, bool) {
	idx, ok := c.symptomsByID[id]
	if !ok {
		return SymptomDefinition{}, false
	}
	return c.symptoms[idx], true
}

// EmergencyActions returns the fixed list of actions shown with every danger warning
func (c *Catalog) EmergencyActions() []string {
	return append([]string(nil), c.emergencyActions...)
}

// RecommendedServiceIDs returns the ids of the services recommended for a week
func (c *Catalog) RecommendedServiceIDs(w Week) []string {
	ids := make([]string, 0)
	for _, svc := range c.healthServices {
		if svc.RecommendedFor(w) {
			ids = append(ids, svc.ID)
		}
	}
	return ids
}

// ValidateField checks that fieldID is a known id of the given section
func (c *Catalog) ValidateField(section Section, fieldID string) error {
	switch section {
	case SectionHealthServices:
		if _, ok := c.HealthService(fieldID); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownHealthService, fieldID)
		}
	case SectionSymptoms:
		if _, ok := c.Symptom(fieldID); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownSymptom, fieldID)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSection, string(section))
	}
	return nil
}
