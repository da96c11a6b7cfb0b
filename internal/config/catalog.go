package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/IANDYI/journal-service/internal/core/domain"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

type catalogFile struct {
	HealthServices []struct {
		ID               string   `yaml:"id"`
		Title            string   `yaml:"title"`
		Description      string   `yaml:"description"`
		RecommendedWeeks []string `yaml:"recommended_weeks"`
	} `yaml:"health_services"`
	Symptoms []struct {
		ID          string `yaml:"id"`
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		IsDanger    bool   `yaml:"is_danger"`
	} `yaml:"symptoms"`
	EmergencyActions []string `yaml:"emergency_actions"`
}

// LoadCatalog reads the clinical catalog from path, or the embedded catalog when path is empty
func LoadCatalog(path string) (*domain.Catalog, error) {
	if path == "" {
		return ParseCatalog(defaultCatalogYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the embedded catalog and panics if it is malformed
func DefaultCatalog() *domain.Catalog {
	catalog, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic("Failed to load embedded catalog: " + err.Error())
	}
	return catalog
}

// ParseCatalog decodes a YAML catalog document
func ParseCatalog(data []byte) (*domain.Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
	}

	services := make([]domain.HealthServiceDefinition, 0, len(file.HealthServices))
	for _, s := range file.HealthServices {
		weeks, err := parseWeekList(s.RecommendedWeeks)
		if err != nil {
			return nil, fmt.Errorf("%w: health service %q: %v", domain.ErrInvalidCatalog, s.ID, err)
		}
		services = append(services, domain.HealthServiceDefinition{
			ID:               s.ID,
			Title:            s.Title,
			Description:      s.Description,
			RecommendedWeeks: weeks,
		})
	}

	symptoms := make([]domain.SymptomDefinition, 0, len(file.Symptoms))
	for _, s := range file.Symptoms {
		symptoms = append(symptoms, domain.SymptomDefinition{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			IsDanger:    s.IsDanger,
		})
	}

	return domain.NewCatalog(services, symptoms, file.EmergencyActions)
}

// parseWeekList expands "12" and "28-40" items into a deduplicated week list
func parseWeekList(items []string) ([]domain.Week, error) {
	seen := make(map[domain.Week]bool)
	weeks := make([]domain.Week, 0)

	for _, item := range items {
		from, to, isRange := strings.Cut(strings.TrimSpace(item), "-")
		start, err := strconv.Atoi(strings.TrimSpace(from))
		if err != nil {
			return nil, fmt.Errorf("bad week %q", item)
		}
		end := start
		if isRange {
			end, err = strconv.Atoi(strings.TrimSpace(to))
			if err != nil {
				return nil, fmt.Errorf("bad week range %q", item)
			}
		}
		if end < start {
			return nil, fmt.Errorf("inverted week range %q", item)
		}
		for w := start; w <= end; w++ {
			week := domain.Week(w)
			if !week.Valid() {
				return nil, fmt.Errorf("week %d outside %d-%d", w, domain.MinWeek, domain.MaxWeek)
			}
			if !seen[week] {
				seen[week] = true
				weeks = append(weeks, week)
			}
		}
	}
	return weeks, nil
}
