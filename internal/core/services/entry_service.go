package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/IANDYI/journal-service/internal/core/domain"
	"github.com/IANDYI/journal-service/internal/core/ports"
	"github.com/google/uuid"
)

// EntryService implements the entries API business logic
// The catalog is the authority on which checklist ids are accepted
type EntryService struct {
	entryRepo ports.EntryRepository
	catalog   *domain.Catalog
}

// NewEntryService creates a new entry service
func NewEntryService(entryRepo ports.EntryRepository, catalog *domain.Catalog) *EntryService {
	return &EntryService{
		entryRepo: entryRepo,
		catalog:   catalog,
	}
}

// ListEntries retrieves every entry of the user ordered by week
func (s *EntryService) ListEntries(ctx context.Context, userID uuid.UUID) ([]*domain.TimelineEntry, error) {
	entries, err := s.entryRepo.ListEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list timeline entries: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].PregnancyWeek < entries[j].PregnancyWeek
	})
	return entries, nil
}

// UpsertEntry validates the payload and creates or replaces the (user, week) entry
func (s *EntryService) UpsertEntry(ctx context.Context, userID uuid.UUID, req domain.UpsertEntryRequest) (*domain.TimelineEntry, error) {
	week := domain.Week(req.PregnancyWeek)
	if !week.Valid() {
		return nil, fmt.Errorf("%w: %d (must be between %d and %d)", domain.ErrInvalidWeek, req.PregnancyWeek, domain.MinWeek, domain.MaxWeek)
	}

	for id := range req.HealthServices {
		if err := s.catalog.ValidateField(domain.SectionHealthServices, id); err != nil {
			return nil, err
		}
	}
	for id := range req.Symptoms {
		if err := s.catalog.ValidateField(domain.SectionSymptoms, id); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	entry := &domain.TimelineEntry{
		ID:                  uuid.New(),
		UserID:              userID,
		PregnancyWeek:       week,
		HealthServices:      orEmpty(req.HealthServices),
		Symptoms:            orEmpty(req.Symptoms),
		HealthServicesNotes: req.HealthServicesNotes,
		SymptomsNotes:       req.SymptomsNotes,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	stored, err := s.entryRepo.UpsertEntry(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert timeline entry: %w", err)
	}

	return stored, nil
}

// DeleteEntry removes the user's entry for a week
func (s *EntryService) DeleteEntry(ctx context.Context, userID uuid.UUID, week domain.Week) error {
	if !week.Valid() {
		return fmt.Errorf("%w: %d", domain.ErrInvalidWeek, int(week))
	}

	if err := s.entryRepo.DeleteEntry(ctx, userID, week); err != nil {
		return fmt.Errorf("failed to delete timeline entry: %w", err)
	}
	return nil
}

func orEmpty(flags map[string]bool) map[string]bool {
	if flags == nil {
		return map[string]bool{}
	}
	return flags
}

// Ensure EntryService implements the interface
var _ ports.EntryService = (*EntryService)(nil)
