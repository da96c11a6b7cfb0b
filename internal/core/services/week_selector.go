package services

import (
	"sync"

	"github.com/IANDYI/journal-service/internal/core/domain"
)

// WeekSelector tracks the trimester and week currently shown by the UI
type WeekSelector struct {
	mu        sync.Mutex
	trimester domain.Trimester
	week      domain.Week
}

// NewWeekSelector starts on the first week of the first trimester
func NewWeekSelector() *WeekSelector {
	return &WeekSelector{
		trimester: domain.TrimesterFirst,
		week:      domain.MinWeek,
	}
}

// SelectTrimester switches trimester and resets the week to the trimester's first week
func (s *WeekSelector) SelectTrimester(t domain.Trimester) (domain.Selection, error) {
	weeks, err := domain.WeeksInTrimester(t)
	if err != nil {
		return domain.Selection{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.trimester = t
	s.week = weeks[0]
	return domain.Selection{Trimester: t, Week: s.week, Weeks: weeks}, nil
}

// SelectWeek selects a week and aligns the trimester with it
func (s *WeekSelector) SelectWeek(w domain.Week) (domain.Selection, error) {
	t, err := domain.TrimesterOf(w)
	if err != nil {
		return domain.Selection{}, err
	}
	weeks, err := domain.WeeksInTrimester(t)
	if err != nil {
		return domain.Selection{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.trimester = t
	s.week = w
	return domain.Selection{Trimester: t, Week: w, Weeks: weeks}, nil
}

// Current returns the current selection
func (s *WeekSelector) Current() domain.Selection {
	s.mu.Lock()
	t, w := s.trimester, s.week
	s.mu.Unlock()

	weeks, _ := domain.WeeksInTrimester(t)
	return domain.Selection{Trimester: t, Week: w, Weeks: weeks}
}

// BuildProgress derives the progress grid from a store snapshot
func BuildProgress(snapshot map[domain.Week]domain.JournalEntry, catalog *domain.Catalog) domain.Progress {
	progress := domain.Progress{
		Trimesters: make([]domain.TrimesterProgress, 0, 3),
		TotalWeeks: int(domain.MaxWeek),
	}

	for _, t := range []domain.Trimester{domain.TrimesterFirst, domain.TrimesterSecond, domain.TrimesterThird} {
		weeks, _ := domain.WeeksInTrimester(t)
		row := domain.TrimesterProgress{
			Trimester: t,
			Weeks:     make([]domain.WeekStatus, 0, len(weeks)),
		}
		for _, w := range weeks {
			entry, ok := snapshot[w]
			filled := ok && domain.IsWeekFilled(entry)
			status := domain.WeekStatus{Week: w, Filled: filled, RecommendedServices: []string{}}
			if catalog != nil {
				status.RecommendedServices = catalog.RecommendedServiceIDs(w)
			}
			if filled {
				row.Filled++
			}
			row.Weeks = append(row.Weeks, status)
		}
		progress.FilledWeeks += row.Filled
		progress.Trimesters = append(progress.Trimesters, row)
	}

	return progress
}
