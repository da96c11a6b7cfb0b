package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Week is a gestational week in the range [MinWeek, MaxWeek]
type Week int

// Trimester groups gestational weeks into the three clinical phases
type Trimester int

const (
	MinWeek Week = 1
	MaxWeek Week = 40 // Matches the HPHT calculator and the health-service schedules

	TrimesterFirst  Trimester = 1
	TrimesterSecond Trimester = 2
	TrimesterThird  Trimester = 3
)

// trimesterBounds holds the inclusive first/last week of every trimester
var trimesterBounds = map[Trimester][2]Week{
	TrimesterFirst:  {1, 12},
	TrimesterSecond: {13, 27},
	TrimesterThird:  {28, MaxWeek},
}

// Valid reports whether the week lies inside the gestational range
func (w Week) Valid() bool {
	return w >= MinWeek && w <= MaxWeek
}

// Valid reports whether the trimester is one of 1, 2 or 3
func (t Trimester) Valid() bool {
	_, ok := trimesterBounds[t]
	return ok
}

// Bounds returns the inclusive first and last week of the trimester
func (t Trimester) Bounds() (Week, Week, error) {
	bounds, ok := trimesterBounds[t]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidTrimester, int(t))
	}
	return bounds[0], bounds[1], nil
}

// TrimesterOf returns the trimester a week belongs to
// Trimester membership is derived, never stored
func TrimesterOf(w Week) (Trimester, error) {
	switch {
	case !w.Valid():
		return 0, fmt.Errorf("%w: %d", ErrInvalidWeek, int(w))
	case w <= 12:
		return TrimesterFirst, nil
	case w <= 27:
		return TrimesterSecond, nil
	default:
		return TrimesterThird, nil
	}
}

// WeeksInTrimester returns the ordered weeks of a trimester
// Trimester 3 stops at MaxWeek (40), not 42
func WeeksInTrimester(t Trimester) ([]Week, error) {
	first, last, err := t.Bounds()
	if err != nil {
		return nil, err
	}
	weeks := make([]Week, 0, int(last-first)+1)
	for w := first; w <= last; w++ {
		weeks = append(weeks, w)
	}
	return weeks, nil
}

// AllWeeks returns every week from MinWeek to MaxWeek
func AllWeeks() []Week {
	weeks := make([]Week, 0, int(MaxWeek))
	for w := MinWeek; w <= MaxWeek; w++ {
		weeks = append(weeks, w)
	}
	return weeks
}

// ParseWeek parses a path or query value into a valid week
func ParseWeek(raw string) (Week, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeek, raw)
	}
	w := Week(n)
	if !w.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidWeek, n)
	}
	return w, nil
}

// ParseTrimester parses a path value into a valid trimester
func ParseTrimester(raw string) (Trimester, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTrimester, raw)
	}
	t := Trimester(n)
	if !t.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTrimester, n)
	}
	return t, nil
}
