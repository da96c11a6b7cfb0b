package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IANDYI/journal-service/internal/core/domain"
	"github.com/IANDYI/journal-service/internal/core/ports"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

// SQLRepository implements EntryRepository using PostgreSQL
// Includes retry logic and circuit breaker for resilience
type SQLRepository struct {
	db         *sql.DB
	entryCB    *gobreaker.CircuitBreaker
	maxRetries int
	retryDelay time.Duration
}

// BreakerSettings tunes the database circuit breaker; zero values take the defaults
type BreakerSettings struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
}

// NewSQLRepository creates a new PostgreSQL repository with a circuit breaker
func NewSQLRepository(db *sql.DB, breaker BreakerSettings) *SQLRepository {
	if breaker.MaxRequests == 0 {
		breaker.MaxRequests = 5
	}
	if breaker.Interval == 0 {
		breaker.Interval = 60 * time.Second
	}
	if breaker.Timeout == 0 {
		breaker.Timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "database",
		MaxRequests: breaker.MaxRequests,
		Interval:    breaker.Interval,
		Timeout:     breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrEntryNotFound)
		},
	}

	return &SQLRepository{
		db:         db,
		entryCB:    gobreaker.NewCircuitBreaker(settings),
		maxRetries: 3,
		retryDelay: 1 * time.Second,
	}
}

// executeWithRetry executes a database operation with retry logic
func (r *SQLRepository) executeWithRetry(ctx context.Context, operation func() error) error {
	var lastErr error
	for i := 0; i < r.maxRetries; i++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err
		// Missing rows and cancelled requests are not transient
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, domain.ErrEntryNotFound) || ctx.Err() != nil {
			return err
		}
		if i < r.maxRetries-1 {
			select {
			case <-time.After(r.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("operation failed after %d retries: %w", r.maxRetries, lastErr)
}

const entryColumns = `id, user_id, pregnancy_week, health_services, symptoms, health_services_notes, symptoms_notes, created_at, updated_at`

// ListEntries returns every entry of the user
func (r *SQLRepository) ListEntries(ctx context.Context, userID uuid.UUID) ([]*domain.TimelineEntry, error) {
	result, err := r.entryCB.Execute(func() (interface{}, error) {
		var entries []*domain.TimelineEntry
		err := r.executeWithRetry(ctx, func() error {
			entries = entries[:0]
			query := `SELECT ` + entryColumns + ` FROM timeline_entries WHERE user_id = $1 ORDER BY pregnancy_week ASC`
			rows, err := r.db.QueryContext(ctx, query, userID)
			if err != nil {
				return err
			}
			defer rows.Close()

			for rows.Next() {
				entry, err := scanEntry(rows)
				if err != nil {
					return err
				}
				entries = append(entries, entry)
			}
			return rows.Err()
		})
		if err != nil {
			return nil, err
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}

	entries := result.([]*domain.TimelineEntry)
	if entries == nil {
		entries = []*domain.TimelineEntry{}
	}
	return entries, nil
}

// UpsertEntry creates the (user, week) entry or replaces its content
// The original id and created_at survive a replace
func (r *SQLRepository) UpsertEntry(ctx context.Context, entry *domain.TimelineEntry) (*domain.TimelineEntry, error) {
	healthServices, err := json.Marshal(flagsOrEmpty(entry.HealthServices))
	if err != nil {
		return nil, fmt.Errorf("failed to encode health services: %w", err)
	}
	symptoms, err := json.Marshal(flagsOrEmpty(entry.Symptoms))
	if err != nil {
		return nil, fmt.Errorf("failed to encode symptoms: %w", err)
	}

	result, err := r.entryCB.Execute(func() (interface{}, error) {
		var stored *domain.TimelineEntry
		err := r.executeWithRetry(ctx, func() error {
			query := `
				INSERT INTO timeline_entries (` + entryColumns + `)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				ON CONFLICT (user_id, pregnancy_week) DO UPDATE SET
					health_services = EXCLUDED.health_services,
					symptoms = EXCLUDED.symptoms,
					health_services_notes = EXCLUDED.health_services_notes,
					symptoms_notes = EXCLUDED.symptoms_notes,
					updated_at = EXCLUDED.updated_at
				RETURNING ` + entryColumns
			row := r.db.QueryRowContext(ctx, query,
				entry.ID, entry.UserID, int(entry.PregnancyWeek),
				healthServices, symptoms,
				entry.HealthServicesNotes, entry.SymptomsNotes,
				entry.CreatedAt, entry.UpdatedAt,
			)
			var scanErr error
			stored, scanErr = scanEntry(row)
			return scanErr
		})
		if err != nil {
			return nil, err
		}
		return stored, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*domain.TimelineEntry), nil
}

// DeleteEntry deletes the user's entry for a week
func (r *SQLRepository) DeleteEntry(ctx context.Context, userID uuid.UUID, week domain.Week) error {
	_, err := r.entryCB.Execute(func() (interface{}, error) {
		return nil, r.executeWithRetry(ctx, func() error {
			query := `DELETE FROM timeline_entries WHERE user_id = $1 AND pregnancy_week = $2`
			result, err := r.db.ExecContext(ctx, query, userID, int(week))
			if err != nil {
				return err
			}

			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return err
			}
			if rowsAffected == 0 {
				return domain.ErrEntryNotFound
			}
			return nil
		})
	})
	return err
}

// PingContext checks database connectivity for readiness probes
func (r *SQLRepository) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*domain.TimelineEntry, error) {
	var (
		entry          domain.TimelineEntry
		week           int
		healthServices []byte
		symptoms       []byte
		hsNotes        sql.NullString
		symptomNotes   sql.NullString
	)

	if err := row.Scan(&entry.ID, &entry.UserID, &week, &healthServices, &symptoms, &hsNotes, &symptomNotes, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return nil, err
	}

	entry.PregnancyWeek = domain.Week(week)
	entry.HealthServicesNotes = hsNotes.String
	entry.SymptomsNotes = symptomNotes.String
	entry.HealthServices = map[string]bool{}
	entry.Symptoms = map[string]bool{}

	if len(healthServices) > 0 {
		if err := json.Unmarshal(healthServices, &entry.HealthServices); err != nil {
			return nil, fmt.Errorf("failed to decode health services: %w", err)
		}
	}
	if len(symptoms) > 0 {
		if err := json.Unmarshal(symptoms, &entry.Symptoms); err != nil {
			return nil, fmt.Errorf("failed to decode symptoms: %w", err)
		}
	}

	entry.HealthServices = flagsOrEmpty(entry.HealthServices)
	entry.Symptoms = flagsOrEmpty(entry.Symptoms)

	return &entry, nil
}

func flagsOrEmpty(flags map[string]bool) map[string]bool {
	if flags == nil {
		return map[string]bool{}
	}
	return flags
}

// Ensure SQLRepository implements the interface
var _ ports.EntryRepository = (*SQLRepository)(nil)
