package config

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"
)

// InitDatabase creates the timeline schema if it does not exist
// Set DROP_TABLES_ON_STARTUP=true environment variable to drop existing tables
func InitDatabase(db *sql.DB) error {
	if os.Getenv("DROP_TABLES_ON_STARTUP") == "true" {
		log.Println("Dropping existing tables (DROP_TABLES_ON_STARTUP=true)...")
		if _, err := db.Exec("DROP TABLE IF EXISTS timeline_entries CASCADE"); err != nil {
			log.Printf("Warning: Failed to drop timeline_entries table: %v", err)
		}
	}

	log.Println("Creating timeline_entries table...")
	entriesSchema := `
	CREATE TABLE IF NOT EXISTS timeline_entries (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		pregnancy_week INTEGER NOT NULL,
		health_services JSONB NOT NULL DEFAULT '{}'::jsonb,
		symptoms JSONB NOT NULL DEFAULT '{}'::jsonb,
		health_services_notes TEXT NOT NULL DEFAULT '',
		symptoms_notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT uq_timeline_entries_user_week UNIQUE (user_id, pregnancy_week),
		CONSTRAINT chk_pregnancy_week CHECK (pregnancy_week BETWEEN 1 AND 40)
	);`

	if _, err := db.Exec(entriesSchema); err != nil {
		return fmt.Errorf("failed to create timeline_entries table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_timeline_entries_user_id ON timeline_entries(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_timeline_entries_updated_at ON timeline_entries(updated_at)",
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
		}
	}

	log.Println("Database schema initialized successfully")
	return nil
}

// ConnectDatabase establishes a connection to PostgreSQL with retry logic
func ConnectDatabase(databaseURL string, maxRetries int, retryDelay time.Duration) (*sql.DB, error) {
	var db *sql.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("postgres", databaseURL)
		if err != nil {
			log.Printf("Failed to open database connection (attempt %d/%d): %v", i+1, maxRetries, err)
			if i < maxRetries-1 {
				time.Sleep(retryDelay)
				continue
			}
			return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
		}

		if err = db.Ping(); err != nil {
			log.Printf("Failed to ping database (attempt %d/%d): %v", i+1, maxRetries, err)
			db.Close()
			if i < maxRetries-1 {
				time.Sleep(retryDelay)
				continue
			}
			return nil, fmt.Errorf("failed to ping database after %d attempts: %w", maxRetries, err)
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		log.Println("Database connection established successfully")
		return db, nil
	}

	return nil, fmt.Errorf("failed to connect to database: %w", err)
}
