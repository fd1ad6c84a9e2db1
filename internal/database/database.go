package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"pediclinic/internal/model"
)

// DB is the SQLite store for sessions, patients and therapists.
type DB struct {
	*sql.DB
	path   string
	logger zerolog.Logger
}

var (
	ErrNotFound  = model.ErrNotFound
	ErrSlotTaken = model.ErrSlotTaken
)

// Open creates the database file if needed and applies migrations.
func Open(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "database").Logger()
	}
	instance := &DB{DB: db, path: path, logger: l}

	if err := instance.createTables(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	l.Info().Str("path", path).Msg("Database initialized")
	return instance, nil
}

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

func (db *DB) createTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS therapists (
			id TEXT PRIMARY KEY,
			full_name TEXT NOT NULL,
			specialty TEXT,
			phone TEXT,
			email TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			deleted_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS patients (
			id TEXT PRIMARY KEY,
			full_name TEXT NOT NULL,
			birth_date TEXT,
			guardian TEXT,
			phone TEXT,
			notes TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			deleted_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			patient_id TEXT NOT NULL,
			therapist_id TEXT NOT NULL,
			date TEXT NOT NULL,
			time TEXT NOT NULL,
			duration_minutes INTEGER NOT NULL,
			report_status TEXT NOT NULL DEFAULT 'pending',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (patient_id) REFERENCES patients(id),
			FOREIGN KEY (therapist_id) REFERENCES therapists(id)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_therapist_slot ON sessions(date, time, therapist_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_patient ON sessions(patient_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_therapists_active ON therapists(deleted_at)`,
		`CREATE INDEX IF NOT EXISTS idx_patients_active ON patients(deleted_at)`,
	}

	for _, q := range queries {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
