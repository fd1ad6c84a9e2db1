package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pediclinic/internal/model"
	"pediclinic/internal/slots"
)

const sessionColumns = `id, patient_id, therapist_id, date, time, duration_minutes, report_status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*model.Session, error) {
	var s model.Session
	var date, status string
	if err := row.Scan(
		&s.ID, &s.PatientID, &s.TherapistID, &date, &s.Time,
		&s.DurationMinutes, &status, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d, err := slots.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", s.ID, err)
	}
	s.Date = d
	s.ReportStatus = model.ReportStatus(status)
	return &s, nil
}

// GetSession returns a session by id or ErrNotFound.
func (db *DB) GetSession(ctx context.Context, id string) (*model.Session, error) {
	row := db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return s, nil
}

// ListSessions returns sessions dated within [from, to] ordered by slot.
func (db *DB) ListSessions(ctx context.Context, from, to time.Time) ([]model.Session, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE date BETWEEN ? AND ?
		ORDER BY date, time, therapist_id`,
		formatDate(from), formatDate(to),
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSession(ctx context.Context, ex execer, s *model.Session) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.PatientID, s.TherapistID, formatDate(s.Date), s.Time,
		s.DurationMinutes, string(s.ReportStatus), s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("session %s at %s %s: %w", s.ID, formatDate(s.Date), s.Time, ErrSlotTaken)
	}
	return err
}

// CreateSession inserts one session.
func (db *DB) CreateSession(ctx context.Context, s *model.Session) error {
	if s == nil {
		return fmt.Errorf("session is nil")
	}
	if err := insertSession(ctx, db, s); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// CreateSessions inserts all sessions in one transaction.
func (db *DB) CreateSessions(ctx context.Context, sessions []model.Session) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i := range sessions {
		if err = insertSession(ctx, tx, &sessions[i]); err != nil {
			return fmt.Errorf("create sessions: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// UpdateSessionSlot moves a session and returns the stored row.
func (db *DB) UpdateSessionSlot(ctx context.Context, id string, date time.Time, tod string, updatedAt time.Time) (*model.Session, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE sessions SET date = ?, time = ?, updated_at = ?
		WHERE id = ?`,
		formatDate(date), tod, updatedAt.UTC(), id,
	)
	if isUniqueViolation(err) {
		return nil, ErrSlotTaken
	}
	if err != nil {
		return nil, fmt.Errorf("update session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return db.GetSession(ctx, id)
}

// UpdateReportStatus sets the evaluation report status of a session.
func (db *DB) UpdateReportStatus(ctx context.Context, id string, status model.ReportStatus, updatedAt time.Time) (*model.Session, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE sessions SET report_status = ?, updated_at = ? WHERE id = ?`,
		string(status), updatedAt.UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update report status %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return db.GetSession(ctx, id)
}

func formatDate(t time.Time) string {
	return slots.DateOnly(t).Format(slots.DateLayout)
}
