package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pediclinic/internal/config"
)

// SyncRoster applies roster.yaml to the database. Listed records are upserted and
// restored if they were soft-deleted; records missing from the roster are soft-deleted.
// Sessions keep referring to soft-deleted records.
func (db *DB) SyncRoster(ctx context.Context, r *config.Roster) (err error) {
	if r == nil {
		return fmt.Errorf("roster is nil")
	}

	now := time.Now().UTC()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	therapists := make([]string, 0, len(r.Therapists))
	for _, t := range r.Therapists {
		// Preserve created_at if the therapist already exists.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO therapists (id, full_name, specialty, phone, email, created_at, updated_at, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, NULL)
			ON CONFLICT(id) DO UPDATE SET
				full_name = excluded.full_name,
				specialty = excluded.specialty,
				phone = excluded.phone,
				email = excluded.email,
				updated_at = excluded.updated_at,
				deleted_at = NULL`,
			t.ID, t.FullName, t.Specialty, t.Phone, t.Email, now, now,
		)
		if err != nil {
			return fmt.Errorf("sync therapist %s: %w", t.ID, err)
		}
		therapists = append(therapists, t.ID)
	}

	patients := make([]string, 0, len(r.Patients))
	for _, p := range r.Patients {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO patients (id, full_name, birth_date, guardian, phone, notes, created_at, updated_at, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)
			ON CONFLICT(id) DO UPDATE SET
				full_name = excluded.full_name,
				birth_date = excluded.birth_date,
				guardian = excluded.guardian,
				phone = excluded.phone,
				notes = excluded.notes,
				updated_at = excluded.updated_at,
				deleted_at = NULL`,
			p.ID, p.FullName, p.BirthDate, p.Guardian, p.Phone, p.Notes, now, now,
		)
		if err != nil {
			return fmt.Errorf("sync patient %s: %w", p.ID, err)
		}
		patients = append(patients, p.ID)
	}

	if err = softDeleteMissing(ctx, tx, "therapists", therapists, now); err != nil {
		return err
	}
	if err = softDeleteMissing(ctx, tx, "patients", patients, now); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	db.logger.Info().Str("roster", r.String()).Msg("roster synced")
	return nil
}

// table is one of the fixed directory table names.
func softDeleteMissing(ctx context.Context, ex execer, table string, keep []string, now time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET deleted_at = ?, updated_at = ? WHERE deleted_at IS NULL`, table)
	args := []any{now, now}
	if len(keep) > 0 {
		query += ` AND id NOT IN (?` + strings.Repeat(",?", len(keep)-1) + `)`
		for _, id := range keep {
			args = append(args, id)
		}
	}
	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deactivate missing %s: %w", table, err)
	}
	return nil
}
