package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pediclinic/internal/model"
)

// PatientExists reports whether id refers to an active patient.
func (db *DB) PatientExists(ctx context.Context, id string) (bool, error) {
	return db.exists(ctx, `SELECT COUNT(*) FROM patients WHERE id = ? AND deleted_at IS NULL`, id)
}

// TherapistExists reports whether id refers to an active therapist.
func (db *DB) TherapistExists(ctx context.Context, id string) (bool, error) {
	return db.exists(ctx, `SELECT COUNT(*) FROM therapists WHERE id = ? AND deleted_at IS NULL`, id)
}

func (db *DB) exists(ctx context.Context, query, id string) (bool, error) {
	var count int
	if err := db.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetPatient returns a patient, soft-deleted ones included.
func (db *DB) GetPatient(ctx context.Context, id string) (*model.Patient, error) {
	var p model.Patient
	var birth, guardian, phone, notes sql.NullString
	var deleted sql.NullTime
	err := db.QueryRowContext(ctx, `
		SELECT id, full_name, birth_date, guardian, phone, notes, created_at, updated_at, deleted_at
		FROM patients WHERE id = ?`, id,
	).Scan(&p.ID, &p.FullName, &birth, &guardian, &phone, &notes, &p.CreatedAt, &p.UpdatedAt, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient %s: %w", id, err)
	}
	p.BirthDate, p.Guardian, p.Phone, p.Notes = birth.String, guardian.String, phone.String, notes.String
	if deleted.Valid {
		p.DeletedAt = &deleted.Time
	}
	return &p, nil
}

// ListTherapists returns active therapists ordered by name.
func (db *DB) ListTherapists(ctx context.Context) ([]model.Therapist, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, full_name, specialty, phone, email, created_at, updated_at, deleted_at
		FROM therapists WHERE deleted_at IS NULL
		ORDER BY full_name, id`)
	if err != nil {
		return nil, fmt.Errorf("list therapists: %w", err)
	}
	defer rows.Close()

	var out []model.Therapist
	for rows.Next() {
		t, err := scanTherapist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func scanTherapist(row rowScanner) (*model.Therapist, error) {
	var t model.Therapist
	var specialty, phone, email sql.NullString
	var deleted sql.NullTime
	if err := row.Scan(&t.ID, &t.FullName, &specialty, &phone, &email, &t.CreatedAt, &t.UpdatedAt, &deleted); err != nil {
		return nil, err
	}
	t.Specialty, t.Phone, t.Email = specialty.String, phone.String, email.String
	if deleted.Valid {
		t.DeletedAt = &deleted.Time
	}
	return &t, nil
}
