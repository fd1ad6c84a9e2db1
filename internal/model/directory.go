package model

import "time"

// Patient is a child receiving therapy.
type Patient struct {
	ID        string     `json:"id" yaml:"id"`
	FullName  string     `json:"full_name" yaml:"full_name"`
	BirthDate string     `json:"birth_date,omitempty" yaml:"birth_date,omitempty"` // "2006-01-02"
	Guardian  string     `json:"guardian,omitempty" yaml:"guardian,omitempty"`
	Phone     string     `json:"phone,omitempty" yaml:"phone,omitempty"`
	Notes     string     `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at" yaml:"-"`
	UpdatedAt time.Time  `json:"updated_at" yaml:"-"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" yaml:"-"`
}

// Therapist is a professional who holds sessions.
type Therapist struct {
	ID        string     `json:"id" yaml:"id"`
	FullName  string     `json:"full_name" yaml:"full_name"`
	Specialty string     `json:"specialty,omitempty" yaml:"specialty,omitempty"`
	Phone     string     `json:"phone,omitempty" yaml:"phone,omitempty"`
	Email     string     `json:"email,omitempty" yaml:"email,omitempty"`
	CreatedAt time.Time  `json:"created_at" yaml:"-"`
	UpdatedAt time.Time  `json:"updated_at" yaml:"-"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" yaml:"-"`
}

// IsActive reports whether the record was not soft-deleted.
func (p *Patient) IsActive() bool { return p.DeletedAt == nil }

// IsActive reports whether the record was not soft-deleted.
func (t *Therapist) IsActive() bool { return t.DeletedAt == nil }
