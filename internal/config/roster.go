package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pediclinic/internal/model"
)

// Roster is the root of roster.yaml: the patients and therapists the center works with.
type Roster struct {
	Therapists []model.Therapist `yaml:"therapists"`
	Patients   []model.Patient   `yaml:"patients"`
}

// LoadRoster loads and validates the roster from a YAML file.
func LoadRoster(path string) (*Roster, error) {
	if path == "" {
		path = "configs/roster.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}

	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}

	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("validate roster: %w", err)
	}
	return &r, nil
}

// Validate checks the roster for missing and duplicate entries.
func (r *Roster) Validate() error {
	ids := make(map[string]bool)
	for i, t := range r.Therapists {
		if strings.TrimSpace(t.ID) == "" {
			return fmt.Errorf("therapist[%d]: id is required", i)
		}
		if ids[t.ID] {
			return fmt.Errorf("therapist[%d]: duplicate id '%s'", i, t.ID)
		}
		ids[t.ID] = true
		if t.FullName == "" {
			return fmt.Errorf("therapist[%d]: full_name is required", i)
		}
	}

	ids = make(map[string]bool)
	for i, p := range r.Patients {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("patient[%d]: id is required", i)
		}
		if ids[p.ID] {
			return fmt.Errorf("patient[%d]: duplicate id '%s'", i, p.ID)
		}
		ids[p.ID] = true
		if p.FullName == "" {
			return fmt.Errorf("patient[%d]: full_name is required", i)
		}
		if p.BirthDate != "" {
			if _, err := time.Parse("2006-01-02", p.BirthDate); err != nil {
				return fmt.Errorf("patient[%d]: invalid birth_date '%s', expected YYYY-MM-DD", i, p.BirthDate)
			}
		}
	}
	return nil
}

// String returns a summary of the roster.
func (r *Roster) String() string {
	return fmt.Sprintf("Roster: %d therapists, %d patients", len(r.Therapists), len(r.Patients))
}
