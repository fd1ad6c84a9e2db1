// Package availability decides whether a session may be placed in a slot.
package availability

import (
	"errors"
	"time"

	"pediclinic/internal/model"
	"pediclinic/internal/slots"
)

var (
	ErrTherapistDoubleBooked = errors.New("therapist already has a session in this slot")
	ErrCenterAtCapacity      = errors.New("center is at capacity for this slot")
)

// ConflictKind names why a slot cannot take a session.
type ConflictKind string

const (
	TherapistDoubleBooked ConflictKind = "therapist_double_booked"
	CenterAtCapacity      ConflictKind = "center_at_capacity"
)

// Err returns the sentinel error matching the kind.
func (k ConflictKind) Err() error {
	switch k {
	case TherapistDoubleBooked:
		return ErrTherapistDoubleBooked
	case CenterAtCapacity:
		return ErrCenterAtCapacity
	default:
		return nil
	}
}

// Candidate is a proposed session placement.
type Candidate struct {
	Date        time.Time
	Time        string
	TherapistID string
	// ExcludeSessionID is ignored when counting, used when a session is moved.
	ExcludeSessionID string
}

// Result is the outcome of a check. Reason is empty when Available.
type Result struct {
	Available bool         `json:"available"`
	Reason    ConflictKind `json:"reason,omitempty"`
	Booked    int          `json:"booked"`
	Capacity  int          `json:"capacity"`
}

// Checker applies therapist exclusivity and center capacity to a snapshot of sessions.
// It holds configuration only and is safe for concurrent use.
type Checker struct {
	hours    slots.OperatingHours
	capacity int
}

// NewChecker creates a checker. A capacity below 1 falls back to slots.MaxSessionsPerSlot.
func NewChecker(hours slots.OperatingHours, capacity int) *Checker {
	if capacity < 1 {
		capacity = slots.MaxSessionsPerSlot
	}
	return &Checker{hours: hours, capacity: capacity}
}

// Capacity returns the per-slot limit.
func (c *Checker) Capacity() int { return c.capacity }

// Hours returns the operating hours the checker validates against.
func (c *Checker) Hours() slots.OperatingHours { return c.hours }

// Check evaluates candidate against existing, which may be any superset of the
// sessions in the candidate's slot. The time must be an operating hour.
// A therapist conflict is reported ahead of a capacity conflict.
func (c *Checker) Check(candidate Candidate, existing []model.Session) (Result, error) {
	if err := c.hours.Validate(candidate.Time); err != nil {
		return Result{}, err
	}

	target := slots.New(candidate.Date, candidate.Time)
	booked := 0
	doubleBooked := false
	for i := range existing {
		s := &existing[i]
		if candidate.ExcludeSessionID != "" && s.ID == candidate.ExcludeSessionID {
			continue
		}
		if !target.Equal(slots.New(s.Date, s.Time)) {
			continue
		}
		booked++
		if s.TherapistID == candidate.TherapistID {
			doubleBooked = true
		}
	}

	res := Result{Available: true, Booked: booked, Capacity: c.capacity}
	switch {
	case doubleBooked:
		res.Available = false
		res.Reason = TherapistDoubleBooked
	case booked >= c.capacity:
		res.Available = false
		res.Reason = CenterAtCapacity
	}
	return res, nil
}
