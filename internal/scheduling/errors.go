package scheduling

import (
	"errors"
	"fmt"
	"time"

	"pediclinic/internal/availability"
	"pediclinic/internal/slots"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrUnknownPatient    = errors.New("unknown patient")
	ErrUnknownTherapist  = errors.New("unknown therapist")
	ErrRecurringConflict = errors.New("recurring series conflicts with existing sessions")
	ErrInvalidReport     = errors.New("invalid report status")
)

// ConflictError is returned when a single placement is rejected by the checker.
// errors.Is matches availability.ErrTherapistDoubleBooked or availability.ErrCenterAtCapacity.
type ConflictError struct {
	Slot slots.TimeSlot
	Kind availability.ConflictKind
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %s unavailable: %v", e.Slot, e.Kind.Err())
}

func (e *ConflictError) Unwrap() error { return e.Kind.Err() }

// RecurringConflictError identifies the first occurrence of a series that could not be placed.
// Index is 1-based. errors.Is matches ErrRecurringConflict and the kind's sentinel.
type RecurringConflictError struct {
	Index int
	Date  time.Time
	Time  string
	Kind  availability.ConflictKind
}

func (e *RecurringConflictError) Error() string {
	return fmt.Sprintf("occurrence #%d on %s %s: %v",
		e.Index, e.Date.Format(slots.DateLayout), e.Time, e.Kind.Err())
}

func (e *RecurringConflictError) Unwrap() []error {
	return []error{ErrRecurringConflict, e.Kind.Err()}
}
