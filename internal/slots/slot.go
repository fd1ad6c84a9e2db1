// Package slots defines the bookable units of the center: a calendar date combined
// with one of the operating hours, and the capacity each unit may hold.
package slots

import (
	"errors"
	"fmt"
	"time"
)

const (
	// MaxSessionsPerSlot is the center-wide number of concurrent sessions per slot.
	MaxSessionsPerSlot = 3

	// SessionDurationMinutes is the fixed length of one therapy session.
	SessionDurationMinutes = 45

	// DateLayout is the wire format for calendar dates.
	DateLayout = "2006-01-02"

	// TimeLayout is the wire format for time-of-day values.
	TimeLayout = "15:04"
)

// ErrInvalidTimeSlot is returned when a time is not one of the operating hours.
var ErrInvalidTimeSlot = errors.New("time is not within operating hours")

// TimeSlot is a date paired with a time-of-day.
type TimeSlot struct {
	Date time.Time
	Time string
}

// New builds a TimeSlot, dropping the time-of-day part of date.
func New(date time.Time, tod string) TimeSlot {
	return TimeSlot{Date: DateOnly(date), Time: tod}
}

// Equal compares slots by calendar date and time-of-day.
func (s TimeSlot) Equal(other TimeSlot) bool {
	return s.Time == other.Time && DateOnly(s.Date).Equal(DateOnly(other.Date))
}

// Key returns a stable string identity, e.g. "2024-01-01 09:00".
func (s TimeSlot) Key() string {
	return DateOnly(s.Date).Format(DateLayout) + " " + s.Time
}

func (s TimeSlot) String() string { return s.Key() }

// DateOnly returns the calendar date of t as midnight UTC.
// The year, month and day are read in t's own location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a civil date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// ParseClock validates an HH:MM string and returns minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil || t.Format(TimeLayout) != s {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
