// Package recurrence expands a recurring schedule into concrete session dates.
package recurrence

import (
	"errors"
	"fmt"
	"time"

	"pediclinic/internal/slots"
)

// ErrInvalidPattern reports a malformed recurrence pattern.
var ErrInvalidPattern = errors.New("invalid recurrence pattern")

// Frequency is the unit a pattern repeats in.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// EndCondition stops a pattern. It is either ByDate or ByCount.
type EndCondition interface {
	isEndCondition()
}

// ByDate ends the series on Date, inclusive.
type ByDate struct {
	Date time.Time
}

// ByCount ends the series after N occurrences, the first one included.
type ByCount struct {
	N int
}

func (ByDate) isEndCondition()  {}
func (ByCount) isEndCondition() {}

// Pattern describes how sessions repeat.
type Pattern struct {
	Frequency Frequency
	Interval  int
	// DayOfWeek is used by weekly patterns only. Nil means the weekday of the initial date.
	DayOfWeek *time.Weekday
	End       EndCondition
}

// PatternFromFields builds a Pattern from the two-optional-field shape used on the wire.
// Exactly one of endDate and occurrences must be set.
func PatternFromFields(frequency string, interval int, dayOfWeek *int, endDate *time.Time, occurrences *int) (Pattern, error) {
	p := Pattern{Frequency: Frequency(frequency), Interval: interval}

	switch {
	case endDate != nil && occurrences != nil:
		return Pattern{}, fmt.Errorf("%w: end_date and occurrences are mutually exclusive", ErrInvalidPattern)
	case endDate != nil:
		p.End = ByDate{Date: *endDate}
	case occurrences != nil:
		p.End = ByCount{N: *occurrences}
	default:
		return Pattern{}, fmt.Errorf("%w: one of end_date or occurrences is required", ErrInvalidPattern)
	}

	if dayOfWeek != nil {
		if *dayOfWeek < 0 || *dayOfWeek > 6 {
			return Pattern{}, fmt.Errorf("%w: day_of_week %d out of range 0-6", ErrInvalidPattern, *dayOfWeek)
		}
		wd := time.Weekday(*dayOfWeek)
		p.DayOfWeek = &wd
	}

	if err := p.Validate(); err != nil {
		return Pattern{}, err
	}
	return p, nil
}

// Validate checks the pattern without expanding it.
func (p Pattern) Validate() error {
	switch p.Frequency {
	case Daily, Weekly, Monthly:
	default:
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidPattern, p.Frequency)
	}

	if p.Interval < 1 {
		return fmt.Errorf("%w: interval must be at least 1, got %d", ErrInvalidPattern, p.Interval)
	}

	if p.DayOfWeek != nil && (*p.DayOfWeek < time.Sunday || *p.DayOfWeek > time.Saturday) {
		return fmt.Errorf("%w: day of week %d out of range", ErrInvalidPattern, *p.DayOfWeek)
	}

	switch end := p.End.(type) {
	case ByDate:
		if end.Date.IsZero() {
			return fmt.Errorf("%w: end date is empty", ErrInvalidPattern)
		}
	case ByCount:
		if end.N < 1 {
			return fmt.Errorf("%w: occurrences must be at least 1, got %d", ErrInvalidPattern, end.N)
		}
	case nil:
		return fmt.Errorf("%w: end condition is required", ErrInvalidPattern)
	default:
		return fmt.Errorf("%w: unsupported end condition %T", ErrInvalidPattern, end)
	}
	return nil
}

func (p Pattern) String() string {
	var end string
	switch e := p.End.(type) {
	case ByDate:
		end = "until " + slots.DateOnly(e.Date).Format(slots.DateLayout)
	case ByCount:
		end = fmt.Sprintf("x%d", e.N)
	}
	return fmt.Sprintf("%s/%d %s", p.Frequency, p.Interval, end)
}
