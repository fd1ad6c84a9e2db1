package recurrence

import (
	"fmt"
	"iter"
	"time"

	"pediclinic/internal/slots"
)

// Generate returns the dates of the series starting at initial. The sequence is lazy,
// finite and can be ranged over any number of times. All dates are civil dates
// (midnight UTC).
//
// Step rules:
//   - daily: every Interval days.
//   - weekly: the first date is initial; occurrence k lands on DayOfWeek of the
//     week (Sunday-first) that is k*Interval weeks after the week of initial.
//   - monthly: occurrence k is k*Interval months after initial on the same day of
//     month, clamped to the last day of shorter months. Each occurrence is computed
//     from initial, so Jan 31 yields Feb 29, Mar 31, Apr 30 (leap year).
func Generate(initial time.Time, p Pattern) (iter.Seq[time.Time], error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	start := slots.DateOnly(initial)
	step := stepper(start, p)

	var limit func(k int, d time.Time) bool
	switch end := p.End.(type) {
	case ByCount:
		limit = func(k int, _ time.Time) bool { return k < end.N }
	case ByDate:
		last := slots.DateOnly(end.Date)
		limit = func(_ int, d time.Time) bool { return !d.After(last) }
	}

	return func(yield func(time.Time) bool) {
		for k := 0; ; k++ {
			d := step(k)
			if !limit(k, d) {
				return
			}
			if !yield(d) {
				return
			}
		}
	}, nil
}

// Dates expands the series into a slice. A series longer than maxCount occurrences is
// rejected with ErrInvalidPattern; maxCount <= 0 means no cap.
func Dates(initial time.Time, p Pattern, maxCount int) ([]time.Time, error) {
	seq, err := Generate(initial, p)
	if err != nil {
		return nil, err
	}
	var out []time.Time
	for d := range seq {
		if maxCount > 0 && len(out) == maxCount {
			return nil, fmt.Errorf("%w: more than %d occurrences", ErrInvalidPattern, maxCount)
		}
		out = append(out, d)
	}
	return out, nil
}

// stepper returns the k-th date of the series. Dates strictly increase with k.
func stepper(start time.Time, p Pattern) func(k int) time.Time {
	switch p.Frequency {
	case Daily:
		return func(k int) time.Time { return start.AddDate(0, 0, k*p.Interval) }
	case Weekly:
		target := start.Weekday()
		if p.DayOfWeek != nil {
			target = *p.DayOfWeek
		}
		weekStart := start.AddDate(0, 0, -int(start.Weekday()))
		return func(k int) time.Time {
			if k == 0 {
				return start
			}
			return weekStart.AddDate(0, 0, k*p.Interval*7+int(target))
		}
	default:
		return func(k int) time.Time { return addMonthsClamped(start, k*p.Interval) }
	}
}

func addMonthsClamped(start time.Time, months int) time.Time {
	y, m, d := start.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(first.Month(), first.Year()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
