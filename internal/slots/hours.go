package slots

import (
	"fmt"
	"sort"
)

// ScheduleInfo describes a working day from which operating hours are derived.
type ScheduleInfo struct {
	StartTime    string `yaml:"start_time"`            // "08:00"
	EndTime      string `yaml:"end_time"`              // "18:00"
	LunchStart   string `yaml:"lunch_start,omitempty"` // "12:00"
	LunchEnd     string `yaml:"lunch_end,omitempty"`   // "13:00"
	SlotDuration int    `yaml:"slot_duration_minutes"` // minutes between session starts
}

// OperatingHours is the ordered set of time-of-day values a session may start at.
// The zero value has no hours.
type OperatingHours struct {
	times []string
	index map[string]int
}

// NewOperatingHours validates and sorts the given HH:MM values.
func NewOperatingHours(times ...string) (OperatingHours, error) {
	if len(times) == 0 {
		return OperatingHours{}, fmt.Errorf("operating hours are empty")
	}

	minutes := make(map[string]int, len(times))
	for _, t := range times {
		m, err := ParseClock(t)
		if err != nil {
			return OperatingHours{}, err
		}
		if _, dup := minutes[t]; dup {
			return OperatingHours{}, fmt.Errorf("duplicate operating hour %s", t)
		}
		minutes[t] = m
	}

	sorted := append([]string(nil), times...)
	sort.Slice(sorted, func(i, j int) bool { return minutes[sorted[i]] < minutes[sorted[j]] })

	index := make(map[string]int, len(sorted))
	for i, t := range sorted {
		index[t] = i
	}
	return OperatingHours{times: sorted, index: index}, nil
}

// MustOperatingHours is NewOperatingHours that panics on error. Intended for tests and literals.
func MustOperatingHours(times ...string) OperatingHours {
	h, err := NewOperatingHours(times...)
	if err != nil {
		panic(err)
	}
	return h
}

// GenerateHours derives operating hours from a working day: one start every
// SlotDuration minutes, each session fitting before EndTime, skipping starts whose
// session would overlap the lunch break.
func GenerateHours(schedule ScheduleInfo, sessionMinutes int) (OperatingHours, error) {
	if schedule.SlotDuration <= 0 {
		schedule.SlotDuration = 60
	}
	if sessionMinutes <= 0 {
		sessionMinutes = SessionDurationMinutes
	}

	start, err := ParseClock(schedule.StartTime)
	if err != nil {
		return OperatingHours{}, fmt.Errorf("parse start time: %w", err)
	}
	end, err := ParseClock(schedule.EndTime)
	if err != nil {
		return OperatingHours{}, fmt.Errorf("parse end time: %w", err)
	}
	if end <= start {
		return OperatingHours{}, fmt.Errorf("end time %s must be after start time %s", schedule.EndTime, schedule.StartTime)
	}

	var lunchStart, lunchEnd int
	hasLunch := schedule.LunchStart != "" && schedule.LunchEnd != ""
	if hasLunch {
		if lunchStart, err = ParseClock(schedule.LunchStart); err != nil {
			return OperatingHours{}, fmt.Errorf("parse lunch start: %w", err)
		}
		if lunchEnd, err = ParseClock(schedule.LunchEnd); err != nil {
			return OperatingHours{}, fmt.Errorf("parse lunch end: %w", err)
		}
	}

	var times []string
	for cursor := start; cursor+sessionMinutes <= end; cursor += schedule.SlotDuration {
		if hasLunch && isOverlapping(cursor, cursor+sessionMinutes, lunchStart, lunchEnd) {
			continue
		}
		times = append(times, formatClock(cursor))
	}
	if len(times) == 0 {
		return OperatingHours{}, fmt.Errorf("schedule %s-%s leaves no bookable hours", schedule.StartTime, schedule.EndTime)
	}
	return NewOperatingHours(times...)
}

// Contains reports whether t is one of the operating hours.
func (h OperatingHours) Contains(t string) bool {
	_, ok := h.index[t]
	return ok
}

// Times returns a copy of the ordered hours.
func (h OperatingHours) Times() []string {
	return append([]string(nil), h.times...)
}

// Len returns the number of hours.
func (h OperatingHours) Len() int { return len(h.times) }

// Validate returns ErrInvalidTimeSlot when t is not an operating hour.
func (h OperatingHours) Validate(t string) error {
	if !h.Contains(t) {
		return fmt.Errorf("%w: %q", ErrInvalidTimeSlot, t)
	}
	return nil
}

func isOverlapping(start1, end1, start2, end2 int) bool {
	return start1 < end2 && start2 < end1
}
