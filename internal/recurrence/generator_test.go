package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func weekday(w time.Weekday) *time.Weekday { return &w }

func formatAll(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format("2006-01-02")
	}
	return out
}

func TestGenerate_WeeklyByCount(t *testing.T) {
	dates, err := Dates(day(2024, 1, 1), Pattern{Frequency: Weekly, Interval: 1, End: ByCount{N: 8}}, 0)
	require.NoError(t, err)
	require.Len(t, dates, 8)

	assert.Equal(t, day(2024, 1, 1), dates[0])
	assert.Equal(t, day(2024, 2, 19), dates[7])
	for i := 1; i < len(dates); i++ {
		assert.Equal(t, 7*24*time.Hour, dates[i].Sub(dates[i-1]))
	}
}

func TestGenerate_MonthlyClampsToMonthEnd(t *testing.T) {
	dates, err := Dates(day(2024, 1, 31), Pattern{Frequency: Monthly, Interval: 1, End: ByDate{Date: day(2024, 4, 15)}}, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-01-31", "2024-02-29", "2024-03-31"}, formatAll(dates))
}

func TestGenerate_MonthlyDoesNotDrift(t *testing.T) {
	dates, err := Dates(day(2023, 1, 31), Pattern{Frequency: Monthly, Interval: 1, End: ByCount{N: 5}}, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"2023-01-31", "2023-02-28", "2023-03-31", "2023-04-30", "2023-05-31"}, formatAll(dates))
}

func TestGenerate_Table(t *testing.T) {
	tests := []struct {
		name    string
		initial time.Time
		pattern Pattern
		want    []string
	}{
		{
			name:    "daily every other day",
			initial: day(2024, 1, 1),
			pattern: Pattern{Frequency: Daily, Interval: 2, End: ByCount{N: 3}},
			want:    []string{"2024-01-01", "2024-01-03", "2024-01-05"},
		},
		{
			name:    "daily until inclusive end",
			initial: day(2024, 2, 27),
			pattern: Pattern{Frequency: Daily, Interval: 1, End: ByDate{Date: day(2024, 3, 1)}},
			want:    []string{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01"},
		},
		{
			name:    "biweekly",
			initial: day(2024, 1, 3),
			pattern: Pattern{Frequency: Weekly, Interval: 2, End: ByCount{N: 3}},
			want:    []string{"2024-01-03", "2024-01-17", "2024-01-31"},
		},
		{
			name:    "weekly on another weekday keeps the initial date first",
			initial: day(2024, 1, 1), // Monday
			pattern: Pattern{Frequency: Weekly, Interval: 1, DayOfWeek: weekday(time.Thursday), End: ByCount{N: 3}},
			want:    []string{"2024-01-01", "2024-01-11", "2024-01-18"},
		},
		{
			name:    "weekly day earlier than initial weekday",
			initial: day(2024, 1, 5), // Friday
			pattern: Pattern{Frequency: Weekly, Interval: 1, DayOfWeek: weekday(time.Tuesday), End: ByDate{Date: day(2024, 1, 23)}},
			want:    []string{"2024-01-05", "2024-01-09", "2024-01-16", "2024-01-23"},
		},
		{
			name:    "quarterly",
			initial: day(2024, 11, 30),
			pattern: Pattern{Frequency: Monthly, Interval: 3, End: ByCount{N: 3}},
			want:    []string{"2024-11-30", "2025-02-28", "2025-05-30"},
		},
		{
			name:    "end before initial is empty",
			initial: day(2024, 5, 1),
			pattern: Pattern{Frequency: Daily, Interval: 1, End: ByDate{Date: day(2024, 4, 30)}},
			want:    []string{},
		},
		{
			name:    "end equal to initial yields one date",
			initial: day(2024, 5, 1),
			pattern: Pattern{Frequency: Monthly, Interval: 1, End: ByDate{Date: day(2024, 5, 1)}},
			want:    []string{"2024-05-01"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dates, err := Dates(tt.initial, tt.pattern, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, formatAll(dates))
		})
	}
}

func TestGenerate_IgnoresTimeOfDay(t *testing.T) {
	initial := time.Date(2024, 1, 1, 17, 45, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC)

	dates, err := Dates(initial, Pattern{Frequency: Daily, Interval: 1, End: ByDate{Date: end}}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03"}, formatAll(dates))
}

func TestGenerate_LazyAndRestartable(t *testing.T) {
	seq, err := Generate(day(2024, 1, 1), Pattern{Frequency: Daily, Interval: 1, End: ByCount{N: 1000}})
	require.NoError(t, err)

	var first []time.Time
	for d := range seq {
		first = append(first, d)
		if len(first) == 3 {
			break
		}
	}
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03"}, formatAll(first))

	count := 0
	for range seq {
		count++
	}
	assert.Equal(t, 1000, count)
}

func TestGenerate_InvalidPattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern Pattern
	}{
		{"zero interval", Pattern{Frequency: Daily, Interval: 0, End: ByCount{N: 2}}},
		{"negative interval", Pattern{Frequency: Weekly, Interval: -1, End: ByCount{N: 2}}},
		{"unknown frequency", Pattern{Frequency: "yearly", Interval: 1, End: ByCount{N: 2}}},
		{"missing end", Pattern{Frequency: Daily, Interval: 1}},
		{"zero occurrences", Pattern{Frequency: Daily, Interval: 1, End: ByCount{N: 0}}},
		{"empty end date", Pattern{Frequency: Daily, Interval: 1, End: ByDate{}}},
		{"bad weekday", Pattern{Frequency: Weekly, Interval: 1, DayOfWeek: weekday(9), End: ByCount{N: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(day(2024, 1, 1), tt.pattern)
			assert.True(t, errors.Is(err, ErrInvalidPattern), "got %v", err)
		})
	}
}

func TestPatternFromFields(t *testing.T) {
	end := day(2024, 3, 1)
	count := 4
	dow := 3

	p, err := PatternFromFields("weekly", 1, &dow, nil, &count)
	require.NoError(t, err)
	assert.Equal(t, ByCount{N: 4}, p.End)
	require.NotNil(t, p.DayOfWeek)
	assert.Equal(t, time.Wednesday, *p.DayOfWeek)

	p, err = PatternFromFields("monthly", 2, nil, &end, nil)
	require.NoError(t, err)
	assert.Equal(t, ByDate{Date: end}, p.End)
	assert.Nil(t, p.DayOfWeek)

	_, err = PatternFromFields("daily", 1, nil, &end, &count)
	assert.ErrorIs(t, err, ErrInvalidPattern, "both end conditions")

	_, err = PatternFromFields("daily", 1, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidPattern, "no end condition")

	bad := 7
	_, err = PatternFromFields("weekly", 1, &bad, nil, &count)
	assert.ErrorIs(t, err, ErrInvalidPattern)

	_, err = PatternFromFields("fortnightly", 1, nil, nil, &count)
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestDates_Cap(t *testing.T) {
	p := Pattern{Frequency: Daily, Interval: 1, End: ByCount{N: 5}}

	dates, err := Dates(day(2024, 1, 1), p, 5)
	require.NoError(t, err)
	assert.Len(t, dates, 5)

	_, err = Dates(day(2024, 1, 1), p, 4)
	assert.ErrorIs(t, err, ErrInvalidPattern)
}
