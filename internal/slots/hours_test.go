package slots

import (
	"errors"
	"testing"
)

func TestGenerateHours(t *testing.T) {
	tests := []struct {
		name     string
		schedule ScheduleInfo
		session  int
		expected []string
		wantErr  bool
	}{
		{
			name: "hourly with lunch",
			schedule: ScheduleInfo{
				StartTime:    "08:00",
				EndTime:      "18:00",
				LunchStart:   "12:00",
				LunchEnd:     "13:00",
				SlotDuration: 60,
			},
			session:  45,
			expected: []string{"08:00", "09:00", "10:00", "11:00", "13:00", "14:00", "15:00", "16:00", "17:00"},
		},
		{
			name: "no lunch break",
			schedule: ScheduleInfo{
				StartTime:    "09:00",
				EndTime:      "12:00",
				SlotDuration: 60,
			},
			session:  45,
			expected: []string{"09:00", "10:00", "11:00"},
		},
		{
			name: "session must fit before closing",
			schedule: ScheduleInfo{
				StartTime:    "09:00",
				EndTime:      "10:30",
				SlotDuration: 45,
			},
			session:  45,
			expected: []string{"09:00", "09:45"},
		},
		{
			name: "session overlapping lunch is skipped",
			schedule: ScheduleInfo{
				StartTime:    "11:00",
				EndTime:      "14:00",
				LunchStart:   "12:00",
				LunchEnd:     "12:30",
				SlotDuration: 30,
			},
			session:  45,
			expected: []string{"11:00", "12:30", "13:00"},
		},
		{
			name:     "end before start",
			schedule: ScheduleInfo{StartTime: "18:00", EndTime: "08:00", SlotDuration: 60},
			wantErr:  true,
		},
		{
			name:     "bad format",
			schedule: ScheduleInfo{StartTime: "8am", EndTime: "18:00", SlotDuration: 60},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hours, err := GenerateHours(tt.schedule, tt.session)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got hours %v", hours.Times())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got := hours.Times()
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d hours, got %d: %v", len(tt.expected), len(got), got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("hour[%d] = %s, want %s", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestNewOperatingHours(t *testing.T) {
	h, err := NewOperatingHours("14:00", "09:00", "10:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"09:00", "10:30", "14:00"}
	for i, got := range h.Times() {
		if got != want[i] {
			t.Errorf("hour[%d] = %s, want %s", i, got, want[i])
		}
	}

	if _, err := NewOperatingHours("09:00", "09:00"); err == nil {
		t.Error("expected duplicate error")
	}
	if _, err := NewOperatingHours("9:00"); err == nil {
		t.Error("expected format error for 9:00")
	}
	if _, err := NewOperatingHours(); err == nil {
		t.Error("expected error for empty hours")
	}
}

func TestOperatingHours_Validate(t *testing.T) {
	h := MustOperatingHours("09:00", "10:00")

	if err := h.Validate("09:00"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := h.Validate("09:30")
	if !errors.Is(err, ErrInvalidTimeSlot) {
		t.Errorf("expected ErrInvalidTimeSlot, got %v", err)
	}

	var zero OperatingHours
	if zero.Contains("09:00") {
		t.Error("zero value must not contain any hour")
	}
}
