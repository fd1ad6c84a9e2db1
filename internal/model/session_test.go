package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestSession_StartEnd(t *testing.T) {
	s := Session{Date: date(2024, 1, 1), Time: "09:00", DurationMinutes: 45}
	assert.Equal(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), s.Start(nil))
	assert.Equal(t, time.Date(2024, 1, 1, 9, 45, 0, 0, time.UTC), s.End(nil))
}
