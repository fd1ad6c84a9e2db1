package model

import "time"

// ReportStatus tracks the evaluation report of a session.
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportCompleted ReportStatus = "completed"
)

// Session is one scheduled therapy appointment.
type Session struct {
	ID              string       `json:"id"`
	PatientID       string       `json:"patient_id"`
	TherapistID     string       `json:"therapist_id"`
	Date            time.Time    `json:"date"` // civil date, midnight UTC
	Time            string       `json:"time"` // "HH:MM", one of the operating hours
	DurationMinutes int          `json:"duration_minutes"`
	ReportStatus    ReportStatus `json:"report_status"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Start returns the session start as a wall-clock time in loc.
func (s *Session) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.Parse("15:04", s.Time)
	if err != nil {
		return time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), 0, 0, 0, 0, loc)
	}
	return time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}

// End returns Start plus the session duration.
func (s *Session) End(loc *time.Location) time.Time {
	return s.Start(loc).Add(time.Duration(s.DurationMinutes) * time.Minute)
}
