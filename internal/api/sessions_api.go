package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pediclinic/internal/metrics"
	"pediclinic/internal/model"
	"pediclinic/internal/recurrence"
	"pediclinic/internal/scheduling"
	"pediclinic/internal/slots"
)

// BookSessionRequest is the body of POST /api/v1/sessions.
type BookSessionRequest struct {
	PatientID   string `json:"patient_id"`
	TherapistID string `json:"therapist_id"`
	Date        string `json:"date"` // YYYY-MM-DD
	Time        string `json:"time"` // HH:MM
}

// RescheduleRequest is the body of PATCH /api/v1/sessions/{id}.
type RescheduleRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// PatternRequest is the wire form of a recurrence pattern. Exactly one of
// EndDate and Occurrences must be set. Interval defaults to 1 when omitted.
type PatternRequest struct {
	Frequency   string  `json:"frequency"`
	Interval    *int    `json:"interval,omitempty"`
	DayOfWeek   *int    `json:"day_of_week,omitempty"` // 0 = Sunday
	EndDate     *string `json:"end_date,omitempty"`
	Occurrences *int    `json:"occurrences,omitempty"`
}

// RecurringRequest is the body of POST /api/v1/sessions/recurring.
type RecurringRequest struct {
	PatientID   string         `json:"patient_id"`
	TherapistID string         `json:"therapist_id"`
	Date        string         `json:"date"`
	Time        string         `json:"time"`
	Pattern     PatternRequest `json:"pattern"`
}

// SeriesResponse lists the sessions of a created series.
type SeriesResponse struct {
	Sessions []model.Session `json:"sessions"`
	Count    int             `json:"count"`
}

// ReportRequest is the body of PUT /api/v1/sessions/{id}/report.
type ReportRequest struct {
	Status string `json:"status"`
}

func (p PatternRequest) toPattern() (recurrence.Pattern, error) {
	interval := 1
	if p.Interval != nil {
		interval = *p.Interval
	}
	var end *time.Time
	if p.EndDate != nil {
		d, err := slots.ParseDate(*p.EndDate)
		if err != nil {
			return recurrence.Pattern{}, fmt.Errorf("%w: end_date: %v", recurrence.ErrInvalidPattern, err)
		}
		end = &d
	}
	return recurrence.PatternFromFields(strings.ToLower(p.Frequency), interval, p.DayOfWeek, end, p.Occurrences)
}

func parseSlot(date, tod string) (time.Time, error) {
	if date == "" || tod == "" {
		return time.Time{}, errors.New("date and time are required")
	}
	d, err := slots.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	if _, err := slots.ParseClock(tod); err != nil {
		return time.Time{}, err
	}
	return d, nil
}

// handleBookSession books one session.
// POST /api/v1/sessions
func (s *HTTPServer) handleBookSession(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("book_session")

	var req BookSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.PatientID == "" || req.TherapistID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "patient_id and therapist_id are required")
		return
	}
	date, err := parseSlot(req.Date, req.Time)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	session, err := s.scheduler.BookSession(r.Context(), scheduling.BookRequest{
		PatientID:   req.PatientID,
		TherapistID: req.TherapistID,
		Date:        date,
		Time:        req.Time,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// handleGetSession returns one session.
// GET /api/v1/sessions/{id}
func (s *HTTPServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_session")

	session, err := s.scheduler.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// handleReschedule moves a session to a new slot.
// PATCH /api/v1/sessions/{id}
func (s *HTTPServer) handleReschedule(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reschedule_session")

	var req RescheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	date, err := parseSlot(req.Date, req.Time)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	session, err := s.scheduler.RescheduleSession(r.Context(), r.PathValue("id"), date, req.Time)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// handleReportStatus updates the evaluation report status.
// PUT /api/v1/sessions/{id}/report
func (s *HTTPServer) handleReportStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("report_status")

	var req ReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	session, err := s.scheduler.SetReportStatus(r.Context(), r.PathValue("id"), model.ReportStatus(req.Status))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// handleCreateSeries books a recurring series, all or nothing.
// POST /api/v1/sessions/recurring
func (s *HTTPServer) handleCreateSeries(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_series")

	var req RecurringRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.PatientID == "" || req.TherapistID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "patient_id and therapist_id are required")
		return
	}
	date, err := parseSlot(req.Date, req.Time)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	pattern, err := req.Pattern.toPattern()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	sessions, err := s.scheduler.CreateRecurringSeries(r.Context(), scheduling.SeriesRequest{
		PatientID:   req.PatientID,
		TherapistID: req.TherapistID,
		Date:        date,
		Time:        req.Time,
		Pattern:     pattern,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, SeriesResponse{Sessions: sessions, Count: len(sessions)})
}
