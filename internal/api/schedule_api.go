package api

import (
	"fmt"
	"net/http"
	"time"

	"pediclinic/internal/availability"
	"pediclinic/internal/export"
	"pediclinic/internal/metrics"
	"pediclinic/internal/model"
	"pediclinic/internal/slots"
)

// AvailabilityRequest is the body of POST /api/v1/availability.
type AvailabilityRequest struct {
	Date             string `json:"date"`
	Time             string `json:"time"`
	TherapistID      string `json:"therapist_id"`
	ExcludeSessionID string `json:"exclude_session_id,omitempty"`
}

// OccurrencesRequest is the body of POST /api/v1/occurrences.
type OccurrencesRequest struct {
	Date    string         `json:"date"`
	Pattern PatternRequest `json:"pattern"`
}

// OccurrencesResponse lists generated dates.
type OccurrencesResponse struct {
	Dates []string `json:"dates"`
	Count int      `json:"count"`
}

// handleAvailability reports whether a candidate placement would be accepted.
// POST /api/v1/availability
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")

	var req AvailabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.TherapistID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "therapist_id is required")
		return
	}
	date, err := parseSlot(req.Date, req.Time)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	res, err := s.scheduler.CheckAvailability(r.Context(), availability.Candidate{
		Date:             date,
		Time:             req.Time,
		TherapistID:      req.TherapistID,
		ExcludeSessionID: req.ExcludeSessionID,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleOccurrences previews the dates a pattern produces.
// POST /api/v1/occurrences
func (s *HTTPServer) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("occurrences")

	var req OccurrencesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	start, err := slots.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	pattern, err := req.Pattern.toPattern()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	dates, err := s.scheduler.PreviewOccurrences(start, pattern)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	resp := OccurrencesResponse{Dates: make([]string, len(dates)), Count: len(dates)}
	for i, d := range dates {
		resp.Dates[i] = d.Format(slots.DateLayout)
	}
	writeJSON(w, http.StatusOK, resp)
}

func weekParam(r *http.Request) (time.Time, error) {
	v := r.URL.Query().Get("start")
	if v == "" {
		return slots.WeekStart(time.Now()), nil
	}
	d, err := slots.ParseDate(v)
	if err != nil {
		return time.Time{}, err
	}
	return slots.WeekStart(d), nil
}

// handleWeek returns the weekly grid.
// GET /api/v1/schedule/week?start=YYYY-MM-DD
func (s *HTTPServer) handleWeek(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedule_week")

	start, err := weekParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	week, err := s.scheduler.Week(r.Context(), start)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, week)
}

// handleWeekExport streams the weekly grid as an .xlsx workbook.
// GET /api/v1/schedule/week.xlsx?start=YYYY-MM-DD
func (s *HTTPServer) handleWeekExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedule_week_xlsx")

	start, err := weekParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	week, err := s.scheduler.Week(r.Context(), start)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	sessions, err := s.scheduler.ListSessions(r.Context(), start, start.AddDate(0, 0, 6))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	wb := export.NewWorkbook()
	defer wb.Close()
	if err := export.WriteWeek(wb, week, sessions, s.resolveNames(r, sessions)); err != nil {
		s.writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.WeekFilename(start)))
	if err := wb.Save(w); err != nil {
		s.logger.Error().Err(err).Msg("write workbook")
	}
}

func (s *HTTPServer) resolveNames(r *http.Request, sessions []model.Session) export.Names {
	names := export.Names{Patients: map[string]string{}, Therapists: map[string]string{}}
	if s.names == nil {
		return names
	}
	if therapists, err := s.names.ListTherapists(r.Context()); err == nil {
		for _, t := range therapists {
			names.Therapists[t.ID] = t.FullName
		}
	}
	for _, sess := range sessions {
		if _, ok := names.Patients[sess.PatientID]; ok {
			continue
		}
		if p, err := s.names.GetPatient(r.Context(), sess.PatientID); err == nil {
			names.Patients[p.ID] = p.FullName
		}
	}
	return names
}
