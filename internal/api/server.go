// Package api exposes the scheduling engine over JSON HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"pediclinic/internal/availability"
	"pediclinic/internal/lock"
	"pediclinic/internal/model"
	"pediclinic/internal/recurrence"
	"pediclinic/internal/scheduling"
	"pediclinic/internal/slots"
)

// Scheduler is the engine surface the handlers call.
type Scheduler interface {
	BookSession(ctx context.Context, req scheduling.BookRequest) (*model.Session, error)
	RescheduleSession(ctx context.Context, id string, date time.Time, tod string) (*model.Session, error)
	CreateRecurringSeries(ctx context.Context, req scheduling.SeriesRequest) ([]model.Session, error)
	GetSession(ctx context.Context, id string) (*model.Session, error)
	SetReportStatus(ctx context.Context, id string, status model.ReportStatus) (*model.Session, error)
	CheckAvailability(ctx context.Context, c availability.Candidate) (availability.Result, error)
	PreviewOccurrences(initial time.Time, p recurrence.Pattern) ([]time.Time, error)
	ListSessions(ctx context.Context, from, to time.Time) ([]model.Session, error)
	Week(ctx context.Context, date time.Time) (slots.WeekInfo, error)
}

// NameSource resolves display names for exports. Optional.
type NameSource interface {
	ListTherapists(ctx context.Context) ([]model.Therapist, error)
	GetPatient(ctx context.Context, id string) (*model.Patient, error)
}

// Config configures the HTTP server.
type Config struct {
	Port      int
	RateLimit float64 // requests per second per client, 0 disables limiting
	RateBurst int
}

// HTTPServer serves the scheduling API.
type HTTPServer struct {
	server    *http.Server
	scheduler Scheduler
	names     NameSource
	limiter   *clientLimiter
	logger    zerolog.Logger
}

// NewHTTPServer wires routes. names may be nil.
func NewHTTPServer(cfg Config, scheduler Scheduler, names NameSource, logger *zerolog.Logger) *HTTPServer {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "api").Logger()
	}
	s := &HTTPServer{
		scheduler: scheduler,
		names:     names,
		limiter:   newClientLimiter(cfg.RateLimit, cfg.RateBurst),
		logger:    l,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/sessions", s.handleBookSession)
	mux.HandleFunc("POST /api/v1/sessions/recurring", s.handleCreateSeries)
	mux.HandleFunc("GET /api/v1/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("PATCH /api/v1/sessions/{id}", s.handleReschedule)
	mux.HandleFunc("PUT /api/v1/sessions/{id}/report", s.handleReportStatus)
	mux.HandleFunc("POST /api/v1/availability", s.handleAvailability)
	mux.HandleFunc("POST /api/v1/occurrences", s.handleOccurrences)
	mux.HandleFunc("GET /api/v1/schedule/week", s.handleWeek)
	mux.HandleFunc("GET /api/v1/schedule/week.xlsx", s.handleWeekExport)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.limiter.middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root handler, rate limiting included.
func (s *HTTPServer) Handler() http.Handler { return s.server.Handler }

// Start serves until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()
	go s.limiter.cleanup(ctx, time.Minute)

	s.logger.Info().Str("addr", s.server.Addr).Msg("API server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error           string `json:"error"`
	Code            string `json:"code"`
	Reason          string `json:"reason,omitempty"`
	OccurrenceIndex int    `json:"occurrence_index,omitempty"`
	Date            string `json:"date,omitempty"`
	Time            string `json:"time,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

// writeDomainError maps engine errors onto HTTP statuses.
func (s *HTTPServer) writeDomainError(w http.ResponseWriter, err error) {
	var rc *scheduling.RecurringConflictError
	var conflict *scheduling.ConflictError
	switch {
	case errors.As(err, &rc):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:           err.Error(),
			Code:            "recurring_conflict",
			Reason:          string(rc.Kind),
			OccurrenceIndex: rc.Index,
			Date:            rc.Date.Format(slots.DateLayout),
			Time:            rc.Time,
		})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:  err.Error(),
			Code:   string(conflict.Kind),
			Reason: string(conflict.Kind),
			Date:   conflict.Slot.Date.Format(slots.DateLayout),
			Time:   conflict.Slot.Time,
		})
	case errors.Is(err, scheduling.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, scheduling.ErrUnknownPatient):
		writeError(w, http.StatusNotFound, "unknown_patient", err.Error())
	case errors.Is(err, scheduling.ErrUnknownTherapist):
		writeError(w, http.StatusNotFound, "unknown_therapist", err.Error())
	case errors.Is(err, recurrence.ErrInvalidPattern):
		writeError(w, http.StatusUnprocessableEntity, "invalid_pattern", err.Error())
	case errors.Is(err, slots.ErrInvalidTimeSlot):
		writeError(w, http.StatusUnprocessableEntity, "invalid_time_slot", err.Error())
	case errors.Is(err, scheduling.ErrInvalidReport):
		writeError(w, http.StatusUnprocessableEntity, "invalid_report_status", err.Error())
	case errors.Is(err, lock.ErrLockTimeout):
		writeError(w, http.StatusLocked, "slot_busy", err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
