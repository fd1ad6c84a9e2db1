// Package scheduling books, moves and repeats therapy sessions while keeping
// every slot within therapist exclusivity and center capacity.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pediclinic/internal/availability"
	"pediclinic/internal/events"
	"pediclinic/internal/lock"
	"pediclinic/internal/metrics"
	"pediclinic/internal/model"
	"pediclinic/internal/recurrence"
	"pediclinic/internal/slots"
)

// DefaultMaxSeriesLength bounds how many sessions one recurring request may create.
const DefaultMaxSeriesLength = 366

// BookRequest describes a single session to place.
type BookRequest struct {
	PatientID   string
	TherapistID string
	Date        time.Time
	Time        string
}

// SeriesRequest describes a recurring series starting at Date/Time.
type SeriesRequest struct {
	PatientID   string
	TherapistID string
	Date        time.Time
	Time        string
	Pattern     recurrence.Pattern
}

// ConflictEvent is published when a placement is rejected.
type ConflictEvent struct {
	Operation   string                    `json:"operation"`
	Slot        slots.TimeSlot            `json:"slot"`
	TherapistID string                    `json:"therapist_id"`
	Reason      availability.ConflictKind `json:"reason"`
}

// RescheduledEvent carries the slot a session left and the session after the move.
type RescheduledEvent struct {
	From    slots.TimeSlot `json:"from"`
	Session model.Session  `json:"session"`
}

// Engine orchestrates check-then-commit for every schedule mutation.
type Engine struct {
	store     SessionStore
	directory Directory
	checker   *availability.Checker
	locker    lock.Locker
	publisher Publisher
	logger    zerolog.Logger

	newID     func() string
	now       func() time.Time
	duration  int
	maxSeries int
}

// Option customizes an Engine.
type Option func(*Engine)

// WithPublisher sets the event sink.
func WithPublisher(p Publisher) Option { return func(e *Engine) { e.publisher = p } }

// WithClock overrides time.Now for CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithIDGenerator overrides uuid.NewString.
func WithIDGenerator(fn func() string) Option { return func(e *Engine) { e.newID = fn } }

// WithSessionDuration sets the duration stored on new sessions.
func WithSessionDuration(minutes int) Option {
	return func(e *Engine) {
		if minutes > 0 {
			e.duration = minutes
		}
	}
}

// WithMaxSeriesLength sets the largest series CreateRecurringSeries accepts.
func WithMaxSeriesLength(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSeries = n
		}
	}
}

// NewEngine creates a scheduling engine. A nil locker falls back to an in-process lock.
func NewEngine(
	store SessionStore,
	directory Directory,
	checker *availability.Checker,
	locker lock.Locker,
	logger *zerolog.Logger,
	opts ...Option,
) *Engine {
	if locker == nil {
		locker = lock.NewLocal(lock.DefaultWait)
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "scheduling").Logger()
	}
	e := &Engine{
		store:     store,
		directory: directory,
		checker:   checker,
		locker:    locker,
		logger:    l,
		newID:     uuid.NewString,
		now:       time.Now,
		duration:  slots.SessionDurationMinutes,
		maxSeries: DefaultMaxSeriesLength,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Checker exposes the configured checker.
func (e *Engine) Checker() *availability.Checker { return e.checker }

// GetSession returns a stored session.
func (e *Engine) GetSession(ctx context.Context, id string) (*model.Session, error) {
	s, err := e.store.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// BookSession places one session for patient and therapist at date/time.
func (e *Engine) BookSession(ctx context.Context, req BookRequest) (*model.Session, error) {
	if err := e.checkParticipants(ctx, req.PatientID, req.TherapistID); err != nil {
		return nil, err
	}
	if err := e.checker.Hours().Validate(req.Time); err != nil {
		return nil, err
	}
	slot := slots.New(req.Date, req.Time)

	unlock, err := e.lock(ctx, slot)
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := e.store.ListSessions(ctx, slot.Date, slot.Date)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	res, err := e.checker.Check(availability.Candidate{
		Date:        slot.Date,
		Time:        slot.Time,
		TherapistID: req.TherapistID,
	}, existing)
	if err != nil {
		return nil, err
	}
	if !res.Available {
		return nil, e.conflict("book", slot, req.TherapistID, res.Reason)
	}

	now := e.now()
	session := &model.Session{
		ID:              e.newID(),
		PatientID:       req.PatientID,
		TherapistID:     req.TherapistID,
		Date:            slot.Date,
		Time:            slot.Time,
		DurationMinutes: e.duration,
		ReportStatus:    model.ReportPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := e.store.CreateSession(ctx, session); err != nil {
		if errors.Is(err, model.ErrSlotTaken) {
			return nil, e.conflict("book", slot, req.TherapistID, availability.TherapistDoubleBooked)
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	metrics.IncSessionsBooked("single", 1)
	e.publish(events.SessionBooked, *session)
	e.logger.Info().
		Str("session_id", session.ID).
		Str("patient_id", session.PatientID).
		Str("therapist_id", session.TherapistID).
		Str("slot", slot.Key()).
		Msg("session booked")
	return session, nil
}

// RescheduleSession moves a session to another slot. Moving a session onto its
// own slot always succeeds. On conflict the stored session is left unchanged.
func (e *Engine) RescheduleSession(ctx context.Context, id string, date time.Time, tod string) (*model.Session, error) {
	current, err := e.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.checker.Hours().Validate(tod); err != nil {
		return nil, err
	}
	target := slots.New(date, tod)
	from := slots.New(current.Date, current.Time)

	unlock, err := e.lock(ctx, target)
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := e.store.ListSessions(ctx, target.Date, target.Date)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	res, err := e.checker.Check(availability.Candidate{
		Date:             target.Date,
		Time:             target.Time,
		TherapistID:      current.TherapistID,
		ExcludeSessionID: current.ID,
	}, existing)
	if err != nil {
		return nil, err
	}
	if !res.Available {
		return nil, e.conflict("reschedule", target, current.TherapistID, res.Reason)
	}

	updated, err := e.store.UpdateSessionSlot(ctx, current.ID, target.Date, target.Time, e.now())
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound):
			return nil, ErrSessionNotFound
		case errors.Is(err, model.ErrSlotTaken):
			return nil, e.conflict("reschedule", target, current.TherapistID, availability.TherapistDoubleBooked)
		}
		return nil, fmt.Errorf("update session: %w", err)
	}

	metrics.IncRescheduled()
	e.publish(events.SessionRescheduled, RescheduledEvent{From: from, Session: *updated})
	e.logger.Info().
		Str("session_id", updated.ID).
		Str("from", from.Key()).
		Str("to", target.Key()).
		Msg("session rescheduled")
	return updated, nil
}

// SetReportStatus records whether the evaluation report of a session is done.
func (e *Engine) SetReportStatus(ctx context.Context, id string, status model.ReportStatus) (*model.Session, error) {
	if status != model.ReportPending && status != model.ReportCompleted {
		return nil, fmt.Errorf("%w: %q", ErrInvalidReport, status)
	}
	s, err := e.store.UpdateReportStatus(ctx, id, status, e.now())
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("update report status: %w", err)
	}
	e.logger.Info().Str("session_id", id).Str("report_status", string(status)).Msg("report status updated")
	return s, nil
}

// CreateRecurringSeries books every occurrence of the pattern or none of them.
// The first occurrence that cannot be placed is reported as a *RecurringConflictError.
func (e *Engine) CreateRecurringSeries(ctx context.Context, req SeriesRequest) ([]model.Session, error) {
	dates, err := e.PreviewOccurrences(req.Date, req.Pattern)
	if err != nil {
		return nil, err
	}
	if err := e.checkParticipants(ctx, req.PatientID, req.TherapistID); err != nil {
		return nil, err
	}
	if err := e.checker.Hours().Validate(req.Time); err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return []model.Session{}, nil
	}

	candidates := make([]slots.TimeSlot, len(dates))
	for i, d := range dates {
		candidates[i] = slots.New(d, req.Time)
	}

	unlock, err := e.lock(ctx, candidates...)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// dates are strictly increasing
	pool, err := e.store.ListSessions(ctx, candidates[0].Date, candidates[len(candidates)-1].Date)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	now := e.now()
	batch := make([]model.Session, 0, len(candidates))
	for i, slot := range candidates {
		res, err := e.checker.Check(availability.Candidate{
			Date:        slot.Date,
			Time:        slot.Time,
			TherapistID: req.TherapistID,
		}, pool)
		if err != nil {
			return nil, err
		}
		if !res.Available {
			_ = e.conflict("recurring", slot, req.TherapistID, res.Reason)
			return nil, &RecurringConflictError{Index: i + 1, Date: slot.Date, Time: slot.Time, Kind: res.Reason}
		}
		s := model.Session{
			ID:              e.newID(),
			PatientID:       req.PatientID,
			TherapistID:     req.TherapistID,
			Date:            slot.Date,
			Time:            slot.Time,
			DurationMinutes: e.duration,
			ReportStatus:    model.ReportPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		batch = append(batch, s)
		pool = append(pool, s)
	}

	if err := e.store.CreateSessions(ctx, batch); err != nil {
		return nil, fmt.Errorf("create series: %w", err)
	}

	metrics.IncSessionsBooked("recurring", len(batch))
	metrics.ObserveSeriesSize(len(batch))
	e.publish(events.SeriesCreated, batch)
	e.logger.Info().
		Str("patient_id", req.PatientID).
		Str("therapist_id", req.TherapistID).
		Str("pattern", req.Pattern.String()).
		Int("sessions", len(batch)).
		Msg("recurring series created")
	return batch, nil
}

// PreviewOccurrences expands a pattern without touching the store.
func (e *Engine) PreviewOccurrences(initial time.Time, p recurrence.Pattern) ([]time.Time, error) {
	return recurrence.Dates(initial, p, e.maxSeries)
}

// CheckAvailability evaluates a candidate against the stored schedule without locking.
func (e *Engine) CheckAvailability(ctx context.Context, c availability.Candidate) (availability.Result, error) {
	if err := e.checker.Hours().Validate(c.Time); err != nil {
		return availability.Result{}, err
	}
	day := slots.DateOnly(c.Date)
	existing, err := e.store.ListSessions(ctx, day, day)
	if err != nil {
		return availability.Result{}, fmt.Errorf("list sessions: %w", err)
	}
	return e.checker.Check(c, existing)
}

// ListSessions returns sessions dated within [from, to].
func (e *Engine) ListSessions(ctx context.Context, from, to time.Time) ([]model.Session, error) {
	sessions, err := e.store.ListSessions(ctx, slots.DateOnly(from), slots.DateOnly(to))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Week returns the grid for the Monday-first week containing date.
func (e *Engine) Week(ctx context.Context, date time.Time) (slots.WeekInfo, error) {
	start := slots.WeekStart(date)
	sessions, err := e.store.ListSessions(ctx, start, start.AddDate(0, 0, 6))
	if err != nil {
		return slots.WeekInfo{}, fmt.Errorf("list sessions: %w", err)
	}
	return slots.BuildWeek(start, e.checker.Hours(), e.checker.Capacity(), sessions), nil
}

func (e *Engine) checkParticipants(ctx context.Context, patientID, therapistID string) error {
	if strings.TrimSpace(patientID) == "" {
		return ErrUnknownPatient
	}
	if strings.TrimSpace(therapistID) == "" {
		return ErrUnknownTherapist
	}
	if e.directory == nil {
		return nil
	}
	ok, err := e.directory.PatientExists(ctx, patientID)
	if err != nil {
		return fmt.Errorf("lookup patient: %w", err)
	}
	if !ok {
		return ErrUnknownPatient
	}
	ok, err = e.directory.TherapistExists(ctx, therapistID)
	if err != nil {
		return fmt.Errorf("lookup therapist: %w", err)
	}
	if !ok {
		return ErrUnknownTherapist
	}
	return nil
}

func (e *Engine) lock(ctx context.Context, targets ...slots.TimeSlot) (func(), error) {
	keys := make([]string, len(targets))
	for i, t := range targets {
		keys[i] = "slot:" + t.Key()
	}
	sort.Strings(keys)
	unlock, err := e.locker.Lock(ctx, keys...)
	if err != nil {
		metrics.IncLock("timeout")
		if errors.Is(err, lock.ErrLockTimeout) {
			return nil, err
		}
		return nil, fmt.Errorf("acquire slot lock: %w", err)
	}
	metrics.IncLock("acquired")
	return unlock, nil
}

func (e *Engine) conflict(op string, slot slots.TimeSlot, therapistID string, kind availability.ConflictKind) error {
	metrics.IncConflict(op, string(kind))
	e.publish(events.BookingConflict, ConflictEvent{
		Operation:   op,
		Slot:        slot,
		TherapistID: therapistID,
		Reason:      kind,
	})
	e.logger.Debug().
		Str("operation", op).
		Str("slot", slot.Key()).
		Str("therapist_id", therapistID).
		Str("reason", string(kind)).
		Msg("placement rejected")
	return &ConflictError{Slot: slot, Kind: kind}
}

func (e *Engine) publish(eventType string, payload any) {
	if e.publisher != nil {
		e.publisher.Publish(eventType, payload)
	}
}
