package scheduling

import (
	"context"
	"time"

	"pediclinic/internal/model"
)

// SessionStore persists sessions. Implementations return model.ErrNotFound for
// unknown ids and model.ErrSlotTaken when a write would double-book a therapist.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*model.Session, error)
	// ListSessions returns sessions whose date is within [from, to], both inclusive.
	ListSessions(ctx context.Context, from, to time.Time) ([]model.Session, error)
	CreateSession(ctx context.Context, s *model.Session) error
	// CreateSessions stores all sessions or none of them.
	CreateSessions(ctx context.Context, sessions []model.Session) error
	UpdateSessionSlot(ctx context.Context, id string, date time.Time, tod string, updatedAt time.Time) (*model.Session, error)
	UpdateReportStatus(ctx context.Context, id string, status model.ReportStatus, updatedAt time.Time) (*model.Session, error)
}

// Directory answers whether patient and therapist ids refer to active records.
type Directory interface {
	PatientExists(ctx context.Context, id string) (bool, error)
	TherapistExists(ctx context.Context, id string) (bool, error)
}

// Publisher receives scheduling events.
type Publisher interface {
	Publish(eventType string, payload any)
}
