package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pediclinic/internal/availability"
	"pediclinic/internal/lock"
	"pediclinic/internal/recurrence"
	"pediclinic/internal/scheduling"
	"pediclinic/internal/slots"
)

func TestEngineOverSQLite(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()
	hours := slots.MustOperatingHours("09:00", "10:00")
	engine := scheduling.NewEngine(db, db, availability.NewChecker(hours, 3), lock.NewLocal(0), nil)

	series, err := engine.CreateRecurringSeries(ctx, scheduling.SeriesRequest{
		PatientID: "p1", TherapistID: "t1", Date: day(2024, 1, 1), Time: "09:00",
		Pattern: recurrence.Pattern{Frequency: recurrence.Weekly, Interval: 1, End: recurrence.ByCount{N: 4}},
	})
	require.NoError(t, err)
	require.Len(t, series, 4)

	_, err = engine.BookSession(ctx, scheduling.BookRequest{
		PatientID: "p2", TherapistID: "t1", Date: day(2024, 1, 15), Time: "09:00",
	})
	assert.ErrorIs(t, err, availability.ErrTherapistDoubleBooked)

	_, err = engine.BookSession(ctx, scheduling.BookRequest{
		PatientID: "p2", TherapistID: "ghost", Date: day(2024, 1, 15), Time: "09:00",
	})
	assert.ErrorIs(t, err, scheduling.ErrUnknownTherapist)

	moved, err := engine.RescheduleSession(ctx, series[2].ID, day(2024, 1, 15), "10:00")
	require.NoError(t, err)
	assert.Equal(t, "10:00", moved.Time)

	_, err = engine.RescheduleSession(ctx, "missing", day(2024, 1, 15), "10:00")
	assert.ErrorIs(t, err, scheduling.ErrSessionNotFound)

	// second series collides with the first on its first date
	_, err = engine.CreateRecurringSeries(ctx, scheduling.SeriesRequest{
		PatientID: "p2", TherapistID: "t1", Date: day(2024, 1, 8), Time: "09:00",
		Pattern: recurrence.Pattern{Frequency: recurrence.Daily, Interval: 1, End: recurrence.ByCount{N: 3}},
	})
	var rc *scheduling.RecurringConflictError
	require.ErrorAs(t, err, &rc)
	assert.Equal(t, 1, rc.Index)

	all, err := db.ListSessions(ctx, day(2024, 1, 1), day(2024, 1, 31))
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
