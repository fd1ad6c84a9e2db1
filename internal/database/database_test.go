package database

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pediclinic/internal/config"
	"pediclinic/internal/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := Open(filepath.Join(t.TempDir(), "clinic.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testRoster() *config.Roster {
	return &config.Roster{
		Therapists: []model.Therapist{
			{ID: "t1", FullName: "Anna Petrova", Specialty: "speech"},
			{ID: "t2", FullName: "Oleg Ivanov"},
		},
		Patients: []model.Patient{
			{ID: "p1", FullName: "Masha K.", BirthDate: "2018-05-04"},
			{ID: "p2", FullName: "Petya S."},
		},
	}
}

func seededDB(t *testing.T) *DB {
	t.Helper()
	db := newTestDB(t)
	require.NoError(t, db.SyncRoster(context.Background(), testRoster()))
	return db
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func session(id, patient, therapist string, date time.Time, tod string) model.Session {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	return model.Session{
		ID: id, PatientID: patient, TherapistID: therapist,
		Date: date, Time: tod, DurationMinutes: 45,
		ReportStatus: model.ReportPending, CreatedAt: now, UpdatedAt: now,
	}
}

func TestSessions_CreateGetList(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()

	s := session("s1", "p1", "t1", day(2024, 1, 1), "09:00")
	require.NoError(t, db.CreateSession(ctx, &s))

	got, err := db.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, day(2024, 1, 1), got.Date)
	assert.Equal(t, "09:00", got.Time)
	assert.Equal(t, model.ReportPending, got.ReportStatus)
	assert.True(t, got.CreatedAt.Equal(s.CreatedAt))

	_, err = db.GetSession(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	other := session("s2", "p2", "t2", day(2024, 1, 3), "10:00")
	require.NoError(t, db.CreateSession(ctx, &other))
	outside := session("s3", "p2", "t2", day(2024, 1, 8), "10:00")
	require.NoError(t, db.CreateSession(ctx, &outside))

	list, err := db.ListSessions(ctx, day(2024, 1, 1), day(2024, 1, 7))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "s1", list[0].ID)
	assert.Equal(t, "s2", list[1].ID)

}

func TestSessions_TherapistSlotIsUnique(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()

	a := session("s1", "p1", "t1", day(2024, 1, 1), "09:00")
	require.NoError(t, db.CreateSession(ctx, &a))

	b := session("s2", "p2", "t1", day(2024, 1, 1), "09:00")
	assert.ErrorIs(t, db.CreateSession(ctx, &b), ErrSlotTaken)

	c := session("s3", "p2", "t1", day(2024, 1, 1), "10:00")
	require.NoError(t, db.CreateSession(ctx, &c))
	_, err := db.UpdateSessionSlot(ctx, "s3", day(2024, 1, 1), "09:00", time.Now())
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestSessions_BatchIsAllOrNothing(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()

	existing := session("s0", "p2", "t1", day(2024, 1, 15), "09:00")
	require.NoError(t, db.CreateSession(ctx, &existing))

	batch := []model.Session{
		session("s1", "p1", "t1", day(2024, 1, 1), "09:00"),
		session("s2", "p1", "t1", day(2024, 1, 8), "09:00"),
		session("s3", "p1", "t1", day(2024, 1, 15), "09:00"),
	}
	assert.ErrorIs(t, db.CreateSessions(ctx, batch), ErrSlotTaken)

	list, err := db.ListSessions(ctx, day(2024, 1, 1), day(2024, 1, 31))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "s0", list[0].ID)

	require.NoError(t, db.CreateSessions(ctx, batch[:2]))
	list, err = db.ListSessions(ctx, day(2024, 1, 1), day(2024, 1, 31))
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestSessions_Update(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()

	s := session("s1", "p1", "t1", day(2024, 1, 1), "09:00")
	require.NoError(t, db.CreateSession(ctx, &s))

	moved, err := db.UpdateSessionSlot(ctx, "s1", day(2024, 1, 2), "11:00", time.Now())
	require.NoError(t, err)
	assert.Equal(t, day(2024, 1, 2), moved.Date)
	assert.Equal(t, "11:00", moved.Time)
	assert.Equal(t, "p1", moved.PatientID)

	done, err := db.UpdateReportStatus(ctx, "s1", model.ReportCompleted, time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.ReportCompleted, done.ReportStatus)

	_, err = db.UpdateSessionSlot(ctx, "missing", day(2024, 1, 2), "11:00", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.UpdateReportStatus(ctx, "missing", model.ReportCompleted, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessions_UnknownPatientViolatesForeignKey(t *testing.T) {
	db := seededDB(t)
	s := session("s1", "ghost", "t1", day(2024, 1, 1), "09:00")
	assert.Error(t, db.CreateSession(context.Background(), &s))
}

func TestSyncRoster_SoftDeletesAndRestores(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()

	ok, err := db.TherapistExists(ctx, "t2")
	require.NoError(t, err)
	assert.True(t, ok)

	s := session("s1", "p2", "t2", day(2024, 1, 1), "09:00")
	require.NoError(t, db.CreateSession(ctx, &s))

	smaller := testRoster()
	smaller.Therapists = smaller.Therapists[:1]
	smaller.Patients = smaller.Patients[:1]
	require.NoError(t, db.SyncRoster(ctx, smaller))

	ok, err = db.TherapistExists(ctx, "t2")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = db.PatientExists(ctx, "p2")
	require.NoError(t, err)
	assert.False(t, ok)

	gone, err := db.GetPatient(ctx, "p2")
	require.NoError(t, err)
	assert.False(t, gone.IsActive())

	// history survives
	_, err = db.GetSession(ctx, "s1")
	require.NoError(t, err)

	require.NoError(t, db.SyncRoster(ctx, testRoster()))
	back, err := db.GetPatient(ctx, "p2")
	require.NoError(t, err)
	assert.True(t, back.IsActive())

	list, err := db.ListTherapists(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Anna Petrova", list[0].FullName)

	_, err = db.GetPatient(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSyncRoster_EmptyRosterDeactivatesEverything(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()
	require.NoError(t, db.SyncRoster(ctx, &config.Roster{}))

	list, err := db.ListTherapists(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetTableData(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()

	names, err := db.GetTableNames(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "sessions")

	rows, cols, err := db.GetTableData(ctx, "therapists")
	require.NoError(t, err)
	assert.Contains(t, cols, "full_name")
	assert.Len(t, rows, 2)

	_, _, err = db.GetTableData(ctx, "sqlite_master; DROP TABLE sessions")
	assert.Error(t, err)
}

func TestBackupService(t *testing.T) {
	db := seededDB(t)
	dir := filepath.Join(t.TempDir(), "backups")
	svc := NewBackupService(db, BackupConfig{Enabled: true, StoragePath: dir, RetentionDays: 7}, nil)

	path, err := svc.PerformBackup(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, path)

	logger := zerolog.New(io.Discard)
	restored, err := Open(path, &logger)
	require.NoError(t, err)
	defer restored.Close()
	ok, err := restored.PatientExists(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, ok)

	stale := filepath.Join(dir, "backup_20000101_000000.db")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o600))
	old := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(stale, old, old))

	svc.CleanupOldBackups()
	assert.NoFileExists(t, stale)
	assert.FileExists(t, path)
}
