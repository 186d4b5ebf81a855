package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	errors "github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-vfs/internal/vfs"
	"github.com/Laisky/laisky-vfs/internal/vfs/model"
	docdb "github.com/Laisky/laisky-vfs/library/db/badger"
)

type failingSink struct {
	calls int
}

func (s *failingSink) Record(context.Context, *model.AccountLog) error {
	s.calls++
	return errors.New("sink down")
}

func (s *failingSink) Close() error { return nil }

func fixedClock() time.Time {
	return time.Date(2026, 7, 8, 9, 10, 11, 0, time.UTC)
}

// TestRecorderSwallowsSinkErrors verifies audit failures never reach the caller.
func TestRecorderSwallowsSinkErrors(t *testing.T) {
	sink := new(failingSink)
	rec, err := NewRecorder(sink, nil, fixedClock)
	require.NoError(t, err)

	rec.Record(context.Background(), "Login", "127.0.0.1:1", "alice_01", nil)
	require.Equal(t, 1, sink.calls)
}

// TestStoreSinkRecordsAndLists verifies entries land in the store newest first.
func TestStoreSinkRecordsAndLists(t *testing.T) {
	db, err := docdb.Open(context.Background(), docdb.Options{InMemory: true})
	require.NoError(t, err)
	defer db.Close()

	sink, err := NewStoreSink(db)
	require.NoError(t, err)
	rec, err := NewRecorder(sink, nil, fixedClock)
	require.NoError(t, err)

	ctx := context.Background()
	rec.Record(ctx, "Register", "10.0.0.1:5", "alice_01", nil)
	rec.Record(ctx, "Login", "10.0.0.1:5", "alice_01", vfs.NewError(vfs.CodeUnauthenticated, "invalid username or password"))
	rec.Record(ctx, "Login", "10.0.0.2:5", "bobby_02", errors.New("secret internals"))

	all, err := sink.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "bobby_02", all[0].Username)
	require.False(t, all[0].Success)
	require.Equal(t, "INTERNAL: internal error", all[0].Detail)

	alice, err := sink.List(ctx, "alice_01", 1)
	require.NoError(t, err)
	require.Len(t, alice, 1)
	require.Equal(t, "Login", alice[0].Type)
	require.Equal(t, "UNAUTHENTICATED: invalid username or password", alice[0].Detail)
	require.True(t, alice[0].Timestamp.Equal(fixedClock()))
}

// TestSQLiteSinkRecords verifies entries are inserted into the SQLite table.
func TestSQLiteSinkRecords(t *testing.T) {
	sink, err := OpenSQLiteSink(filepath.Join(t.TempDir(), "audit.db"), WithTableName("vfs_logs"))
	require.NoError(t, err)
	defer sink.Close()

	ctx := context.Background()
	for _, username := range []string{"alice_01", "alice_01", "bobby_02"} {
		require.NoError(t, sink.Record(ctx, &model.AccountLog{
			ID:        primitive.NewObjectID(),
			Type:      "Login",
			Timestamp: fixedClock(),
			Address:   "127.0.0.1:1",
			Username:  username,
			Success:   true,
		}))
	}

	n, err := sink.Count(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 3, n)
	n, err = sink.Count(ctx, "alice_01")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

// TestSQLiteSinkInsertFailure verifies driver errors are returned from Record.
func TestSQLiteSinkInsertFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS account_logs`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO account_logs`).
		WillReturnError(errors.New("disk full"))

	sink, err := NewSQLiteSink(sqlDB)
	require.NoError(t, err)

	err = sink.Record(context.Background(), &model.AccountLog{ID: primitive.NewObjectID(), Type: "Login"})
	require.ErrorContains(t, err, "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
	require.NoError(t, sink.Close(), "sink must not close a borrowed db")
}

// TestSQLiteSinkRejectsTableName verifies table names are validated.
func TestSQLiteSinkRejectsTableName(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	_, err = NewSQLiteSink(sqlDB, WithTableName("logs; DROP TABLE x"))
	require.Error(t, err)
}

// TestNewSinkFromSettings verifies backend selection.
func TestNewSinkFromSettings(t *testing.T) {
	db, err := docdb.Open(context.Background(), docdb.Options{InMemory: true})
	require.NoError(t, err)
	defer db.Close()

	sink, err := NewSinkFromSettings(vfs.AuditSettings{Backend: vfs.AuditBackendStore}, db)
	require.NoError(t, err)
	require.IsType(t, &StoreSink{}, sink)

	sink, err = NewSinkFromSettings(vfs.AuditSettings{
		Backend:    vfs.AuditBackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "audit.db"),
	}, db)
	require.NoError(t, err)
	require.IsType(t, &SQLiteSink{}, sink)
	require.NoError(t, sink.Close())

	_, err = NewSinkFromSettings(vfs.AuditSettings{Backend: "kafka"}, db)
	require.Error(t, err)
}
