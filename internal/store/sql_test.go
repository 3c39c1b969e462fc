package store_test

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrattend/internal/store"
	"qrattend/internal/store/storetest"
)

func TestSQLiteConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		db, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "kv.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })

		s := store.NewSQLStore(db, store.SQLite, 20*time.Millisecond)
		require.NoError(t, s.Migrate(ctx))
		return s
	})
}

func TestPostgresGetUsesNumberedPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM kv WHERE path = $1`)).
		WithArgs("current_session").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"id":"s1"}`)))

	s := store.NewSQLStore(db, store.Postgres, time.Second)
	got, err := s.Get(context.Background(), "current_session")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"s1"}`, string(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM kv WHERE path = $1`)).
		WithArgs("sessions/x").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	s := store.NewSQLStore(db, store.Postgres, time.Second)
	_, err = s.Get(context.Background(), "sessions/x")
	assert.True(t, store.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSetUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO kv \(path, parent, value, updated_at\)\s+VALUES \(\$1, \$2, \$3, \$4\)\s+ON CONFLICT`).
		WithArgs("attendance/k1", "attendance", []byte("v"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := store.NewSQLStore(db, store.Postgres, time.Second)
	require.NoError(t, s.Set(context.Background(), "attendance/k1", []byte("v")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemoveEscapesLikePattern(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM kv WHERE path = $1 OR path LIKE $2 ESCAPE '\'`)).
		WithArgs("current_session", `current\_session/%`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := store.NewSQLStore(db, store.Postgres, time.Second)
	require.NoError(t, s.Remove(context.Background(), "current_session"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT path, value FROM kv WHERE parent = $1 ORDER BY path`)).
		WithArgs("sessions").
		WillReturnRows(sqlmock.NewRows([]string{"path", "value"}).
			AddRow("sessions/a", []byte("1")).
			AddRow("sessions/b", []byte("2")))

	s := store.NewSQLStore(db, store.Postgres, time.Second)
	entries, err := s.List(context.Background(), "sessions")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Key)
	assert.Equal(t, "sessions/b", entries[1].Path)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE kv SET value = $1, updated_at = $2 WHERE path = $3`)).
		WithArgs([]byte("v"), sqlmock.AnyArg(), "attendance/gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := store.NewSQLStore(db, store.Postgres, time.Second)
	err = s.Update(context.Background(), "attendance/gone", []byte("v"))
	assert.True(t, store.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
