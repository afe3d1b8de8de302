package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/dos-platform/tutor-api/internal/models"
)

func newSessionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSessionRepositoryMarkLive(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET status = $1, started_at = $2")).
		WithArgs(models.SessionLive, now, "sess-1", models.SessionPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.MarkLive(context.Background(), "sess-1", now)
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryMarkLiveAlreadyLive(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET status = $1, started_at = $2")).
		WithArgs(models.SessionLive, now, "sess-1", models.SessionPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := repo.MarkLive(context.Background(), "sess-1", now)
	require.NoError(t, err)
	require.Zero(t, affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryMarkEnded(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("RETURNING duration_seconds")).
		WithArgs(models.SessionEnded, now, "sess-1", models.SessionLive).
		WillReturnRows(sqlmock.NewRows([]string{"duration_seconds"}).AddRow(930))

	duration, err := repo.MarkEnded(context.Background(), "sess-1", now)
	require.NoError(t, err)
	require.Equal(t, 930, duration)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryMarkEndedNotLive(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("RETURNING duration_seconds")).
		WithArgs(models.SessionEnded, now, "sess-1", models.SessionLive).
		WillReturnRows(sqlmock.NewRows([]string{"duration_seconds"}))

	duration, err := repo.MarkEnded(context.Background(), "sess-1", now)
	require.NoError(t, err)
	require.Equal(t, -1, duration)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryMinutesSince(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	cutoff := time.Now().Truncate(24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(CEIL(duration_seconds / 60.0)), 0)::int")).
		WithArgs("stu-1", cutoff, models.SessionSummarized).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(42))

	minutes, err := repo.MinutesSince(context.Background(), "stu-1", cutoff)
	require.NoError(t, err)
	require.Equal(t, 42, minutes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryList(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	started := time.Now()
	rows := sqlmock.NewRows([]string{"id", "course_name", "topic_name", "status", "started_at", "duration_seconds"}).
		AddRow("sess-2", "GCSE Physics", "Forces", models.SessionSummarized, started, 900).
		AddRow("sess-1", "GCSE Physics", "Energy", models.SessionSummarized, started.Add(-time.Hour), 600)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY s.created_at DESC")).
		WithArgs("stu-1", 20, 0).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sessions WHERE student_id = $1")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	items, total, err := repo.List(context.Background(), "stu-1", 1, 20)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, 2, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
