package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newEnrolmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func enrolmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "board_subject_id", "exam_year", "created_at", "subject_id", "exam_board_id"}).
		AddRow(int64(11), "stu-1", int64(4), 2027, time.Now(), int64(1), int64(2))
}

func TestEnrolmentRepositoryFindMatchingByBoard(t *testing.T) {
	db, mock, cleanup := newEnrolmentRepoMock(t)
	defer cleanup()
	repo := NewEnrolmentRepository(db)

	boardID := int64(2)
	mock.ExpectQuery(regexp.QuoteMeta("$3::BIGINT IS NULL OR bs.exam_board_id = $3")).
		WithArgs("stu-1", int64(1), boardID).
		WillReturnRows(enrolmentRows())

	enrolment, err := repo.FindMatching(context.Background(), "stu-1", 1, &boardID)
	require.NoError(t, err)
	require.Equal(t, int64(11), enrolment.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrolmentRepositoryFindMatchingSubjectOnly(t *testing.T) {
	db, mock, cleanup := newEnrolmentRepoMock(t)
	defer cleanup()
	repo := NewEnrolmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("$3::BIGINT IS NULL OR bs.exam_board_id = $3")).
		WithArgs("stu-1", int64(1), nil).
		WillReturnRows(enrolmentRows())

	enrolment, err := repo.FindMatching(context.Background(), "stu-1", 1, nil)
	require.NoError(t, err)
	require.Equal(t, int64(11), enrolment.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
