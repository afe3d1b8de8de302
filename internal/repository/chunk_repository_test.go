package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newChunkRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestChunkRepositorySearchSimilar(t *testing.T) {
	db, mock, cleanup := newChunkRepoMock(t)
	defer cleanup()
	repo := NewChunkRepository(db)

	rows := sqlmock.NewRows([]string{"chunk_id", "doc_title", "content", "source_path", "similarity"}).
		AddRow(int64(1), "Forces", "Newton's second law relates force to acceleration.", "physics/forces.md", 0.91).
		AddRow(int64(2), "Forces", "Weight is the force of gravity on a mass.", "physics/forces.md", 0.84)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY c.embedding <=> $1::vector")).
		WithArgs("[0.5,-1.25]", int64(3), int64(7), 5).
		WillReturnRows(rows)

	chunks, err := repo.SearchSimilar(context.Background(), []float32{0.5, -1.25}, 3, 7, 5)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	require.Equal(t, int64(1), chunks[0].ChunkID)
	require.Greater(t, chunks[0].Similarity, chunks[1].Similarity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChunkRepositorySearchSimilarEmpty(t *testing.T) {
	db, mock, cleanup := newChunkRepoMock(t)
	defer cleanup()
	repo := NewChunkRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY c.embedding <=> $1::vector")).
		WithArgs("[1]", int64(3), int64(7), 5).
		WillReturnRows(sqlmock.NewRows([]string{"chunk_id", "doc_title", "content", "source_path", "similarity"}))

	chunks, err := repo.SearchSimilar(context.Background(), []float32{1}, 3, 7, 5)
	require.NoError(t, err)
	require.Empty(t, chunks)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEncodeVector(t *testing.T) {
	require.Equal(t, "[]", encodeVector(nil))
	require.Equal(t, "[0.25,-3,1.5]", encodeVector([]float32{0.25, -3, 1.5}))
}
