package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/dos-platform/tutor-api/internal/models"
)

// ChunkRepository runs vector similarity search over curriculum chunks.
type ChunkRepository struct {
	db *sqlx.DB
}

// NewChunkRepository constructs a ChunkRepository.
func NewChunkRepository(db *sqlx.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// SearchSimilar returns the top-k chunks for a course/topic ordered by
// cosine similarity to the query embedding, most similar first.
func (r *ChunkRepository) SearchSimilar(ctx context.Context, embedding []float32, courseID, topicID int64, limit int) ([]models.RetrievedChunk, error) {
	vec := encodeVector(embedding)
	query := `SELECT c.id AS chunk_id, d.title AS doc_title, c.content, d.source_path,
        1 - (c.embedding <=> $1::vector) AS similarity
        FROM chunks c
        JOIN documents d ON d.id = c.document_id
        WHERE c.course_id = $2 AND c.topic_id = $3
        ORDER BY c.embedding <=> $1::vector
        LIMIT $4`

	var chunks []models.RetrievedChunk
	if err := r.db.SelectContext(ctx, &chunks, query, vec, courseID, topicID, limit); err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	return chunks, nil
}

// encodeVector renders an embedding in pgvector's text input format.
func encodeVector(embedding []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
