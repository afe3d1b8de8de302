package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dos-platform/tutor-api/internal/models"
)

// TranscriptRepository persists session transcripts, stored both as JSON
// entries and as a flattened plain-text rendition.
type TranscriptRepository struct {
	db *sqlx.DB
}

// NewTranscriptRepository constructs a TranscriptRepository.
func NewTranscriptRepository(db *sqlx.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

// Upsert replaces the stored transcript with the latest full snapshot. The
// agent persists snapshots rather than deltas, so replacement is safe.
func (r *TranscriptRepository) Upsert(ctx context.Context, sessionID string, entries []models.TranscriptEntry) error {
	if entries == nil {
		entries = []models.TranscriptEntry{}
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	text := models.Transcript{Entries: entries}.Flatten()

	query := `INSERT INTO session_transcripts (session_id, transcript_json, transcript_text, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (session_id) DO UPDATE
        SET transcript_json = EXCLUDED.transcript_json,
            transcript_text = EXCLUDED.transcript_text,
            updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, sessionID, payload, text); err != nil {
		return fmt.Errorf("upsert transcript: %w", err)
	}
	return nil
}

type transcriptRow struct {
	SessionID      string    `db:"session_id"`
	TranscriptJSON []byte    `db:"transcript_json"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Find fetches the transcript for a session.
func (r *TranscriptRepository) Find(ctx context.Context, sessionID string) (*models.Transcript, error) {
	var row transcriptRow
	query := `SELECT session_id, transcript_json, updated_at FROM session_transcripts WHERE session_id = $1`
	if err := r.db.GetContext(ctx, &row, query, sessionID); err != nil {
		return nil, fmt.Errorf("find transcript: %w", err)
	}
	transcript := models.Transcript{SessionID: row.SessionID, UpdatedAt: row.UpdatedAt}
	if len(row.TranscriptJSON) > 0 {
		if err := json.Unmarshal(row.TranscriptJSON, &transcript.Entries); err != nil {
			return nil, fmt.Errorf("decode transcript: %w", err)
		}
	}
	return &transcript, nil
}

// FindText fetches the flattened transcript text for a session.
func (r *TranscriptRepository) FindText(ctx context.Context, sessionID string) (string, error) {
	var text string
	query := `SELECT transcript_text FROM session_transcripts WHERE session_id = $1`
	if err := r.db.GetContext(ctx, &text, query, sessionID); err != nil {
		return "", fmt.Errorf("find transcript text: %w", err)
	}
	return text, nil
}
