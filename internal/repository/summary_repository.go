package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dos-platform/tutor-api/internal/models"
)

// SummaryRepository persists post-session study notes.
type SummaryRepository struct {
	db *sqlx.DB
}

// NewSummaryRepository constructs a SummaryRepository.
func NewSummaryRepository(db *sqlx.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// Upsert stores the summary for a session, replacing any earlier attempt.
func (r *SummaryRepository) Upsert(ctx context.Context, summary *models.SessionSummary) error {
	takeaways, err := json.Marshal(emptyIfNil(summary.KeyTakeaways))
	if err != nil {
		return fmt.Errorf("marshal takeaways: %w", err)
	}
	citations, err := json.Marshal(emptyIfNil(summary.Citations))
	if err != nil {
		return fmt.Errorf("marshal citations: %w", err)
	}

	query := `INSERT INTO session_summaries (session_id, summary_md, key_takeaways_json, citations_json)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (session_id) DO UPDATE
        SET summary_md = EXCLUDED.summary_md,
            key_takeaways_json = EXCLUDED.key_takeaways_json,
            citations_json = EXCLUDED.citations_json`
	if _, err := r.db.ExecContext(ctx, query, summary.SessionID, summary.SummaryMd, takeaways, citations); err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

type summaryRow struct {
	SessionID     string    `db:"session_id"`
	SummaryMd     string    `db:"summary_md"`
	TakeawaysJSON []byte    `db:"key_takeaways_json"`
	CitationsJSON []byte    `db:"citations_json"`
	CreatedAt     time.Time `db:"created_at"`
}

// Find fetches the summary for a session.
func (r *SummaryRepository) Find(ctx context.Context, sessionID string) (*models.SessionSummary, error) {
	var row summaryRow
	query := `SELECT session_id, summary_md, key_takeaways_json, citations_json, created_at
        FROM session_summaries WHERE session_id = $1`
	if err := r.db.GetContext(ctx, &row, query, sessionID); err != nil {
		return nil, fmt.Errorf("find summary: %w", err)
	}

	summary := models.SessionSummary{
		SessionID: row.SessionID,
		SummaryMd: row.SummaryMd,
		CreatedAt: row.CreatedAt,
	}
	if len(row.TakeawaysJSON) > 0 {
		if err := json.Unmarshal(row.TakeawaysJSON, &summary.KeyTakeaways); err != nil {
			return nil, fmt.Errorf("decode takeaways: %w", err)
		}
	}
	if len(row.CitationsJSON) > 0 {
		if err := json.Unmarshal(row.CitationsJSON, &summary.Citations); err != nil {
			return nil, fmt.Errorf("decode citations: %w", err)
		}
	}
	return &summary, nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
