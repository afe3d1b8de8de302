package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dos-platform/tutor-api/internal/models"
)

// RestrictionRepository reads parent-imposed usage limits.
type RestrictionRepository struct {
	db *sqlx.DB
}

// NewRestrictionRepository constructs a RestrictionRepository.
func NewRestrictionRepository(db *sqlx.DB) *RestrictionRepository {
	return &RestrictionRepository{db: db}
}

type restrictionRow struct {
	models.Restriction
	BlockedTimesJSON []byte `db:"blocked_times"`
}

// ListForStudent returns every restriction row configured for the student.
// Each linked parent may impose their own limits; all of them apply.
func (r *RestrictionRepository) ListForStudent(ctx context.Context, studentID string) ([]models.Restriction, error) {
	var rows []restrictionRow
	query := `SELECT id, parent_id, student_id, max_daily_minutes, max_weekly_minutes, blocked_times, created_at, updated_at
        FROM restrictions WHERE student_id = $1
        ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list restrictions: %w", err)
	}

	restrictions := make([]models.Restriction, 0, len(rows))
	for _, row := range rows {
		restriction := row.Restriction
		if len(row.BlockedTimesJSON) > 0 {
			if err := json.Unmarshal(row.BlockedTimesJSON, &restriction.BlockedTimes); err != nil {
				return nil, fmt.Errorf("decode blocked times: %w", err)
			}
		}
		restrictions = append(restrictions, restriction)
	}
	return restrictions, nil
}
