package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dos-platform/tutor-api/internal/models"
)

// ProgressRepository persists per-session progress snapshots and the repeat
// flags derived from them.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs a ProgressRepository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// CreateSnapshot inserts a new snapshot and fills in its id and timestamp.
func (r *ProgressRepository) CreateSnapshot(ctx context.Context, snapshot *models.ProgressSnapshot) error {
	strengths, err := json.Marshal(emptyIfNil(snapshot.AreasOfStrength))
	if err != nil {
		return fmt.Errorf("marshal strengths: %w", err)
	}
	improvements, err := json.Marshal(emptyIfNil(snapshot.AreasToImprove))
	if err != nil {
		return fmt.Errorf("marshal improvements: %w", err)
	}
	focus, err := json.Marshal(emptyIfNil(snapshot.RecommendedFocus))
	if err != nil {
		return fmt.Errorf("marshal focus: %w", err)
	}

	query := `INSERT INTO progress_snapshots
        (student_id, enrolment_id, topic_id, confidence_score, areas_of_strength, areas_to_improve, recommended_focus)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, generated_at`
	row := r.db.QueryRowxContext(ctx, query,
		snapshot.StudentID, snapshot.EnrolmentID, snapshot.TopicID,
		snapshot.ConfidenceScore, strengths, improvements, focus)
	if err := row.Scan(&snapshot.ID, &snapshot.GeneratedAt); err != nil {
		return fmt.Errorf("create progress snapshot: %w", err)
	}
	return nil
}

// CreateRepeatFlags inserts the analyzer's repeat recommendations.
func (r *ProgressRepository) CreateRepeatFlags(ctx context.Context, flags []models.RepeatFlag) error {
	if len(flags) == 0 {
		return nil
	}
	query := `INSERT INTO repeat_flags (student_id, enrolment_id, topic_id, concept, reason, priority, status, source)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, flag := range flags {
		if _, err := r.db.ExecContext(ctx, query,
			flag.StudentID, flag.EnrolmentID, flag.TopicID, flag.Concept,
			flag.Reason, flag.Priority, flag.Status, flag.Source); err != nil {
			return fmt.Errorf("create repeat flag: %w", err)
		}
	}
	return nil
}

// ActiveRepeatFlags returns the student's unresolved flags for an enrolment,
// highest priority first.
func (r *ProgressRepository) ActiveRepeatFlags(ctx context.Context, studentID string, enrolmentID int64) ([]models.RepeatFlag, error) {
	var flags []models.RepeatFlag
	query := `SELECT id, student_id, enrolment_id, topic_id, concept, reason, priority, status, source, flagged_at
        FROM repeat_flags
        WHERE student_id = $1 AND enrolment_id = $2 AND status = $3
        ORDER BY CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, flagged_at DESC`
	if err := r.db.SelectContext(ctx, &flags, query, studentID, enrolmentID, models.FlagActive); err != nil {
		return nil, fmt.Errorf("list repeat flags: %w", err)
	}
	return flags, nil
}

// LatestSnapshot returns the most recent snapshot for an enrolment, or nil
// when none exists yet.
func (r *ProgressRepository) LatestSnapshot(ctx context.Context, studentID string, enrolmentID int64) (*models.ProgressSnapshot, error) {
	type row struct {
		models.ProgressSnapshot
		Strengths    []byte `db:"areas_of_strength"`
		Improvements []byte `db:"areas_to_improve"`
		Focus        []byte `db:"recommended_focus"`
	}
	var rec row
	query := `SELECT id, student_id, enrolment_id, topic_id, confidence_score,
        areas_of_strength, areas_to_improve, recommended_focus, generated_at
        FROM progress_snapshots
        WHERE student_id = $1 AND enrolment_id = $2
        ORDER BY generated_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &rec, query, studentID, enrolmentID); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest progress snapshot: %w", err)
	}
	snapshot := rec.ProgressSnapshot
	for _, pair := range []struct {
		raw  []byte
		dest *[]string
	}{
		{rec.Strengths, &snapshot.AreasOfStrength},
		{rec.Improvements, &snapshot.AreasToImprove},
		{rec.Focus, &snapshot.RecommendedFocus},
	} {
		if len(pair.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(pair.raw, pair.dest); err != nil {
			return nil, fmt.Errorf("decode progress snapshot: %w", err)
		}
	}
	return &snapshot, nil
}
