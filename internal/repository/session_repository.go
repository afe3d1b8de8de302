package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dos-platform/tutor-api/internal/models"
)

// SessionRepository manages tutoring session rows and their derived minute
// aggregates.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a pending session.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `INSERT INTO sessions (id, student_id, enrolment_id, course_id, topic_id, room_name, participant_token, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING created_at`
	if err := r.db.GetContext(ctx, &session.CreatedAt, query,
		session.ID, session.StudentID, session.EnrolmentID, session.CourseID,
		session.TopicID, session.RoomName, session.ParticipantToken, session.Status); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindByID fetches one session.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	query := `SELECT id, student_id, enrolment_id, course_id, topic_id, room_name, participant_token,
        status, created_at, started_at, ended_at, duration_seconds
        FROM sessions WHERE id = $1`
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// List returns a page of the student's sessions, newest first.
func (r *SessionRepository) List(ctx context.Context, studentID string, page, pageSize int) ([]models.SessionListItem, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := `SELECT s.id, c.name AS course_name, t.name AS topic_name, s.status, s.started_at, s.duration_seconds
        FROM sessions s
        JOIN courses c ON c.id = s.course_id
        JOIN topics t ON t.id = s.topic_id
        WHERE s.student_id = $1
        ORDER BY s.created_at DESC
        LIMIT $2 OFFSET $3`

	var items []models.SessionListItem
	if err := r.db.SelectContext(ctx, &items, query, studentID, pageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM sessions WHERE student_id = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, studentID); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return items, total, nil
}

// MarkLive transitions pending -> live and stamps started_at. Only pending
// sessions transition; replayed requests fall through with zero rows.
func (r *SessionRepository) MarkLive(ctx context.Context, id string, at time.Time) (int64, error) {
	query := `UPDATE sessions SET status = $1, started_at = $2 WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, models.SessionLive, at, id, models.SessionPending)
	if err != nil {
		return 0, fmt.Errorf("mark session live: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark session live: %w", err)
	}
	return affected, nil
}

// MarkEnded transitions live -> ended, stamps ended_at and computes the
// duration in the database from started_at. Returns the stored duration in
// seconds, or -1 when the session was not live.
func (r *SessionRepository) MarkEnded(ctx context.Context, id string, at time.Time) (int, error) {
	query := `UPDATE sessions
        SET status = $1, ended_at = $2,
            duration_seconds = GREATEST(0, EXTRACT(EPOCH FROM ($2 - started_at))::int)
        WHERE id = $3 AND status = $4
        RETURNING duration_seconds`
	var duration int
	err := r.db.GetContext(ctx, &duration, query, models.SessionEnded, at, id, models.SessionLive)
	if err != nil {
		if isNoRows(err) {
			return -1, nil
		}
		return 0, fmt.Errorf("mark session ended: %w", err)
	}
	return duration, nil
}

// MarkSummarized transitions ended -> summarized.
func (r *SessionRepository) MarkSummarized(ctx context.Context, id string) error {
	query := `UPDATE sessions SET status = $1 WHERE id = $2 AND status = $3`
	if _, err := r.db.ExecContext(ctx, query, models.SessionSummarized, id, models.SessionEnded); err != nil {
		return fmt.Errorf("mark session summarized: %w", err)
	}
	return nil
}

// MinutesSince sums the student's summarized tutoring minutes with a start
// time at or after the cutoff. Partial minutes round up so a 61-second
// session counts as 2 minutes against restrictions.
func (r *SessionRepository) MinutesSince(ctx context.Context, studentID string, cutoff time.Time) (int, error) {
	var minutes int
	query := `SELECT COALESCE(SUM(CEIL(duration_seconds / 60.0)), 0)::int
        FROM sessions
        WHERE student_id = $1 AND started_at >= $2 AND status = $3`
	if err := r.db.GetContext(ctx, &minutes, query, studentID, cutoff, models.SessionSummarized); err != nil {
		return 0, fmt.Errorf("sum session minutes: %w", err)
	}
	return minutes, nil
}

// MinutesInPeriod sums the student's summarized minutes for sessions started
// inside [start, end), for subscription-period accounting.
func (r *SessionRepository) MinutesInPeriod(ctx context.Context, studentID string, start, end time.Time) (int, error) {
	var minutes int
	query := `SELECT COALESCE(SUM(CEIL(duration_seconds / 60.0)), 0)::int
        FROM sessions
        WHERE student_id = $1 AND started_at >= $2 AND started_at < $3 AND status = $4`
	if err := r.db.GetContext(ctx, &minutes, query, studentID, start, end, models.SessionSummarized); err != nil {
		return 0, fmt.Errorf("sum period minutes: %w", err)
	}
	return minutes, nil
}

// LifetimeMinutes sums all of the student's summarized tutoring minutes, for
// the free-tier ledger.
func (r *SessionRepository) LifetimeMinutes(ctx context.Context, studentID string) (int, error) {
	var minutes int
	query := `SELECT COALESCE(SUM(CEIL(duration_seconds / 60.0)), 0)::int
        FROM sessions
        WHERE student_id = $1 AND status = $2`
	if err := r.db.GetContext(ctx, &minutes, query, studentID, models.SessionSummarized); err != nil {
		return 0, fmt.Errorf("sum lifetime minutes: %w", err)
	}
	return minutes, nil
}
