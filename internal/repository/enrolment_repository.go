package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dos-platform/tutor-api/internal/models"
)

// EnrolmentRepository manages student enrolments.
type EnrolmentRepository struct {
	db *sqlx.DB
}

// NewEnrolmentRepository constructs an EnrolmentRepository.
func NewEnrolmentRepository(db *sqlx.DB) *EnrolmentRepository {
	return &EnrolmentRepository{db: db}
}

// ListForStudent returns the student's enrolments with subject and board
// resolved.
func (r *EnrolmentRepository) ListForStudent(ctx context.Context, studentID string) ([]models.EnrolmentDetail, error) {
	var enrolments []models.EnrolmentDetail
	query := `SELECT e.id, e.student_id, e.board_subject_id, e.exam_year, e.created_at,
        bs.subject_id, bs.exam_board_id
        FROM student_enrolments e
        JOIN board_subjects bs ON bs.id = e.board_subject_id
        WHERE e.student_id = $1
        ORDER BY e.created_at ASC`
	if err := r.db.SelectContext(ctx, &enrolments, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrolments: %w", err)
	}
	return enrolments, nil
}

// FindMatching returns the student's enrolment for the course's subject. A
// nil exam board matches on subject alone; otherwise the board must match
// too. Courses without a subject never reach here; the caller treats them as
// open to all students.
func (r *EnrolmentRepository) FindMatching(ctx context.Context, studentID string, subjectID int64, examBoardID *int64) (*models.EnrolmentDetail, error) {
	var enrolment models.EnrolmentDetail
	query := `SELECT e.id, e.student_id, e.board_subject_id, e.exam_year, e.created_at,
        bs.subject_id, bs.exam_board_id
        FROM student_enrolments e
        JOIN board_subjects bs ON bs.id = e.board_subject_id
        WHERE e.student_id = $1 AND bs.subject_id = $2
        AND ($3::BIGINT IS NULL OR bs.exam_board_id = $3)
        ORDER BY e.created_at ASC
        LIMIT 1`
	if err := r.db.GetContext(ctx, &enrolment, query, studentID, subjectID, examBoardID); err != nil {
		return nil, fmt.Errorf("find enrolment: %w", err)
	}
	return &enrolment, nil
}
