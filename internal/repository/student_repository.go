package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dos-platform/tutor-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID fetches one student.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	query := `SELECT id, date_of_birth, consent_granted_at, consent_granted_by FROM students WHERE id = $1`
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// GrantConsent records a parental consent grant. A no-op when consent is
// already on record, so redeeming a second invite code never overwrites the
// original grantor.
func (r *StudentRepository) GrantConsent(ctx context.Context, studentID, parentID string, at time.Time) error {
	query := `UPDATE students SET consent_granted_at = $1, consent_granted_by = $2
        WHERE id = $3 AND consent_granted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, at, parentID, studentID); err != nil {
		return fmt.Errorf("grant consent: %w", err)
	}
	return nil
}
