package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dos-platform/tutor-api/internal/models"
)

// ParentLinkRepository manages parent-student links and the invite codes
// used to create them.
type ParentLinkRepository struct {
	db *sqlx.DB
}

// NewParentLinkRepository constructs a ParentLinkRepository.
func NewParentLinkRepository(db *sqlx.DB) *ParentLinkRepository {
	return &ParentLinkRepository{db: db}
}

// CreateInviteCode stores the hash of a freshly generated code.
func (r *ParentLinkRepository) CreateInviteCode(ctx context.Context, studentID, codeHash string, expiresAt time.Time) (*models.ParentInviteCode, error) {
	var code models.ParentInviteCode
	query := `INSERT INTO parent_invite_codes (student_id, code_hash, expires_at)
        VALUES ($1, $2, $3)
        RETURNING id, student_id, code_hash, expires_at, used_at, created_at`
	if err := r.db.GetContext(ctx, &code, query, studentID, codeHash, expiresAt); err != nil {
		return nil, fmt.Errorf("create invite code: %w", err)
	}
	return &code, nil
}

// ActiveInviteCodes returns unredeemed, unexpired codes for bcrypt matching.
func (r *ParentLinkRepository) ActiveInviteCodes(ctx context.Context, now time.Time) ([]models.ParentInviteCode, error) {
	var codes []models.ParentInviteCode
	query := `SELECT id, student_id, code_hash, expires_at, used_at, created_at
        FROM parent_invite_codes
        WHERE used_at IS NULL AND expires_at > $1
        ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &codes, query, now); err != nil {
		return nil, fmt.Errorf("list invite codes: %w", err)
	}
	return codes, nil
}

// MarkInviteUsed burns a code. Returns the number of rows touched so the
// caller can detect a concurrent redemption.
func (r *ParentLinkRepository) MarkInviteUsed(ctx context.Context, id int64, at time.Time) (int64, error) {
	query := `UPDATE parent_invite_codes SET used_at = $1 WHERE id = $2 AND used_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return 0, fmt.Errorf("mark invite used: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark invite used: %w", err)
	}
	return affected, nil
}

// CreateLink links a parent to a student, tolerating an existing link.
func (r *ParentLinkRepository) CreateLink(ctx context.Context, parentID, studentID, relationship string) (*models.ParentStudentLink, error) {
	var link models.ParentStudentLink
	query := `INSERT INTO parent_student_links (parent_id, student_id, relationship)
        VALUES ($1, $2, $3)
        ON CONFLICT (parent_id, student_id) DO UPDATE SET relationship = EXCLUDED.relationship
        RETURNING id, parent_id, student_id, relationship, created_at`
	if err := r.db.GetContext(ctx, &link, query, parentID, studentID, relationship); err != nil {
		return nil, fmt.Errorf("create parent link: %w", err)
	}
	return &link, nil
}

// LinkedParents returns the parent profile IDs linked to a student, oldest
// link first. Quota checks walk payers in this order.
func (r *ParentLinkRepository) LinkedParents(ctx context.Context, studentID string) ([]string, error) {
	var parents []string
	query := `SELECT parent_id FROM parent_student_links WHERE student_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &parents, query, studentID); err != nil {
		return nil, fmt.Errorf("list linked parents: %w", err)
	}
	return parents, nil
}

// LinkedStudents returns the student IDs linked to a parent.
func (r *ParentLinkRepository) LinkedStudents(ctx context.Context, parentID string) ([]string, error) {
	var students []string
	query := `SELECT student_id FROM parent_student_links WHERE parent_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &students, query, parentID); err != nil {
		return nil, fmt.Errorf("list linked students: %w", err)
	}
	return students, nil
}
