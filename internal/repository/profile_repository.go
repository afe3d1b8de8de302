package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dos-platform/tutor-api/internal/models"
)

// ProfileRepository manages persistence for account profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs a ProfileRepository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByID fetches a profile regardless of deletion state. Callers decide
// whether a soft-deleted profile is acceptable.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	query := `SELECT id, account_type, email, terms_accepted_at, deleted_at, created_at, updated_at
        FROM profiles WHERE id = $1`
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &profile, nil
}
