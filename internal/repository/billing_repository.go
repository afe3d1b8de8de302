package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dos-platform/tutor-api/internal/models"
)

// BillingRepository reads subscriptions and manages usage credit grants.
type BillingRepository struct {
	db *sqlx.DB
}

// NewBillingRepository constructs a BillingRepository.
func NewBillingRepository(db *sqlx.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

// ActiveSubscription returns the profile's current entitling subscription,
// or nil when none exists. Webhook replays can leave several rows per
// profile; the most recently updated one wins.
func (r *BillingRepository) ActiveSubscription(ctx context.Context, profileID string) (*models.SubscriptionEntitlement, error) {
	var sub models.SubscriptionEntitlement
	query := `SELECT s.id, s.profile_id, s.plan_id, s.stripe_subscription_id, s.stripe_price_id, s.status,
        s.current_period_start, s.current_period_end, s.cancel_at_period_end, s.created_at, s.updated_at,
        p.monthly_minutes
        FROM subscriptions s
        LEFT JOIN plans p ON p.id = s.plan_id
        WHERE s.profile_id = $1 AND s.status IN ('active', 'trialing', 'past_due')
        ORDER BY s.updated_at DESC
        LIMIT 1`
	if err := r.db.GetContext(ctx, &sub, query, profileID); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find subscription: %w", err)
	}
	return &sub, nil
}

// CreditsRemaining sums the profile's non-expired credit minutes.
func (r *BillingRepository) CreditsRemaining(ctx context.Context, profileID string, now time.Time) (int, error) {
	var minutes int
	query := `SELECT COALESCE(SUM(minutes_remaining), 0)
        FROM usage_credits
        WHERE profile_id = $1 AND minutes_remaining > 0
        AND (expires_at IS NULL OR expires_at > $2)`
	if err := r.db.GetContext(ctx, &minutes, query, profileID, now); err != nil {
		return 0, fmt.Errorf("sum credits: %w", err)
	}
	return minutes, nil
}

// ConsumeCredits deducts minutes from the profile's credit grants inside one
// transaction, oldest grant first, each clamped at zero. Returns the number
// of minutes actually deducted, which is less than requested when the
// balance runs dry.
func (r *BillingRepository) ConsumeCredits(ctx context.Context, profileID string, minutes int, now time.Time) (int, error) {
	if minutes <= 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin consume credits: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var grants []models.UsageCredit
	query := `SELECT id, profile_id, source, minutes_total, minutes_remaining, expires_at, created_at, updated_at
        FROM usage_credits
        WHERE profile_id = $1 AND minutes_remaining > 0
        AND (expires_at IS NULL OR expires_at > $2)
        ORDER BY created_at ASC
        FOR UPDATE`
	if err := tx.SelectContext(ctx, &grants, query, profileID, now); err != nil {
		return 0, fmt.Errorf("lock credits: %w", err)
	}

	consumed := 0
	for _, grant := range grants {
		if consumed >= minutes {
			break
		}
		take := minutes - consumed
		if take > grant.MinutesRemaining {
			take = grant.MinutesRemaining
		}
		update := `UPDATE usage_credits SET minutes_remaining = minutes_remaining - $1, updated_at = $2 WHERE id = $3`
		if _, err := tx.ExecContext(ctx, update, take, now, grant.ID); err != nil {
			return 0, fmt.Errorf("deduct credit grant: %w", err)
		}
		consumed += take
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit consume credits: %w", err)
	}
	return consumed, nil
}
