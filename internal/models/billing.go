package models

import "time"

// Subscription statuses that count as an entitlement to unlimited minutes.
var EntitledSubscriptionStatuses = []string{"active", "trialing", "past_due"}

type Plan struct {
	ID             int64   `db:"id" json:"id"`
	Name           string  `db:"name" json:"name"`
	StripePriceID  *string `db:"stripe_price_id" json:"stripe_price_id,omitempty"`
	MonthlyMinutes *int    `db:"monthly_minutes" json:"monthly_minutes,omitempty"`
}

type Subscription struct {
	ID                   int64      `db:"id" json:"id"`
	ProfileID            string     `db:"profile_id" json:"profile_id"`
	PlanID               *int64     `db:"plan_id" json:"plan_id,omitempty"`
	StripeSubscriptionID *string    `db:"stripe_subscription_id" json:"stripe_subscription_id,omitempty"`
	StripePriceID        *string    `db:"stripe_price_id" json:"stripe_price_id,omitempty"`
	Status               string     `db:"status" json:"status"`
	CurrentPeriodStart   *time.Time `db:"current_period_start" json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time `db:"current_period_end" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool       `db:"cancel_at_period_end" json:"cancel_at_period_end"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// SubscriptionEntitlement pairs a subscription with its plan's monthly
// allowance. A nil allowance means the plan grants no metered minutes.
type SubscriptionEntitlement struct {
	Subscription
	MonthlyMinutes *int `db:"monthly_minutes" json:"monthly_minutes,omitempty"`
}

// UsageCredit is a purchased or granted bucket of tutoring minutes. Grants
// are consumed oldest-first and never below zero.
type UsageCredit struct {
	ID               int64      `db:"id" json:"id"`
	ProfileID        string     `db:"profile_id" json:"profile_id"`
	Source           string     `db:"source" json:"source"`
	MinutesTotal     int        `db:"minutes_total" json:"minutes_total"`
	MinutesRemaining int        `db:"minutes_remaining" json:"minutes_remaining"`
	ExpiresAt        *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Expired reports whether the grant can no longer be drawn from.
func (c UsageCredit) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// Quota decision reasons.
const (
	QuotaReasonSubscription = "subscription"
	QuotaReasonCredits      = "credits"
	QuotaReasonFreeTier     = "free_tier"
	QuotaReasonExhausted    = "exhausted"
)

// QuotaResult is the outcome of a quota check for one student.
type QuotaResult struct {
	Allowed               bool   `json:"allowed"`
	Reason                string `json:"reason"`
	RemainingMinutes      int    `json:"remaining_minutes"`
	FreeRemaining         int    `json:"free_remaining"`
	SubscriptionRemaining int    `json:"subscription_remaining"`
	CreditsRemaining      int    `json:"credits_remaining"`
	PayerProfileID        string `json:"payer_profile_id,omitempty"`
}
