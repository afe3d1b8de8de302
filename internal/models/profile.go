package models

import "time"

// AccountType distinguishes the kinds of authenticated identities.
type AccountType string

// Possible account types.
const (
	AccountStudent AccountType = "student"
	AccountParent  AccountType = "parent"
	AccountAdmin   AccountType = "admin"
)

// Profile is an authenticated identity. Profiles own subscriptions and
// usage credits; a student profile additionally owns one Student record.
type Profile struct {
	ID              string      `db:"id" json:"id"`
	AccountType     AccountType `db:"account_type" json:"account_type"`
	Email           string      `db:"email" json:"email"`
	TermsAcceptedAt *time.Time  `db:"terms_accepted_at" json:"terms_accepted_at,omitempty"`
	DeletedAt       *time.Time  `db:"deleted_at" json:"-"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

// Deleted reports whether the profile has been soft-deleted.
func (p *Profile) Deleted() bool {
	return p != nil && p.DeletedAt != nil
}
