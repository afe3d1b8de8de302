package models

import "time"

// ParentStudentLink associates a parent profile with a student. At most one
// link exists per (parent, student) pair.
type ParentStudentLink struct {
	ID           int64     `db:"id" json:"id"`
	ParentID     string    `db:"parent_id" json:"parent_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	Relationship string    `db:"relationship" json:"relationship"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ParentInviteCode is a time-bounded, single-use code a student hands to a
// parent to establish a link. Only the bcrypt hash is stored.
type ParentInviteCode struct {
	ID        int64      `db:"id" json:"id"`
	StudentID string     `db:"student_id" json:"student_id"`
	CodeHash  string     `db:"code_hash" json:"-"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	UsedAt    *time.Time `db:"used_at" json:"used_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Usable reports whether the code can still be redeemed.
func (c *ParentInviteCode) Usable(now time.Time) bool {
	return c != nil && c.UsedAt == nil && now.Before(c.ExpiresAt)
}
