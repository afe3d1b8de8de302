package models

import "time"

// Repeat flag priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Repeat flag statuses.
const (
	FlagActive   = "active"
	FlagResolved = "resolved"
)

// Repeat flag sources.
const (
	FlagSourceSessionAnalysis = "session_analysis"
	FlagSourceParentAssigned  = "parent_assigned"
)

// ProgressSnapshot captures the analyzer's read of a single session.
// ConfidenceScore is clamped to [0, 1].
type ProgressSnapshot struct {
	ID               int64     `db:"id" json:"id"`
	StudentID        string    `db:"student_id" json:"student_id"`
	EnrolmentID      int64     `db:"enrolment_id" json:"enrolment_id"`
	TopicID          *int64    `db:"topic_id" json:"topic_id,omitempty"`
	ConfidenceScore  float64   `db:"confidence_score" json:"confidence_score"`
	AreasOfStrength  []string  `json:"areas_of_strength"`
	AreasToImprove   []string  `json:"areas_to_improve"`
	RecommendedFocus []string  `json:"recommended_focus"`
	GeneratedAt      time.Time `db:"generated_at" json:"generated_at"`
}

// RepeatFlag marks a concept the student should revisit in a later session.
type RepeatFlag struct {
	ID          int64     `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	EnrolmentID int64     `db:"enrolment_id" json:"enrolment_id"`
	TopicID     *int64    `db:"topic_id" json:"topic_id,omitempty"`
	Concept     string    `db:"concept" json:"concept"`
	Reason      string    `db:"reason" json:"reason"`
	Priority    string    `db:"priority" json:"priority"`
	Status      string    `db:"status" json:"status"`
	Source      string    `db:"source" json:"source"`
	FlaggedAt   time.Time `db:"flagged_at" json:"flagged_at"`
}

// NormalizePriority falls back to medium for anything outside the known set.
func NormalizePriority(p string) string {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p
	default:
		return PriorityMedium
	}
}

// ClampScore bounds a confidence score to [0, 1].
func ClampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
