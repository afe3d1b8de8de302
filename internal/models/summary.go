package models

import "time"

// SessionSummary is the post-session study note generated from the full
// transcript.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	SummaryMd    string    `json:"summary_md"`
	KeyTakeaways []string  `json:"key_takeaways"`
	Citations    []string  `json:"citations"`
	CreatedAt    time.Time `json:"created_at"`
}
