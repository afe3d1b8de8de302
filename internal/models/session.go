package models

import "time"

// SessionStatus tracks the lifecycle of a tutoring session. Transitions only
// move forward: pending -> live -> ended -> summarized.
type SessionStatus string

const (
	SessionPending    SessionStatus = "pending"
	SessionLive       SessionStatus = "live"
	SessionEnded      SessionStatus = "ended"
	SessionSummarized SessionStatus = "summarized"
)

type Session struct {
	ID               string        `db:"id" json:"id"`
	StudentID        string        `db:"student_id" json:"student_id"`
	EnrolmentID      *int64        `db:"enrolment_id" json:"enrolment_id,omitempty"`
	CourseID         int64         `db:"course_id" json:"course_id"`
	TopicID          int64         `db:"topic_id" json:"topic_id"`
	RoomName         string        `db:"room_name" json:"room_name"`
	ParticipantToken *string       `db:"participant_token" json:"participant_token,omitempty"`
	Status           SessionStatus `db:"status" json:"status"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	StartedAt        *time.Time    `db:"started_at" json:"started_at,omitempty"`
	EndedAt          *time.Time    `db:"ended_at" json:"ended_at,omitempty"`
	DurationSeconds  int           `db:"duration_seconds" json:"duration_seconds"`
}

// SessionListItem is the compact shape used for history listings.
type SessionListItem struct {
	ID              string        `db:"id" json:"id"`
	CourseName      string        `db:"course_name" json:"course_name"`
	TopicName       string        `db:"topic_name" json:"topic_name"`
	Status          SessionStatus `db:"status" json:"status"`
	StartedAt       *time.Time    `db:"started_at" json:"started_at,omitempty"`
	DurationSeconds int           `db:"duration_seconds" json:"duration_seconds"`
}

// SessionDetail joins a session with whatever post-session artifacts exist.
type SessionDetail struct {
	Session
	CourseName string          `json:"course_name"`
	TopicName  string          `json:"topic_name"`
	Summary    *SessionSummary `json:"summary,omitempty"`
	Transcript *Transcript     `json:"transcript,omitempty"`
}
