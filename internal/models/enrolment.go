package models

import "time"

// Enrolment registers a student in a (subject, exam board) pairing for a
// given exam year. Unique per (student, board subject).
type Enrolment struct {
	ID             int64     `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	BoardSubjectID int64     `db:"board_subject_id" json:"board_subject_id"`
	ExamYear       *int      `db:"exam_year" json:"exam_year,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// EnrolmentDetail joins the enrolment with its exam board for matching
// against a course's subject/board requirements.
type EnrolmentDetail struct {
	Enrolment
	SubjectID   int64 `db:"subject_id" json:"subject_id"`
	ExamBoardID int64 `db:"exam_board_id" json:"exam_board_id"`
}
