package models

// Course is a tutorable course, optionally tied to a subject/exam board.
type Course struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	SubjectID   *int64 `db:"subject_id" json:"subject_id,omitempty"`
	ExamBoardID *int64 `db:"exam_board_id" json:"exam_board_id,omitempty"`
}

// Topic is a unit of a course. STT keywords bias the speech layer towards
// the topic's vocabulary.
type Topic struct {
	ID          int64    `db:"id" json:"id"`
	CourseID    int64    `db:"course_id" json:"course_id"`
	Name        string   `db:"name" json:"name"`
	STTKeywords []string `json:"stt_keywords,omitempty"`
}

// RetrievedChunk is one reference passage returned by vector search,
// ordered by decreasing similarity.
type RetrievedChunk struct {
	ChunkID    int64   `db:"chunk_id" json:"chunk_id"`
	DocTitle   string  `db:"doc_title" json:"doc_title"`
	Content    string  `db:"content" json:"content"`
	SourcePath string  `db:"source_path" json:"source_path"`
	Similarity float64 `db:"similarity" json:"similarity"`
}
