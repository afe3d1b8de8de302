package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dos-platform/tutor-api/internal/models"
)

// CourseRepository manages courses and their topics.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindCourse fetches one course.
func (r *CourseRepository) FindCourse(ctx context.Context, id int64) (*models.Course, error) {
	var course models.Course
	query := `SELECT id, name, subject_id, exam_board_id FROM courses WHERE id = $1`
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

type topicRow struct {
	ID          int64  `db:"id"`
	CourseID    int64  `db:"course_id"`
	Name        string `db:"name"`
	STTKeywords []byte `db:"stt_keywords"`
}

func (row topicRow) toModel() (models.Topic, error) {
	topic := models.Topic{ID: row.ID, CourseID: row.CourseID, Name: row.Name}
	if len(row.STTKeywords) > 0 {
		if err := json.Unmarshal(row.STTKeywords, &topic.STTKeywords); err != nil {
			return topic, fmt.Errorf("decode stt keywords: %w", err)
		}
	}
	return topic, nil
}

// FindTopic fetches one topic scoped to its course. A topic belonging to a
// different course is treated as absent.
func (r *CourseRepository) FindTopic(ctx context.Context, courseID, topicID int64) (*models.Topic, error) {
	var row topicRow
	query := `SELECT id, course_id, name, stt_keywords FROM topics WHERE id = $1 AND course_id = $2`
	if err := r.db.GetContext(ctx, &row, query, topicID, courseID); err != nil {
		return nil, fmt.Errorf("find topic: %w", err)
	}
	topic, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

// ListTopics returns all topics of a course.
func (r *CourseRepository) ListTopics(ctx context.Context, courseID int64) ([]models.Topic, error) {
	var rows []topicRow
	query := `SELECT id, course_id, name, stt_keywords FROM topics WHERE course_id = $1 ORDER BY id ASC`
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	topics := make([]models.Topic, 0, len(rows))
	for _, row := range rows {
		topic, err := row.toModel()
		if err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	return topics, nil
}
