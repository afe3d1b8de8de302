package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/dos-platform/tutor-api/internal/models"
)

// CachedCourseReader layers the Redis cache over course/topic lookups. These
// rows change rarely and are read on every session create and every agent
// turn, so short-TTL caching keeps the hot path off Postgres. Reads fall
// through to the database on any cache failure.
type CachedCourseReader struct {
	courses *CourseRepository
	cache   *CacheRepository
	ttl     time.Duration
}

// NewCachedCourseReader constructs the caching layer.
func NewCachedCourseReader(courses *CourseRepository, cache *CacheRepository, ttl time.Duration) *CachedCourseReader {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedCourseReader{courses: courses, cache: cache, ttl: ttl}
}

// FindCourse returns the course, preferring the cache.
func (r *CachedCourseReader) FindCourse(ctx context.Context, id int64) (*models.Course, error) {
	key := fmt.Sprintf("course:%d", id)

	// Any cache failure, miss or otherwise, falls through to Postgres.
	var cached models.Course
	if err := r.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	course, err := r.courses.FindCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	_ = r.cache.Set(ctx, key, course, r.ttl)
	return course, nil
}

// FindTopic returns the topic scoped to its course, preferring the cache.
func (r *CachedCourseReader) FindTopic(ctx context.Context, courseID, topicID int64) (*models.Topic, error) {
	key := fmt.Sprintf("course:%d:topic:%d", courseID, topicID)

	var cached models.Topic
	if err := r.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	topic, err := r.courses.FindTopic(ctx, courseID, topicID)
	if err != nil {
		return nil, err
	}
	_ = r.cache.Set(ctx, key, topic, r.ttl)
	return topic, nil
}

// ListTopics is a passthrough; topic listings are rare enough to skip caching.
func (r *CachedCourseReader) ListTopics(ctx context.Context, courseID int64) ([]models.Topic, error) {
	return r.courses.ListTopics(ctx, courseID)
}
