package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dos-platform/tutor-api/internal/service"
	appErrors "github.com/dos-platform/tutor-api/pkg/errors"
	"github.com/dos-platform/tutor-api/pkg/response"
)

// RetrievalHandler exposes topic-scoped similarity search to trusted internal
// callers.
type RetrievalHandler struct {
	service *service.RetrievalService
	metrics *service.MetricsService
}

// NewRetrievalHandler constructs a retrieval handler.
func NewRetrievalHandler(svc *service.RetrievalService, metrics *service.MetricsService) *RetrievalHandler {
	return &RetrievalHandler{service: svc, metrics: metrics}
}

// Search godoc
// @Summary Retrieve curriculum chunks similar to a query
// @Tags Retrieval
// @Produce json
// @Param q query string true "Query text"
// @Param course_id query int true "Course ID"
// @Param topic_id query int true "Topic ID"
// @Param k query int false "Result count"
// @Success 200 {object} response.Envelope
// @Router /retrieval [get]
func (h *RetrievalHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "q is required"))
		return
	}
	courseID, err := strconv.ParseInt(c.Query("course_id"), 10, 64)
	if err != nil || courseID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "course_id is required"))
		return
	}
	topicID, err := strconv.ParseInt(c.Query("topic_id"), 10, 64)
	if err != nil || topicID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "topic_id is required"))
		return
	}
	k, _ := strconv.Atoi(c.Query("k"))

	start := time.Now()
	chunks, err := h.service.Retrieve(c.Request.Context(), query, courseID, topicID, k)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveRetrieval(time.Since(start), len(chunks))

	response.JSON(c, http.StatusOK, chunks, nil)
}
