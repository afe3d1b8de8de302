package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dos-platform/tutor-api/internal/models"
	"github.com/dos-platform/tutor-api/internal/service"
	appErrors "github.com/dos-platform/tutor-api/pkg/errors"
	"github.com/dos-platform/tutor-api/pkg/response"
)

type sessionService interface {
	Create(ctx context.Context, studentID string, req service.CreateSessionRequest) (*service.CreateSessionResult, error)
	StartAgent(ctx context.Context, sessionID, studentID string) error
	End(ctx context.Context, sessionID, studentID string) error
	List(ctx context.Context, studentID string, page, pageSize int) ([]models.SessionListItem, *models.Pagination, error)
	Detail(ctx context.Context, sessionID, studentID string) (*models.SessionDetail, error)
}

// SessionHandler handles tutoring session endpoints.
type SessionHandler struct {
	service sessionService
	metrics *service.MetricsService
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(svc sessionService, metrics *service.MetricsService) *SessionHandler {
	return &SessionHandler{service: svc, metrics: metrics}
}

// Create godoc
// @Summary Create a tutoring session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body service.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req service.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Create(c.Request.Context(), profileFromContext(c), req)
	if err != nil {
		if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrQuotaExceeded.Code {
			h.metrics.QuotaDenied(quotaReason(appErr))
		}
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// StartAgent godoc
// @Summary Dispatch the tutor agent into a session room
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id}/start-agent [post]
func (h *SessionHandler) StartAgent(c *gin.Context) {
	if err := h.service.StartAgent(c.Request.Context(), c.Param("id"), profileFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.SessionStarted()
	response.NoContent(c)
}

// End godoc
// @Summary End a session and trigger the insight pipeline
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id}/end [post]
func (h *SessionHandler) End(c *gin.Context) {
	if err := h.service.End(c.Request.Context(), c.Param("id"), profileFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.SessionEnded()
	response.NoContent(c)
}

// List godoc
// @Summary List the caller's sessions
// @Tags Sessions
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	items, pagination, err := h.service.List(c.Request.Context(), profileFromContext(c), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Detail godoc
// @Summary Get a session with its transcript and summary
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Detail(c *gin.Context) {
	detail, err := h.service.Detail(c.Request.Context(), c.Param("id"), profileFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}
