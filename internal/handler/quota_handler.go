package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dos-platform/tutor-api/internal/service"
	"github.com/dos-platform/tutor-api/pkg/response"
)

// QuotaHandler exposes the caller's quota breakdown.
type QuotaHandler struct {
	service *service.QuotaService
}

// NewQuotaHandler constructs a quota handler.
func NewQuotaHandler(svc *service.QuotaService) *QuotaHandler {
	return &QuotaHandler{service: svc}
}

// Check godoc
// @Summary Get the caller's remaining tutoring minutes
// @Tags Quota
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /quota [get]
func (h *QuotaHandler) Check(c *gin.Context) {
	result, err := h.service.Check(c.Request.Context(), profileFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
