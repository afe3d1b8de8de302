package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dos-platform/tutor-api/internal/service"
	appErrors "github.com/dos-platform/tutor-api/pkg/errors"
	"github.com/dos-platform/tutor-api/pkg/response"
)

// ParentHandler handles parent-student linking endpoints.
type ParentHandler struct {
	service *service.ParentLinkService
}

// NewParentHandler constructs a parent handler.
func NewParentHandler(svc *service.ParentLinkService) *ParentHandler {
	return &ParentHandler{service: svc}
}

// RedeemLinkRequest is the payload a parent posts to claim an invite code.
type RedeemLinkRequest struct {
	Code         string `json:"code"`
	Relationship string `json:"relationship"`
}

// GenerateInviteCode godoc
// @Summary Mint a single-use parent invite code
// @Tags Parents
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /parent/link-code [post]
func (h *ParentHandler) GenerateInviteCode(c *gin.Context) {
	invite, err := h.service.GenerateInviteCode(c.Request.Context(), profileFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, invite)
}

// RedeemInviteCode godoc
// @Summary Redeem an invite code into a parent-student link
// @Tags Parents
// @Accept json
// @Produce json
// @Param payload body handler.RedeemLinkRequest true "Redeem payload"
// @Success 201 {object} response.Envelope
// @Router /parent/links [post]
func (h *ParentHandler) RedeemInviteCode(c *gin.Context) {
	var req RedeemLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	studentID, err := h.service.RedeemInviteCode(c.Request.Context(), profileFromContext(c), req.Code, req.Relationship)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"student_id": studentID})
}
