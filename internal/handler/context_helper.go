package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/dos-platform/tutor-api/internal/middleware"
	"github.com/dos-platform/tutor-api/internal/models"
	appErrors "github.com/dos-platform/tutor-api/pkg/errors"
)

func profileFromContext(c *gin.Context) string {
	return middleware.ProfileID(c)
}

func quotaReason(appErr *appErrors.Error) string {
	if result, ok := appErr.Details.(*models.QuotaResult); ok {
		return result.Reason
	}
	return models.QuotaReasonExhausted
}
