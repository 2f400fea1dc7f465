package handlers

import (
	"net/http"

	"order_manager/internal/apperrors"
	"order_manager/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError writes err as {"error", "fields", "details"} with the status
// it carries. Unknown errors become a generic 500.
func respondError(c *gin.Context, err error) {
	appErr := apperrors.FromPersistence(err)
	if appErr.Code >= http.StatusInternalServerError {
		logger.FromContext(c).Error("request failed", zap.Error(err))
	}
	_ = c.Error(err)

	body := gin.H{"error": appErr.Message}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	if appErr.Details != nil {
		body["details"] = appErr.Details
	}
	c.AbortWithStatusJSON(appErr.Code, body)
}
