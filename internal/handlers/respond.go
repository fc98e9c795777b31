package handlers

import (
	"net/http"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/middleware"
	apperrors "github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/errors"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/logger"
	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unhandled handler error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	if appErr.Code >= http.StatusInternalServerError {
		logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed on a dependency")
	}
	body := gin.H{"error": appErr.Message}
	if appErr.Retryable {
		body["retryable"] = true
	}
	c.JSON(appErr.Code, body)
}

func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return userID, ok
}
