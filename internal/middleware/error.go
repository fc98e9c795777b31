package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/errors"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ErrorHandlerMiddleware recovers panics and renders errors attached with c.Error.
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Str("path", c.Request.URL.Path).
					Msg("Panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal Server Error",
				})
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		if appErr, ok := errors.As(err); ok {
			c.JSON(appErr.Code, gin.H{"error": appErr.Message, "retryable": appErr.Retryable})
			return
		}

		logger.Error().Err(err).Msg("Unhandled request error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	}
}
