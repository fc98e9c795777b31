package middleware

import (
	"net/http"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware verifies the caller's token with the same extraction order
// the socket handshake uses and sets "userId" for handlers.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := utils.ExtractToken(c.Request.Header, c.Query("token"))
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString, secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("userId", claims.UserID)
		c.Set("claims", claims)
		c.Next()
	}
}

// CurrentUserID returns the authenticated caller set by AuthMiddleware.
func CurrentUserID(c *gin.Context) (string, bool) {
	id := c.GetString("userId")
	return id, id != ""
}
