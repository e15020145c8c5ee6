package middleware

import (
	"net/http"

	"github.com/OriflamCodeGamming/MoodCrowd/internal/utils"

	"github.com/gin-gonic/gin"
)

// SessionCookieName is the cookie carrying the signed session credential.
const SessionCookieName = "moodcrowd_session"

// SessionMiddleware resolves the session cookie to a user id. Every resolve
// failure looks the same to the client: a missing cookie, a bad signature
// and an expired token all produce the identical 401.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookieName)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Next()
	}
}
