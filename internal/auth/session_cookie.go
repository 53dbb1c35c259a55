package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionCookieName = "autorag_session"
	sessionIDKey      = "session_id"
	sessionMaxAge     = 24 * 60 * 60
)

// SessionCookie makes sure every request carries a session id, issuing a new one when
// the cookie is missing or not a UUID.
func SessionCookie() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookieName)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookieName, id, sessionMaxAge, "/", "", false, true)
		c.Set(sessionIDKey, id)
		c.Next()
	}
}

// SessionID returns the id set by SessionCookie, or "" when the middleware did not run.
func SessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}
