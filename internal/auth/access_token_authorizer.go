package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenCookie remembers a browser that presented the access token once as a query parameter.
const TokenCookie = "autorag_token"

type AccessTokenAuthorizer struct {
	accessToken string
}

// NewAccessTokenAuthorizer checks requests against a single static token. An empty token disables the check.
func NewAccessTokenAuthorizer(accessToken string) *AccessTokenAuthorizer {
	return &AccessTokenAuthorizer{accessToken: accessToken}
}

func (a *AccessTokenAuthorizer) Enabled() bool {
	return a.accessToken != ""
}

func (a *AccessTokenAuthorizer) CheckToken(accessTokenValue string) bool {
	if !a.Enabled() {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(a.accessToken), []byte(accessTokenValue)) == 1
}

// Middleware accepts the token from an "Authorization: Bearer" header, the token cookie,
// or an access_token query parameter, which also sets the cookie.
func (a *AccessTokenAuthorizer) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			c.Next()
			return
		}

		if token, ok := bearerToken(c.GetHeader("Authorization")); ok && a.CheckToken(token) {
			c.Next()
			return
		}

		if token, err := c.Cookie(TokenCookie); err == nil && a.CheckToken(token) {
			c.Next()
			return
		}

		if token := c.Query("access_token"); token != "" && a.CheckToken(token) {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(TokenCookie, token, 0, "/", "", false, true)
			c.Next()
			return
		}

		c.AbortWithStatus(http.StatusUnauthorized)
	}
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return "", false
	}
	return token, true
}
