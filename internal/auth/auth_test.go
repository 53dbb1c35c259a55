package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter(a *AccessTokenAuthorizer) *gin.Engine {
	r := gin.New()
	r.Use(a.Middleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func TestAccessTokenAuthorizer_CheckToken(t *testing.T) {
	a := NewAccessTokenAuthorizer("secret")
	assert.True(t, a.CheckToken("secret"))
	assert.False(t, a.CheckToken("secreT"))
	assert.False(t, a.CheckToken(""))

	open := NewAccessTokenAuthorizer("")
	assert.False(t, open.Enabled())
	assert.True(t, open.CheckToken("anything"))
}

func TestAccessTokenAuthorizer_Middleware(t *testing.T) {
	r := protectedRouter(NewAccessTokenAuthorizer("secret"))

	tests := []struct {
		name   string
		setup  func(req *http.Request)
		target string
		want   int
	}{
		{name: "no token", target: "/", want: http.StatusUnauthorized},
		{
			name:   "bearer header",
			target: "/",
			setup:  func(req *http.Request) { req.Header.Set("Authorization", "Bearer secret") },
			want:   http.StatusOK,
		},
		{
			name:   "header without bearer prefix",
			target: "/",
			setup:  func(req *http.Request) { req.Header.Set("Authorization", "secret") },
			want:   http.StatusUnauthorized,
		},
		{
			name:   "cookie",
			target: "/",
			setup:  func(req *http.Request) { req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "secret"}) },
			want:   http.StatusOK,
		},
		{name: "query parameter", target: "/?access_token=secret", want: http.StatusOK},
		{name: "wrong query parameter", target: "/?access_token=nope", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.setup != nil {
				tt.setup(req)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAccessTokenAuthorizer_QueryTokenSetsCookie(t *testing.T) {
	r := protectedRouter(NewAccessTokenAuthorizer("secret"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?access_token=secret", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == TokenCookie {
			found = true
			assert.Equal(t, "secret", c.Value)
		}
	}
	assert.True(t, found)
}

func TestSessionCookie(t *testing.T) {
	r := gin.New()
	r.Use(SessionCookie())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, SessionID(c)) })

	t.Run("issues a new id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		id := w.Body.String()
		require.NoError(t, uuid.Validate(id))
		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, SessionCookieName, cookies[0].Name)
		assert.Equal(t, id, cookies[0].Value)
	})

	t.Run("keeps a valid id", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: id})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("replaces a malformed id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "../../etc"})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.NotEqual(t, "../../etc", w.Body.String())
		assert.NoError(t, uuid.Validate(w.Body.String()))
	})
}
