package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Logout must expire the cookie with the same domain and secure attributes
// the login cookie was set with, or browsers keep the stale one.
func TestLogoutCookieCarriesConfiguredAttributes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, nil, CookieConfig{MaxAge: 3600, Domain: "sekolah.id", Secure: true}, zap.NewNop())

	r := gin.New()
	r.POST("/auth/logout", h.Logout)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	setCookie := w.Header().Get("Set-Cookie")
	require.NotEmpty(t, setCookie)
	assert.True(t, strings.HasPrefix(setCookie, CookieName+"="), setCookie)
	assert.Contains(t, setCookie, "Domain=sekolah.id")
	assert.Contains(t, setCookie, "Secure")
	assert.Contains(t, setCookie, "HttpOnly")
}

func TestLogoutCookieOmitsEmptyDomain(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, nil, CookieConfig{MaxAge: 3600}, zap.NewNop())

	r := gin.New()
	r.POST("/auth/logout", h.Logout)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	setCookie := w.Header().Get("Set-Cookie")
	require.NotEmpty(t, setCookie)
	assert.NotContains(t, setCookie, "Domain=")
	assert.NotContains(t, setCookie, "Secure")
}
