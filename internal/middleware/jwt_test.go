package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolah-admin/backend/internal/auth"
)

func jwtRouter(t *testing.T, svc *auth.JWTService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", JWT(svc), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": auth.UserID(c),
			"role":    auth.UserRole(c),
		})
	})
	return r
}

func TestJWTAcceptsBearerHeader(t *testing.T) {
	svc := auth.NewJWTService("test-secret", 1)
	token, err := svc.Generate(42, "budi_sdn", "guru")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	jwtRouter(t, svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":42`)
	assert.Contains(t, w.Body.String(), `"role":"guru"`)
}

func TestJWTAcceptsAccessTokenCookie(t *testing.T) {
	svc := auth.NewJWTService("test-secret", 1)
	token, err := svc.Generate(7, "admin", "admin")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	w := httptest.NewRecorder()
	jwtRouter(t, svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":7`)
}

func TestJWTRejectsMissingAndBadTokens(t *testing.T) {
	svc := auth.NewJWTService("test-secret", 1)
	r := jwtRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin-only",
		func(c *gin.Context) { c.Set(auth.ContextUserRole, "guru") },
		RequireRole("admin"),
		func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/reviewer",
		func(c *gin.Context) { c.Set(auth.ContextUserRole, "kepala_sekolah") },
		RequireRole("admin", "kepala_sekolah"),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin-only", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reviewer", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
