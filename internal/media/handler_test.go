package media

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// The server boots without S3 when AWS is unconfigured; storage endpoints
// must answer 503 instead of dereferencing a nil client.
func TestStorageEndpointsUnavailableWithoutS3(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, nil, 20, 20, zap.NewNop())

	r := gin.New()
	r.POST("/media", h.Upload)
	r.GET("/media/:id/download", h.Download)
	r.GET("/media/:id/stream", h.Stream)
	r.DELETE("/media/:id", h.Delete)

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodPost, "/media"},
		{http.MethodGet, "/media/1/download"},
		{http.MethodGet, "/media/1/stream"},
		{http.MethodDelete, "/media/1"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestFileTypeForMime(t *testing.T) {
	assert.Equal(t, "image", FileTypeForMime("image/png"))
	assert.Equal(t, "video", FileTypeForMime("video/mp4"))
	assert.Equal(t, "document", FileTypeForMime("application/pdf"))
	assert.Equal(t, "document", FileTypeForMime(""))
}
