package media

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sekolah-admin/backend/internal/auth"
	"github.com/sekolah-admin/backend/internal/models"
	"github.com/sekolah-admin/backend/pkg/response"
	"github.com/sekolah-admin/backend/pkg/storage"
)

// Handler handles media upload and download endpoints.
type Handler struct {
	repo        *Repository
	s3          *storage.S3
	maxFileSize int64
	pageSize    int
	logger      *zap.Logger
}

// NewHandler creates a media handler. maxFileSizeMB caps multipart uploads.
func NewHandler(repo *Repository, s3 *storage.S3, maxFileSizeMB, pageSize int, logger *zap.Logger) *Handler {
	return &Handler{
		repo:        repo,
		s3:          s3,
		maxFileSize: int64(maxFileSizeMB) * 1024 * 1024,
		pageSize:    pageSize,
		logger:      logger,
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

// storageReady guards endpoints that need S3; the server runs without it
// when AWS is unconfigured.
func (h *Handler) storageReady(c *gin.Context) bool {
	if h.s3 == nil {
		response.ServiceUnavailable(c, "storage unavailable")
		return false
	}
	return true
}

// Upload handles POST /media as multipart form data with a "file" part.
func (h *Handler) Upload(c *gin.Context) {
	if !h.storageReady(c) {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if fileHeader.Size > h.maxFileSize {
		response.BadRequest(c, "file too large")
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !storage.ValidateFileType(contentType, fileHeader.Filename) {
		response.BadRequest(c, "file type not allowed")
		return
	}
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(fileHeader.Filename)
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.Internal(c, "failed to read upload")
		return
	}
	defer src.Close()

	ctx := c.Request.Context()
	folder := storage.FolderMedia
	if c.PostForm("purpose") == "rpp" {
		folder = storage.FolderRPP
	}
	key := storage.ObjectKey(folder, fileHeader.Filename)
	if err := h.s3.Upload(ctx, key, contentType, src, fileHeader.Size); err != nil {
		h.logger.Error("s3 upload", zap.String("key", key), zap.Error(err))
		response.Internal(c, "failed to store file")
		return
	}

	uploaderID := auth.UserID(c)
	file := &models.MediaFile{
		FilePath:   key,
		FileName:   fileHeader.Filename,
		FileType:   FileTypeForMime(contentType),
		FileSize:   fileHeader.Size,
		MimeType:   contentType,
		UploaderID: &uploaderID,
		IsPublic:   c.PostForm("is_public") == "true",
	}
	if err := h.repo.Create(ctx, file); err != nil {
		h.logger.Error("save media record", zap.String("key", key), zap.Error(err))
		if delErr := h.s3.Delete(ctx, key); delErr != nil {
			h.logger.Warn("orphan cleanup failed", zap.String("key", key), zap.Error(delErr))
		}
		response.Internal(c, "failed to save file record")
		return
	}
	response.Created(c, file)
}

// List handles GET /media.
func (h *Handler) List(c *gin.Context) {
	var f Filter
	f.FileType = c.Query("file_type")
	if v := c.Query("uploader_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.BadRequest(c, "invalid uploader_id")
			return
		}
		f.UploaderID = &id
	}
	f.PublicOnly = c.Query("public") == "true"
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(h.pageSize)))
	if size < 1 || size > 100 {
		size = h.pageSize
	}
	list, total, err := h.repo.List(c.Request.Context(), f, (page-1)*size, size)
	if err != nil {
		h.logger.Error("list media", zap.Error(err))
		response.Internal(c, "failed to list files")
		return
	}
	response.OK(c, gin.H{"items": list, "total": total, "page": page, "size": size})
}

// Download handles GET /media/:id/download with a short-lived pre-signed URL.
func (h *Handler) Download(c *gin.Context) {
	if !h.storageReady(c) {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	file, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to load file")
		return
	}
	url, err := h.s3.PresignDownload(c.Request.Context(), file.FilePath)
	if err != nil {
		h.logger.Error("presign download", zap.String("key", file.FilePath), zap.Error(err))
		response.Internal(c, "failed to generate download link")
		return
	}
	response.OK(c, gin.H{"url": url, "file_name": file.FileName, "expires_in_seconds": int(h.s3.PresignExpire().Seconds())})
}

// Stream handles GET /media/:id/stream, proxying the object through the API.
// Use when the client cannot follow a pre-signed URL (strict CSP, CORS).
func (h *Handler) Stream(c *gin.Context) {
	if !h.storageReady(c) {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	file, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to load file")
		return
	}
	body, contentType, err := h.s3.GetObjectStream(c.Request.Context(), file.FilePath)
	if err != nil {
		h.logger.Warn("media stream failed", zap.String("key", file.FilePath), zap.Error(err))
		response.NotFound(c, "file not found in storage")
		return
	}
	defer body.Close()
	if contentType == "" {
		contentType = file.MimeType
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", `attachment; filename="`+file.FileName+`"`)
	c.Header("Cache-Control", "private, max-age=300")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, body)
}

// GetByID handles GET /media/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	file, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to load file")
		return
	}
	response.OK(c, file)
}

// Delete handles DELETE /media/:id. The database row goes first; the S3
// object is removed after, and an orphaned object is only logged.
func (h *Handler) Delete(c *gin.Context) {
	if !h.storageReady(c) {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	key, err := h.repo.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to delete file")
		return
	}
	if err := h.s3.Delete(c.Request.Context(), key); err != nil {
		h.logger.Warn("s3 delete failed", zap.String("key", key), zap.Error(err))
	}
	response.OK(c, gin.H{"message": "file deleted"})
}
