package messages

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/sekolah-admin/backend/internal/models"
	"github.com/sekolah-admin/backend/pkg/queue"
	"github.com/sekolah-admin/backend/pkg/response"
)

// ContactRequest is the body for the public POST /messages endpoint.
type ContactRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Name    string `json:"name" binding:"required,max=255"`
	Title   string `json:"title" binding:"required,max=255"`
	Message string `json:"message" binding:"required,max=5000"`
}

// StatusRequest is the body for PUT /messages/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Handler handles contact message HTTP endpoints.
type Handler struct {
	repo       *Repository
	queue      *queue.Queue
	sanitizer  *bluemonday.Policy
	adminEmail string
	pageSize   int
	logger     *zap.Logger
}

// NewHandler creates a messages handler. adminEmail receives the
// notification for every new message; empty disables notifications.
func NewHandler(repo *Repository, q *queue.Queue, adminEmail string, pageSize int, logger *zap.Logger) *Handler {
	return &Handler{
		repo:       repo,
		queue:      q,
		sanitizer:  bluemonday.StrictPolicy(),
		adminEmail: adminEmail,
		pageSize:   pageSize,
		logger:     logger,
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

// clean strips HTML and surrounding whitespace from visitor-supplied text.
func (h *Handler) clean(s string) string {
	return strings.TrimSpace(h.sanitizer.Sanitize(s))
}

func validMessageStatus(s string) bool {
	switch models.MessageStatus(s) {
	case models.MessageUnread, models.MessageRead, models.MessageArchived:
		return true
	}
	return false
}

// Create handles the public POST /messages. All text fields are stripped of
// HTML before storage.
func (h *Handler) Create(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	m := &models.Message{
		Email:     strings.TrimSpace(req.Email),
		Name:      h.clean(req.Name),
		Title:     h.clean(req.Title),
		Message:   h.clean(req.Message),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if m.Name == "" || m.Title == "" || m.Message == "" {
		response.BadRequest(c, "name, title, and message must not be empty")
		return
	}

	ctx := c.Request.Context()
	if err := h.repo.Create(ctx, m); err != nil {
		h.logger.Error("create message", zap.Error(err))
		response.Internal(c, "failed to save message")
		return
	}

	if h.adminEmail != "" {
		if err := h.queue.EnqueueEmail(ctx, queue.EmailPayload{
			EmailType:      queue.EmailMessageReceived,
			RecipientEmail: h.adminEmail,
			RecipientName:  "Admin",
			Subject:        "Pesan baru: " + m.Title,
			Data: map[string]string{
				"sender_name":  m.Name,
				"sender_email": m.Email,
				"title":        m.Title,
				"message":      m.Message,
			},
		}); err != nil {
			h.logger.Warn("enqueue message notification failed", zap.Int64("message_id", m.ID), zap.Error(err))
		}
	}
	response.Created(c, gin.H{"id": m.ID, "message": "message received"})
}

// List handles GET /messages (admin only).
func (h *Handler) List(c *gin.Context) {
	status := c.Query("status")
	if status != "" && !validMessageStatus(status) {
		response.BadRequest(c, "invalid status")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(h.pageSize)))
	if size < 1 || size > 100 {
		size = h.pageSize
	}
	list, total, err := h.repo.List(c.Request.Context(), status, (page-1)*size, size)
	if err != nil {
		h.logger.Error("list messages", zap.Error(err))
		response.Internal(c, "failed to list messages")
		return
	}
	response.OK(c, gin.H{"items": list, "total": total, "page": page, "size": size})
}

// GetByID handles GET /messages/:id (admin only). Reading an unread message
// marks it read.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	m, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to load message")
		return
	}
	if m.Status == models.MessageUnread {
		if m, err = h.repo.SetStatus(c.Request.Context(), id, models.MessageRead); err != nil {
			response.Error(c, err, "failed to mark message read")
			return
		}
	}
	response.OK(c, m)
}

// SetStatus handles PUT /messages/:id/status (admin only).
func (h *Handler) SetStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !validMessageStatus(req.Status) {
		response.BadRequest(c, "status must be UNREAD, READ, or ARCHIVED")
		return
	}
	m, err := h.repo.SetStatus(c.Request.Context(), id, models.MessageStatus(req.Status))
	if err != nil {
		response.Error(c, err, "failed to update message")
		return
	}
	response.OK(c, m)
}

// Delete handles DELETE /messages/:id (admin only).
func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err, "failed to delete message")
		return
	}
	response.OK(c, gin.H{"message": "message deleted"})
}
