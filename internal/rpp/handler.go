package rpp

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sekolah-admin/backend/internal/auth"
	"github.com/sekolah-admin/backend/internal/models"
	"github.com/sekolah-admin/backend/internal/periods"
	"github.com/sekolah-admin/backend/pkg/queue"
	"github.com/sekolah-admin/backend/pkg/response"
)

// SubmitRequest is the body for POST /rpp. The file must already be uploaded
// through the media endpoint.
type SubmitRequest struct {
	RPPType string `json:"rpp_type" binding:"required,max=50"`
	FileID  int64  `json:"file_id" binding:"required"`
}

// ReviewRequest is the body for PUT /rpp/:id/review.
type ReviewRequest struct {
	Decision string `json:"decision" binding:"required"`
	Notes    string `json:"notes"`
}

// ResubmitRequest is the body for PUT /rpp/:id/resubmit.
type ResubmitRequest struct {
	FileID int64 `json:"file_id" binding:"required"`
}

// Handler handles RPP submission HTTP endpoints.
type Handler struct {
	repo     *Repository
	periods  *periods.Repository
	queue    *queue.Queue
	pageSize int
	logger   *zap.Logger
}

// NewHandler creates an RPP handler.
func NewHandler(repo *Repository, periodRepo *periods.Repository, q *queue.Queue, pageSize int, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, periods: periodRepo, queue: q, pageSize: pageSize, logger: logger}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

// Submit handles POST /rpp (guru). Submissions always land in the currently
// active period; without one, submission is closed.
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	active, err := h.periods.GetActive(ctx)
	if err != nil {
		response.Internal(c, "failed to look up active period")
		return
	}
	if active == nil {
		response.BadRequest(c, "no active period, submissions are closed")
		return
	}

	s := &models.RPPSubmission{
		TeacherID: auth.UserID(c),
		PeriodID:  active.ID,
		RPPType:   req.RPPType,
		FileID:    req.FileID,
	}
	if err := h.repo.Create(ctx, s); err != nil {
		response.Error(c, err, "failed to submit RPP")
		return
	}
	response.Created(c, s)
}

// List handles GET /rpp. Guru callers only see their own submissions.
func (h *Handler) List(c *gin.Context) {
	var f Filter
	if v := c.Query("teacher_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.BadRequest(c, "invalid teacher_id")
			return
		}
		f.TeacherID = &id
	}
	if v := c.Query("period_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.BadRequest(c, "invalid period_id")
			return
		}
		f.PeriodID = &id
	}
	f.Status = c.Query("status")
	f.RPPType = c.Query("rpp_type")

	if auth.UserRole(c) == string(models.RoleGuru) {
		self := auth.UserID(c)
		f.TeacherID = &self
	}

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
		h.logger.Error("list rpp submissions", zap.Error(err))
		response.Internal(c, "failed to list submissions")
		return
	}
	response.OK(c, gin.H{"items": list, "total": total, "page": page, "size": size})
}

// GetByID handles GET /rpp/:id. Guru callers only see their own.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to load submission")
		return
	}
	if auth.UserRole(c) == string(models.RoleGuru) && s.TeacherID != auth.UserID(c) {
		response.Forbidden(c, "not your submission")
		return
	}
	response.OK(c, s)
}

// Review handles PUT /rpp/:id/review (kepala_sekolah). The teacher gets an
// email about the decision.
func (h *Handler) Review(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !models.ValidRPPDecision(req.Decision) {
		response.BadRequest(c, "decision must be approved, rejected, or revision_needed")
		return
	}

	ctx := c.Request.Context()
	s, err := h.repo.Review(ctx, id, auth.UserID(c), models.RPPStatus(req.Decision), req.Notes)
	if err != nil {
		response.Error(c, err, "failed to review submission")
		return
	}

	email, name, err := h.repo.TeacherEmail(ctx, s.TeacherID)
	if err == nil {
		if err := h.queue.EnqueueEmail(ctx, queue.EmailPayload{
			EmailType:      queue.EmailRPPReviewed,
			RecipientEmail: email,
			RecipientName:  name,
			Subject:        "Hasil review RPP Anda",
			Data: map[string]string{
				"rpp_type": s.RPPType,
				"status":   string(s.Status),
				"notes":    s.ReviewNotes,
			},
		}); err != nil {
			h.logger.Warn("enqueue review email failed", zap.Int64("submission_id", s.ID), zap.Error(err))
		}
	}
	response.OK(c, s)
}

// Resubmit handles PUT /rpp/:id/resubmit (guru, own submission only).
func (h *Handler) Resubmit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req ResubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s, err := h.repo.Resubmit(c.Request.Context(), id, auth.UserID(c), req.FileID)
	if err != nil {
		response.Error(c, err, "failed to resubmit")
		return
	}
	response.OK(c, s)
}

// Delete handles DELETE /rpp/:id (admin only).
func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err, "failed to delete submission")
		return
	}
	response.OK(c, gin.H{"message": "submission deleted"})
}
