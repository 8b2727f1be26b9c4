package periods

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sekolah-admin/backend/internal/auth"
	"github.com/sekolah-admin/backend/internal/models"
	"github.com/sekolah-admin/backend/pkg/response"
)

// PeriodRequest is the body for creating or updating a period.
type PeriodRequest struct {
	AcademicYear string `json:"academic_year" binding:"required,max=20"`
	Semester     string `json:"semester" binding:"required,max=20"`
	StartDate    string `json:"start_date" binding:"required"` // YYYY-MM-DD
	EndDate      string `json:"end_date" binding:"required"`
	Description  string `json:"description"`
}

func (r PeriodRequest) dates() (time.Time, time.Time, bool) {
	start, err1 := time.Parse("2006-01-02", r.StartDate)
	end, err2 := time.Parse("2006-01-02", r.EndDate)
	return start, end, err1 == nil && err2 == nil && start.Before(end)
}

// Handler handles period HTTP endpoints.
type Handler struct {
	repo     *Repository
	pageSize int
	logger   *zap.Logger
}

// NewHandler creates a period handler.
func NewHandler(repo *Repository, pageSize int, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, pageSize: pageSize, logger: logger}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

// List handles GET /periods.
func (h *Handler) List(c *gin.Context) {
	var f Filter
	f.AcademicYear = c.Query("academic_year")
	f.Semester = c.Query("semester")
	if v := c.Query("is_active"); v != "" {
		active := v == "true"
		f.IsActive = &active
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
		h.logger.Error("list periods", zap.Error(err))
		response.Internal(c, "failed to list periods")
		return
	}
	response.OK(c, gin.H{"items": list, "total": total, "page": page, "size": size})
}

// Create handles POST /periods (admin only).
func (h *Handler) Create(c *gin.Context) {
	var req PeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	start, end, ok := req.dates()
	if !ok {
		response.BadRequest(c, "start_date and end_date must be YYYY-MM-DD with start before end")
		return
	}
	p := &models.Period{
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
		StartDate:    start,
		EndDate:      end,
		Description:  req.Description,
	}
	userID := auth.UserID(c)
	if err := h.repo.Create(c.Request.Context(), p, &userID); err != nil {
		response.Error(c, err, "failed to create period")
		return
	}
	response.Created(c, p)
}

// GetByID handles GET /periods/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to get period")
		return
	}
	response.OK(c, p)
}

// GetActive handles GET /periods/active.
func (h *Handler) GetActive(c *gin.Context) {
	p, err := h.repo.GetActive(c.Request.Context())
	if err != nil {
		response.Error(c, err, "failed to get active period")
		return
	}
	if p == nil {
		response.NotFound(c, "no active period")
		return
	}
	response.OK(c, p)
}

// Update handles PUT /periods/:id (admin only).
func (h *Handler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req PeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	start, end, okDates := req.dates()
	if !okDates {
		response.BadRequest(c, "start_date and end_date must be YYYY-MM-DD with start before end")
		return
	}
	p := &models.Period{
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
		StartDate:    start,
		EndDate:      end,
		Description:  req.Description,
	}
	userID := auth.UserID(c)
	out, err := h.repo.Update(c.Request.Context(), id, p, &userID)
	if err != nil {
		response.Error(c, err, "failed to update period")
		return
	}
	response.OK(c, out)
}

// Delete handles DELETE /periods/:id (admin only). Blocked while evaluations
// or submissions reference the period.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err, "failed to delete period")
		return
	}
	response.NoContent(c)
}

// Activate handles POST /periods/:id/activate (admin only).
func (h *Handler) Activate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	userID := auth.UserID(c)
	p, err := Activate(c.Request.Context(), h.repo, id, &userID)
	if err != nil {
		response.Error(c, err, "failed to activate period")
		return
	}
	h.logger.Info("period activated", zap.Int64("period_id", id), zap.Int64("by", userID))
	response.OK(c, p)
}

// Deactivate handles POST /periods/:id/deactivate (admin only).
func (h *Handler) Deactivate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	userID := auth.UserID(c)
	p, err := Deactivate(c.Request.Context(), h.repo, id, &userID)
	if err != nil {
		response.Error(c, err, "failed to deactivate period")
		return
	}
	h.logger.Info("period deactivated", zap.Int64("period_id", id), zap.Int64("by", userID))
	response.OK(c, p)
}

// Stats handles GET /periods/:id/stats.
func (h *Handler) Stats(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	stats, err := h.repo.Stats(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to get period stats")
		return
	}
	response.OK(c, stats)
}
