package evaluations

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sekolah-admin/backend/internal/auth"
	"github.com/sekolah-admin/backend/internal/models"
	"github.com/sekolah-admin/backend/internal/periods"
	"github.com/sekolah-admin/backend/pkg/response"
)

// CategoryRequest is the body for creating or updating a category.
type CategoryRequest struct {
	Name         string `json:"name" binding:"required,max=255"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"display_order"`
	IsActive     *bool  `json:"is_active"`
}

// AspectRequest is the body for creating or updating an aspect.
type AspectRequest struct {
	CategoryID   int64  `json:"category_id"`
	Name         string `json:"name" binding:"required,max=255"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"display_order"`
	IsActive     *bool  `json:"is_active"`
}

// MoveRequest is the body for the reorder endpoints.
type MoveRequest struct {
	Order int `json:"order" binding:"required"`
}

// EvaluationRequest is the body for POST /evaluations.
type EvaluationRequest struct {
	TeacherID  int64  `json:"teacher_id" binding:"required"`
	PeriodID   int64  `json:"period_id"`
	FinalNotes string `json:"final_notes"`
}

// ItemRequest is the body for grading one aspect.
type ItemRequest struct {
	AspectID int64  `json:"aspect_id" binding:"required"`
	Grade    string `json:"grade" binding:"required"`
	Notes    string `json:"notes"`
}

// NotesRequest is the body for PUT /evaluations/:id/notes.
type NotesRequest struct {
	FinalNotes string `json:"final_notes"`
}

// Handler handles evaluation HTTP endpoints.
type Handler struct {
	repo     *Repository
	periods  *periods.Repository
	pageSize int
	logger   *zap.Logger
}

// NewHandler creates an evaluations handler.
func NewHandler(repo *Repository, periodRepo *periods.Repository, pageSize int, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, periods: periodRepo, pageSize: pageSize, logger: logger}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// ListCategories handles GET /evaluations/categories.
func (h *Handler) ListCategories(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	list, err := h.repo.ListCategories(c.Request.Context(), activeOnly)
	if err != nil {
		h.logger.Error("list categories", zap.Error(err))
		response.Internal(c, "failed to list categories")
		return
	}
	response.OK(c, list)
}

// CreateCategory handles POST /evaluations/categories (admin only).
func (h *Handler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	cat := &models.EvaluationCategory{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    boolOrDefault(req.IsActive, true),
	}
	if err := h.repo.CreateCategory(c.Request.Context(), cat, req.DisplayOrder); err != nil {
		response.Error(c, err, "failed to create category")
		return
	}
	response.Created(c, cat)
}

// UpdateCategory handles PUT /evaluations/categories/:id (admin only).
func (h *Handler) UpdateCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	cat, err := h.repo.UpdateCategory(c.Request.Context(), id, req.Name, req.Description,
		boolOrDefault(req.IsActive, true))
	if err != nil {
		response.Error(c, err, "failed to update category")
		return
	}
	response.OK(c, cat)
}

// MoveCategory handles PUT /evaluations/categories/:id/order (admin only).
func (h *Handler) MoveCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.MoveCategory(c.Request.Context(), id, req.Order); err != nil {
		response.Error(c, err, "failed to reorder category")
		return
	}
	cat, err := h.repo.GetCategory(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to load category")
		return
	}
	response.OK(c, cat)
}

// DeleteCategory handles DELETE /evaluations/categories/:id (admin only).
func (h *Handler) DeleteCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteCategory(c.Request.Context(), id); err != nil {
		response.Error(c, err, "failed to delete category")
		return
	}
	response.OK(c, gin.H{"message": "category deleted"})
}

// ListAspects handles GET /evaluations/categories/:id/aspects.
func (h *Handler) ListAspects(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	activeOnly := c.Query("active") == "true"
	list, err := h.repo.ListAspects(c.Request.Context(), id, activeOnly)
	if err != nil {
		response.Error(c, err, "failed to list aspects")
		return
	}
	response.OK(c, list)
}

// CreateAspect handles POST /evaluations/aspects (admin only).
func (h *Handler) CreateAspect(c *gin.Context) {
	var req AspectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.CategoryID <= 0 {
		response.BadRequest(c, "category_id is required")
		return
	}
	a := &models.EvaluationAspect{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    boolOrDefault(req.IsActive, true),
	}
	if err := h.repo.CreateAspect(c.Request.Context(), a, req.DisplayOrder); err != nil {
		response.Error(c, err, "failed to create aspect")
		return
	}
	response.Created(c, a)
}

// UpdateAspect handles PUT /evaluations/aspects/:id (admin only).
func (h *Handler) UpdateAspect(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req AspectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	a, err := h.repo.UpdateAspect(c.Request.Context(), id, req.Name, req.Description,
		boolOrDefault(req.IsActive, true))
	if err != nil {
		response.Error(c, err, "failed to update aspect")
		return
	}
	response.OK(c, a)
}

// MoveAspect handles PUT /evaluations/aspects/:id/order (admin only).
func (h *Handler) MoveAspect(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.MoveAspect(c.Request.Context(), id, req.Order); err != nil {
		response.Error(c, err, "failed to reorder aspect")
		return
	}
	a, err := h.repo.GetAspect(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to load aspect")
		return
	}
	response.OK(c, a)
}

// DeleteAspect handles DELETE /evaluations/aspects/:id (admin only).
func (h *Handler) DeleteAspect(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteAspect(c.Request.Context(), id); err != nil {
		response.Error(c, err, "failed to delete aspect")
		return
	}
	response.OK(c, gin.H{"message": "aspect deleted"})
}

// Create handles POST /evaluations (kepala_sekolah). With no period_id the
// evaluation goes into the currently active period.
func (h *Handler) Create(c *gin.Context) {
	var req EvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	periodID := req.PeriodID
	if periodID == 0 {
		active, err := h.periods.GetActive(ctx)
		if err != nil {
			response.Internal(c, "failed to look up active period")
			return
		}
		if active == nil {
			response.BadRequest(c, "no active period")
			return
		}
		periodID = active.ID
	}
	e := &models.TeacherEvaluation{
		TeacherID:   req.TeacherID,
		EvaluatorID: auth.UserID(c),
		PeriodID:    periodID,
		FinalNotes:  req.FinalNotes,
	}
	if err := h.repo.CreateEvaluation(ctx, e); err != nil {
		response.Error(c, err, "failed to create evaluation")
		return
	}
	response.Created(c, e)
}

// List handles GET /evaluations. Guru callers only see their own rows.
func (h *Handler) List(c *gin.Context) {
	var f EvalFilter
	parse := func(name string) (*int64, bool) {
		v := c.Query(name)
		if v == "" {
			return nil, true
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.BadRequest(c, "invalid "+name)
			return nil, false
		}
		return &id, true
	}
	var ok bool
	if f.TeacherID, ok = parse("teacher_id"); !ok {
		return
	}
	if f.EvaluatorID, ok = parse("evaluator_id"); !ok {
		return
	}
	if f.PeriodID, ok = parse("period_id"); !ok {
		return
	}
	f.FinalGrade = c.Query("final_grade")

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
	list, total, err := h.repo.ListEvaluations(c.Request.Context(), f, (page-1)*size, size)
	if err != nil {
		h.logger.Error("list evaluations", zap.Error(err))
		response.Internal(c, "failed to list evaluations")
		return
	}
	response.OK(c, gin.H{"items": list, "total": total, "page": page, "size": size})
}

// GetByID handles GET /evaluations/:id. Guru callers only see their own.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	e, err := h.repo.GetEvaluation(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to load evaluation")
		return
	}
	if auth.UserRole(c) == string(models.RoleGuru) && e.TeacherID != auth.UserID(c) {
		response.Forbidden(c, "not your evaluation")
		return
	}
	response.OK(c, e)
}

// UpsertItem handles PUT /evaluations/:id/items (kepala_sekolah).
func (h *Handler) UpsertItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !models.ValidGrade(req.Grade) {
		response.BadRequest(c, "grade must be A, B, C, or D")
		return
	}
	if err := h.repo.UpsertItem(c.Request.Context(), id, req.AspectID, models.Grade(req.Grade), req.Notes); err != nil {
		response.Error(c, err, "failed to save grade")
		return
	}
	e, err := h.repo.GetEvaluation(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to load evaluation")
		return
	}
	response.OK(c, e)
}

// DeleteItem handles DELETE /evaluations/:id/items/:itemID (kepala_sekolah).
func (h *Handler) DeleteItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	itemID, err := strconv.ParseInt(c.Param("itemID"), 10, 64)
	if err != nil || itemID <= 0 {
		response.BadRequest(c, "invalid item id")
		return
	}
	if err := h.repo.DeleteItem(c.Request.Context(), id, itemID); err != nil {
		response.Error(c, err, "failed to delete grade")
		return
	}
	response.OK(c, gin.H{"message": "grade deleted"})
}

// UpdateNotes handles PUT /evaluations/:id/notes (kepala_sekolah).
func (h *Handler) UpdateNotes(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req NotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.UpdateNotes(c.Request.Context(), id, req.FinalNotes); err != nil {
		response.Error(c, err, "failed to update notes")
		return
	}
	response.OK(c, gin.H{"message": "notes updated"})
}

// Delete handles DELETE /evaluations/:id (admin only).
func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteEvaluation(c.Request.Context(), id); err != nil {
		response.Error(c, err, "failed to delete evaluation")
		return
	}
	response.OK(c, gin.H{"message": "evaluation deleted"})
}

// Export handles GET /evaluations/export?period_id= as an xlsx download.
func (h *Handler) Export(c *gin.Context) {
	periodID, err := strconv.ParseInt(c.Query("period_id"), 10, 64)
	if err != nil || periodID <= 0 {
		response.BadRequest(c, "period_id is required")
		return
	}
	ctx := c.Request.Context()
	period, err := h.periods.GetByID(ctx, periodID)
	if err != nil {
		response.Error(c, err, "failed to load period")
		return
	}
	rows, err := h.repo.ExportRows(ctx, periodID)
	if err != nil {
		h.logger.Error("export evaluations", zap.Int64("period_id", periodID), zap.Error(err))
		response.Internal(c, "failed to export evaluations")
		return
	}
	buf, err := BuildReportXLSX(period.Name(), rows)
	if err != nil {
		response.Internal(c, "failed to build report")
		return
	}
	year := strings.ReplaceAll(period.AcademicYear, "/", "-")
	filename := fmt.Sprintf("evaluasi-%s-%s.xlsx", year, period.Semester)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(200, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
