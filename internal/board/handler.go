package board

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sekolah-admin/backend/internal/models"
	"github.com/sekolah-admin/backend/pkg/response"
)

// GroupRequest is the body for creating or updating a board group.
// DisplayOrder 0 means append at the end.
type GroupRequest struct {
	Title        string `json:"title" binding:"required,max=255"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"display_order"`
}

// MemberRequest is the body for creating or updating a board member.
type MemberRequest struct {
	GroupID     int64  `json:"group_id"`
	Name        string `json:"name" binding:"required,max=255"`
	Position    string `json:"position" binding:"required,max=255"`
	ImgURL      string `json:"img_url"`
	Description string `json:"description"`
	MemberOrder int    `json:"member_order"`
}

// MoveRequest is the body for the reorder endpoints. For members, a non-zero
// GroupID moves the member into that group.
type MoveRequest struct {
	Order   int   `json:"order" binding:"required"`
	GroupID int64 `json:"group_id"`
}

// Handler handles board HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a board handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

// ListGroups handles GET /board/groups. Public: the board page renders this.
func (h *Handler) ListGroups(c *gin.Context) {
	groups, err := h.repo.ListGroups(c.Request.Context())
	if err != nil {
		h.logger.Error("list board groups", zap.Error(err))
		response.Internal(c, "failed to list board groups")
		return
	}
	response.OK(c, groups)
}

// CreateGroup handles POST /board/groups (admin only).
func (h *Handler) CreateGroup(c *gin.Context) {
	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	g := &models.BoardGroup{Title: req.Title, Description: req.Description}
	if err := h.repo.CreateGroup(c.Request.Context(), g, req.DisplayOrder); err != nil {
		response.Error(c, err, "failed to create board group")
		return
	}
	response.Created(c, g)
}

// GetGroup handles GET /board/groups/:id.
func (h *Handler) GetGroup(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	g, err := h.repo.GetGroup(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to load board group")
		return
	}
	response.OK(c, g)
}

// UpdateGroup handles PUT /board/groups/:id (admin only).
func (h *Handler) UpdateGroup(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	g, err := h.repo.UpdateGroup(c.Request.Context(), id, req.Title, req.Description)
	if err != nil {
		response.Error(c, err, "failed to update board group")
		return
	}
	response.OK(c, g)
}

// MoveGroup handles PUT /board/groups/:id/order (admin only).
func (h *Handler) MoveGroup(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.MoveGroup(c.Request.Context(), id, req.Order); err != nil {
		response.Error(c, err, "failed to reorder board group")
		return
	}
	g, err := h.repo.GetGroup(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to load board group")
		return
	}
	response.OK(c, g)
}

// DeleteGroup handles DELETE /board/groups/:id (admin only).
func (h *Handler) DeleteGroup(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteGroup(c.Request.Context(), id); err != nil {
		response.Error(c, err, "failed to delete board group")
		return
	}
	response.OK(c, gin.H{"message": "board group deleted"})
}

// CreateMember handles POST /board/members (admin only).
func (h *Handler) CreateMember(c *gin.Context) {
	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.GroupID <= 0 {
		response.BadRequest(c, "group_id is required")
		return
	}
	m := &models.BoardMember{
		GroupID:     req.GroupID,
		Name:        req.Name,
		Position:    req.Position,
		ImgURL:      req.ImgURL,
		Description: req.Description,
	}
	if err := h.repo.CreateMember(c.Request.Context(), m, req.MemberOrder); err != nil {
		response.Error(c, err, "failed to create board member")
		return
	}
	response.Created(c, m)
}

// UpdateMember handles PUT /board/members/:id (admin only).
func (h *Handler) UpdateMember(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m, err := h.repo.UpdateMember(c.Request.Context(), id, req.Name, req.Position, req.ImgURL, req.Description)
	if err != nil {
		response.Error(c, err, "failed to update board member")
		return
	}
	response.OK(c, m)
}

// MoveMember handles PUT /board/members/:id/order (admin only). With a
// group_id in the body the member moves into that group at the given order.
func (h *Handler) MoveMember(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.MoveMember(c.Request.Context(), id, req.GroupID, req.Order); err != nil {
		response.Error(c, err, "failed to reorder board member")
		return
	}
	m, err := h.repo.GetMember(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to load board member")
		return
	}
	response.OK(c, m)
}

// DeleteMember handles DELETE /board/members/:id (admin only).
func (h *Handler) DeleteMember(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteMember(c.Request.Context(), id); err != nil {
		response.Error(c, err, "failed to delete board member")
		return
	}
	response.OK(c, gin.H{"message": "board member deleted"})
}
