package organizations

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sekolah-admin/backend/internal/models"
	"github.com/sekolah-admin/backend/pkg/response"
)

// OrganizationRequest is the body for creating or updating a school.
type OrganizationRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	HeadID      *int64 `json:"head_id"`
}

// Handler handles organization HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates an organizations handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

// List handles GET /organizations.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list organizations")
		return
	}
	response.OK(c, list)
}

// Create handles POST /organizations (admin only).
func (h *Handler) Create(c *gin.Context) {
	var req OrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	org := &models.Organization{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		HeadID:      req.HeadID,
	}
	if org.Name == "" {
		response.BadRequest(c, "name is required")
		return
	}
	if err := h.repo.Create(c.Request.Context(), org); err != nil {
		response.Error(c, err, "failed to create organization")
		return
	}
	response.Created(c, org)
}

// GetByID handles GET /organizations/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	org, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to load organization")
		return
	}
	response.OK(c, org)
}

// Update handles PUT /organizations/:id (admin only).
func (h *Handler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req OrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	org := &models.Organization{
		ID:          id,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		HeadID:      req.HeadID,
	}
	if err := h.repo.Update(c.Request.Context(), org); err != nil {
		response.Error(c, err, "failed to update organization")
		return
	}
	response.OK(c, org)
}

// Delete handles DELETE /organizations/:id (admin only).
func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err, "failed to delete organization")
		return
	}
	response.OK(c, gin.H{"message": "organization deleted"})
}
