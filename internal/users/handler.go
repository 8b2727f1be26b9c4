package users

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sekolah-admin/backend/internal/models"
	"github.com/sekolah-admin/backend/internal/organizations"
	"github.com/sekolah-admin/backend/pkg/queue"
	"github.com/sekolah-admin/backend/pkg/response"
	"github.com/sekolah-admin/backend/pkg/utils"
)

// CreateRequest is the body for POST /users. Username is optional; when
// empty one is generated from the name and organization.
type CreateRequest struct {
	Email          string                 `json:"email" binding:"required,email"`
	Username       string                 `json:"username"`
	Password       string                 `json:"password" binding:"required,min=6"`
	Role           string                 `json:"role" binding:"required"`
	OrganizationID *int64                 `json:"organization_id"`
	Profile        map[string]interface{} `json:"profile"`
}

// UpdateRequest is the body for PUT /users/:id.
type UpdateRequest struct {
	Email          string                 `json:"email" binding:"required,email"`
	OrganizationID *int64                 `json:"organization_id"`
	Status         string                 `json:"status" binding:"required"`
	Profile        map[string]interface{} `json:"profile"`
}

// RoleRequest is the body for PUT /users/:id/role.
type RoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// PasswordRequest is the body for PUT /users/:id/password.
type PasswordRequest struct {
	Password string `json:"password" binding:"required,min=6"`
}

// Handler handles user management HTTP endpoints (admin only).
type Handler struct {
	repo     *Repository
	orgs     *organizations.Repository
	queue    *queue.Queue
	pageSize int
	logger   *zap.Logger
}

// NewHandler creates a user handler.
func NewHandler(repo *Repository, orgs *organizations.Repository, q *queue.Queue, pageSize int, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, orgs: orgs, queue: q, pageSize: pageSize, logger: logger}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func validStatus(s string) bool {
	switch models.UserStatus(s) {
	case models.StatusActive, models.StatusInactive, models.StatusSuspended:
		return true
	}
	return false
}

// List handles GET /users.
func (h *Handler) List(c *gin.Context) {
	var f Filter
	f.Search = c.Query("search")
	f.Role = c.Query("role")
	f.Status = c.Query("status")
	if v := c.Query("organization_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.BadRequest(c, "invalid organization_id")
			return
		}
		f.OrganizationID = &id
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
		h.logger.Error("list users", zap.Error(err))
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, gin.H{"items": list, "total": total, "page": page, "size": size})
}

// Create handles POST /users.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !models.ValidRole(req.Role) {
		response.BadRequest(c, "invalid role")
		return
	}

	ctx := c.Request.Context()
	username := req.Username
	if username == "" {
		name, _ := req.Profile["name"].(string)
		orgName := ""
		if req.OrganizationID != nil {
			org, err := h.orgs.GetByID(ctx, *req.OrganizationID)
			if err != nil {
				response.Error(c, err, "failed to load organization")
				return
			}
			orgName = org.Name
		}
		var err error
		username, err = utils.GenerateAvailableUsername(ctx, name, orgName, h.repo.UsernameExists)
		if err != nil {
			response.Internal(c, "failed to generate username")
			return
		}
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user := &models.User{
		Email:          req.Email,
		Username:       username,
		Password:       hash,
		Profile:        req.Profile,
		OrganizationID: req.OrganizationID,
		Status:         models.StatusActive,
		Role:           models.Role(req.Role),
	}
	if user.Profile == nil {
		user.Profile = map[string]interface{}{}
	}
	if err := h.repo.Create(ctx, user); err != nil {
		response.Error(c, err, "failed to create user")
		return
	}

	if err := h.queue.EnqueueEmail(ctx, queue.EmailPayload{
		EmailType:      queue.EmailUserCreated,
		RecipientEmail: user.Email,
		RecipientName:  user.FullName(),
		Subject:        "Akun Anda telah dibuat",
		Data:           map[string]string{"username": user.Username},
	}); err != nil {
		h.logger.Warn("enqueue welcome email failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	response.Created(c, user.ToPublic())
}

// GetByID handles GET /users/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	user, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to load user")
		return
	}
	response.OK(c, user.ToPublic())
}

// Update handles PUT /users/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !validStatus(req.Status) {
		response.BadRequest(c, "invalid status")
		return
	}
	user, err := h.repo.Update(c.Request.Context(), id, req.Email, req.Profile, req.OrganizationID, models.UserStatus(req.Status))
	if err != nil {
		response.Error(c, err, "failed to update user")
		return
	}
	response.OK(c, user.ToPublic())
}

// SetRole handles PUT /users/:id/role.
func (h *Handler) SetRole(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !models.ValidRole(req.Role) {
		response.BadRequest(c, "invalid role")
		return
	}
	user, err := h.repo.SetRole(c.Request.Context(), id, models.Role(req.Role))
	if err != nil {
		response.Error(c, err, "failed to update role")
		return
	}
	response.OK(c, user.ToPublic())
}

// ResetPassword handles PUT /users/:id/password (admin sets a new password).
func (h *Handler) ResetPassword(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password", zap.Error(err))
		response.Internal(c, "failed to reset password")
		return
	}
	if err := h.repo.UpdatePassword(c.Request.Context(), id, hash); err != nil {
		response.Error(c, err, "failed to reset password")
		return
	}
	response.OK(c, gin.H{"message": "password updated"})
}

// Delete handles DELETE /users/:id. Users are soft-deleted so their
// evaluation and submission history stays intact.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.repo.SoftDelete(c.Request.Context(), id); err != nil {
		response.Error(c, err, "failed to delete user")
		return
	}
	response.OK(c, gin.H{"message": "user deleted"})
}
