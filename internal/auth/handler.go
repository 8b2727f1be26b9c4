package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sekolah-admin/backend/internal/models"
	"github.com/sekolah-admin/backend/internal/users"
	"github.com/sekolah-admin/backend/pkg/apperr"
	"github.com/sekolah-admin/backend/pkg/response"
	"github.com/sekolah-admin/backend/pkg/utils"
)

// LoginRequest is the body for POST /auth/login. Identifier accepts either
// email or username.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// ChangePasswordRequest is the body for POST /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// CookieConfig controls the access_token cookie set at login. MaxAge is in
// seconds and should match the JWT expiry.
type CookieConfig struct {
	MaxAge int
	Domain string
	Secure bool
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	users  *users.Repository
	jwt    *JWTService
	cookie CookieConfig
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(userRepo *users.Repository, jwt *JWTService, cookie CookieConfig, logger *zap.Logger) *Handler {
	return &Handler{users: userRepo, jwt: jwt, cookie: cookie, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.users.GetByIdentifier(c.Request.Context(), req.Identifier)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			response.Unauthorized(c, "invalid credentials")
			return
		}
		response.Internal(c, "failed to look up user")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid credentials")
		return
	}
	if user.Status != models.StatusActive {
		response.Forbidden(c, "account is inactive")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Username, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	if err := h.users.RecordLogin(c.Request.Context(), user.ID); err != nil {
		h.logger.Warn("record login failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	c.SetCookie(CookieName, token, h.cookie.MaxAge, "/", h.cookie.Domain, h.cookie.Secure, true)
	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Logout handles POST /auth/logout by expiring the access token cookie.
func (h *Handler) Logout(c *gin.Context) {
	c.SetCookie(CookieName, "", -1, "/", h.cookie.Domain, h.cookie.Secure, true)
	response.OK(c, gin.H{"message": "logged out"})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), UserID(c))
	if err != nil {
		response.Error(c, err, "failed to load user")
		return
	}
	response.OK(c, user.ToPublic())
}

// ChangePassword handles POST /auth/change-password for the logged-in user.
func (h *Handler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	userID := UserID(c)
	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err, "failed to load user")
		return
	}
	if !utils.CheckPassword(req.CurrentPassword, user.Password) {
		response.Unauthorized(c, "current password is incorrect")
		return
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	if err := h.users.UpdatePassword(c.Request.Context(), userID, hash); err != nil {
		response.Error(c, err, "failed to update password")
		return
	}
	response.OK(c, gin.H{"message": "password updated"})
}
