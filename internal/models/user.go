package models

import (
	"time"
)

// Role is the single system role carried in the JWT.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleGuru          Role = "guru"
	RoleKepalaSekolah Role = "kepala_sekolah"
)

// ValidRole reports whether s names a known role.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleAdmin, RoleGuru, RoleKepalaSekolah:
		return true
	}
	return false
}

// UserStatus is the account status.
type UserStatus string

const (
	StatusActive    UserStatus = "active"
	StatusInactive  UserStatus = "inactive"
	StatusSuspended UserStatus = "suspended"
)

// User represents a system user (teacher, principal, or administrator).
type User struct {
	ID             int64                  `json:"id"`
	Email          string                 `json:"email"`
	Username       string                 `json:"username"`
	Password       string                 `json:"-"`
	Profile        map[string]interface{} `json:"profile"`
	OrganizationID *int64                 `json:"organization_id"`
	Status         UserStatus             `json:"status"`
	Role           Role                   `json:"role"`
	LastLoginAt    *time.Time             `json:"last_login_at"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	DeletedAt      *time.Time             `json:"-"`
}

// FullName returns the display name from the profile, falling back to the username.
func (u *User) FullName() string {
	if u.Profile != nil {
		if name, ok := u.Profile["name"].(string); ok && name != "" {
			return name
		}
	}
	return u.Username
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID             int64                  `json:"id"`
	Email          string                 `json:"email"`
	Username       string                 `json:"username"`
	Profile        map[string]interface{} `json:"profile"`
	OrganizationID *int64                 `json:"organization_id"`
	Status         UserStatus             `json:"status"`
	Role           Role                   `json:"role"`
	CreatedAt      time.Time              `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:             u.ID,
		Email:          u.Email,
		Username:       u.Username,
		Profile:        u.Profile,
		OrganizationID: u.OrganizationID,
		Status:         u.Status,
		Role:           u.Role,
		CreatedAt:      u.CreatedAt,
	}
}
