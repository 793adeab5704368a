package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// SignupRequest payload.
type SignupRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=8"`
	Skills   []string `json:"skills"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PasswordResetRequest payload.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirm payload.
type PasswordResetConfirm struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// CreateUserRequest payload (admin).
type CreateUserRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=8"`
	Role     string   `json:"role" validate:"omitempty,oneof=user moderator admin"`
	Skills   []string `json:"skills"`
}

// UpdateUserRequest payload (admin). The email identifies the account.
type UpdateUserRequest struct {
	Email  string   `json:"email" validate:"required,email"`
	Role   string   `json:"role" validate:"omitempty,oneof=user moderator admin"`
	Skills []string `json:"skills"`
}

// DeleteUserRequest payload (admin).
type DeleteUserRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UserResponse is the account view with credentials stripped.
type UserResponse struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	Skills    []string    `json:"skills"`
	CreatedAt time.Time   `json:"created_at"`
}

// AuthResponse carries the account and its bearer token.
type AuthResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// NewUserResponse maps the domain model.
func NewUserResponse(user *domain.User) UserResponse {
	skills := user.Skills
	if skills == nil {
		skills = []string{}
	}
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Role:      user.Role,
		Skills:    skills,
		CreatedAt: user.CreatedAt,
	}
}
