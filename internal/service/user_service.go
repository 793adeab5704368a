package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// UserService covers admin-side account management.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, bcryptCost int) *UserService {
	return &UserService{users: users, bcryptCost: bcryptCost}
}

// ListUsers returns all accounts.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	return users, apperrors.MapError(err)
}

// CreateUser provisions an account with an explicit role.
func (s *UserService) CreateUser(ctx context.Context, email, password string, role domain.Role, skills []string) (*domain.User, error) {
	if role == "" {
		role = domain.RoleUser
	}
	if !domain.ValidRole(role) {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("user with this email already exists", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Skills:       skills,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// UpdateUser changes role and skills for the account with the given email.
// An empty skills list keeps the stored one.
func (s *UserService) UpdateUser(ctx context.Context, email string, role domain.Role, skills []string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}

	if role != "" {
		if !domain.ValidRole(role) {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
		}
		user.Role = role
	}
	if len(skills) > 0 {
		user.Skills = skills
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// DeleteUser removes the account with the given email. Self-deletion and
// deletion of any admin account are both rejected.
func (s *UserService) DeleteUser(ctx context.Context, actor *domain.User, email string) error {
	target, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return apperrors.MapError(err)
	}
	if target.ID == actor.ID {
		return apperrors.NewValidationError("cannot delete your own account", nil)
	}
	if target.Role == domain.RoleAdmin {
		return apperrors.NewValidationError("cannot delete admin accounts", nil)
	}
	return apperrors.MapError(s.users.Delete(ctx, target.ID))
}
