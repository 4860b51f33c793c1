package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	apperrors "taskforge/internal/errors"
	"taskforge/internal/model"
	"taskforge/internal/query"
	"taskforge/internal/repository"
	"taskforge/internal/validate"
)

// UserUpdateInput carries partial updates; nil fields are left untouched.
// Role and IsActive must already be stripped for non-admin callers before
// the service sees the input.
type UserUpdateInput struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	IsActive  *bool
	Role      *string
}

// UserService exposes user management operations.
type UserService interface {
	List(ctx context.Context, p query.Pagination, sortBy, sortOrder string) ([]model.User, *query.Meta, error)
	Get(ctx context.Context, userID uint) (*model.User, error)
	Update(ctx context.Context, userID uint, in UserUpdateInput) (*model.User, error)
	Delete(ctx context.Context, userID uint) error
	Activate(ctx context.Context, userID uint) (*model.User, error)
	Deactivate(ctx context.Context, userID uint) (*model.User, error)
}

type userService struct {
	userRepo repository.UserRepository
	log      *logrus.Logger
}

// NewUserService builds a UserService.
func NewUserService(userRepo repository.UserRepository, log *logrus.Logger) UserService {
	return &userService{userRepo: userRepo, log: log}
}

func (s *userService) List(ctx context.Context, p query.Pagination, sortBy, sortOrder string) ([]model.User, *query.Meta, error) {
	users, meta, err := s.userRepo.List(ctx, p, sortBy, sortOrder)
	if err != nil {
		s.log.WithError(err).Error("failed to list users")
		return nil, nil, fmt.Errorf("list users: %w", err)
	}
	return users, meta, nil
}

func (s *userService) Get(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *userService) Update(ctx context.Context, userID uint, in UserUpdateInput) (*model.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if msg := validate.Email(email); msg != "" {
			return nil, apperrors.NewValidation(msg)
		}
		existing, err := s.userRepo.FindByEmail(ctx, email)
		if err == nil && existing.ID != userID {
			return nil, apperrors.ErrEmailTaken
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("check email: %w", err)
		}
		user.Email = email
	}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if msg := validate.Username(username); msg != "" {
			return nil, apperrors.NewValidation(msg)
		}
		existing, err := s.userRepo.FindByUsername(ctx, username)
		if err == nil && existing.ID != userID {
			return nil, apperrors.ErrUsernameTaken
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("check username: %w", err)
		}
		user.Username = username
	}

	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if in.Role != nil {
		role := model.Role(*in.Role)
		if !role.Valid() {
			return nil, apperrors.NewValidation("invalid role")
		}
		user.Role = role
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrEmailTaken
		}
		s.log.WithError(err).Error("failed to update user")
		return nil, fmt.Errorf("update user: %w", err)
	}

	return user, nil
}

// Delete removes a user and, via cascade, their tasks and refresh tokens.
// Admin accounts are immune regardless of the caller.
func (s *userService) Delete(ctx context.Context, userID uint) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}

	if user.IsAdmin() {
		return apperrors.ErrAdminImmutable
	}

	if err := s.userRepo.Delete(ctx, user); err != nil {
		s.log.WithError(err).Error("failed to delete user")
		return fmt.Errorf("delete user: %w", err)
	}

	return nil
}

func (s *userService) Activate(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.IsActive = true
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.log.WithError(err).Error("failed to activate user")
		return nil, fmt.Errorf("activate user: %w", err)
	}

	return user, nil
}

// Deactivate disables an account. Admin accounts are immune.
func (s *userService) Deactivate(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.IsAdmin() {
		return nil, apperrors.ErrAdminImmutable
	}

	user.IsActive = false
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.log.WithError(err).Error("failed to deactivate user")
		return nil, fmt.Errorf("deactivate user: %w", err)
	}

	return user, nil
}
