package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/templui/filesmanager/internal/model"
	"github.com/templui/filesmanager/internal/repository"
	"github.com/templui/filesmanager/internal/validation"
)

type UserService struct {
	userRepository repository.UserRepository
	authService    *AuthService
}

func NewUserService(userRepository repository.UserRepository, authService *AuthService) *UserService {
	return &UserService{
		userRepository: userRepository,
		authService:    authService,
	}
}

// Register creates an account. Emails are stored trimmed and lowercased.
func (s *UserService) Register(ctx context.Context, email, password string) (*model.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, invalid("email", "Missing email")
	}
	if password == "" {
		return nil, invalid("password", "Missing password")
	}

	email, err := validation.NormalizeEmail(email)
	if err != nil {
		return nil, invalid("email", err.Error())
	}
	err = validation.ValidatePassword(password)
	if err != nil {
		return nil, invalid("password", err.Error())
	}

	_, err = s.userRepository.ByEmail(ctx, email)
	if err == nil {
		return nil, invalid("email", "Already exist")
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	hash, err := s.authService.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{Email: email, PasswordHash: hash}
	err = s.userRepository.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		// lost a race with a concurrent registration
		return nil, invalid("email", "Already exist")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// ByID returns the account behind an owner id. A session whose user is gone
// is treated as unauthenticated.
func (s *UserService) ByID(ctx context.Context, id model.OwnerID) (*model.User, error) {
	user, err := s.userRepository.ByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
