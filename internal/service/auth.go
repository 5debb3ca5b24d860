package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/templui/filesmanager/internal/model"
	"github.com/templui/filesmanager/internal/repository"
	"github.com/templui/filesmanager/internal/session"
	"github.com/templui/filesmanager/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

// AuthService exchanges credentials for session tokens and resolves them back.
type AuthService struct {
	userRepository repository.UserRepository
	sessions       session.Store
}

func NewAuthService(userRepository repository.UserRepository, sessions session.Store) *AuthService {
	return &AuthService{
		userRepository: userRepository,
		sessions:       sessions,
	}
}

// Connect checks email/password and opens a session. Unknown users and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Connect(ctx context.Context, email, password string) (string, error) {
	email, err := validation.NormalizeEmail(email)
	if err != nil || password == "" {
		return "", ErrUnauthorized
	}

	user, err := s.userRepository.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrUnauthorized
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	err = s.ComparePassword(password, user.PasswordHash)
	if err != nil {
		return "", ErrUnauthorized
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	return token, nil
}

// Resolve returns the owner behind a token.
func (s *AuthService) Resolve(ctx context.Context, token string) (model.OwnerID, error) {
	if token == "" {
		return "", ErrUnauthorized
	}

	owner, ok, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return "", fmt.Errorf("failed to resolve session: %w", err)
	}
	if !ok {
		return "", ErrUnauthorized
	}

	return owner, nil
}

// Disconnect ends the session behind token.
func (s *AuthService) Disconnect(ctx context.Context, token string) error {
	_, err := s.Resolve(ctx, token)
	if err != nil {
		return err
	}

	err = s.sessions.Delete(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
