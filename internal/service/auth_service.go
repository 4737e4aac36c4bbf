package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/spec-kit/eventix/internal/auth"
	"github.com/spec-kit/eventix/internal/config"
	"github.com/spec-kit/eventix/internal/domain"
	"github.com/spec-kit/eventix/internal/repository"
	apperrors "github.com/spec-kit/eventix/pkg/util/errorutil"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	registry   *repository.Registry
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, registry *repository.Registry) *AuthService {
	return &AuthService{
		registry:   registry,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
	}
}

// RegisterUser creates a new account and returns a signed token for it.
func (s *AuthService) RegisterUser(ctx context.Context, name, email, password string) (*domain.User, string, time.Time, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("name, email and password are required", nil)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", time.Time{}, apperrors.NewValidationError("invalid email address", nil)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return nil, "", time.Time{}, apperrors.NewValidationError("password too short",
				map[string]any{"min_length": auth.MinPasswordLength})
		}
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	user, err := s.registry.CreateUser(ctx, name, email, hash)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", time.Time{}, apperrors.NewDuplicateEmail()
		}
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

// LoginUser authenticates a user by email and password.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.registry.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("Invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("Invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
