package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/eventix/internal/config"
	"github.com/spec-kit/eventix/internal/repository"
	apperrors "github.com/spec-kit/eventix/pkg/util/errorutil"
)

func newAuthService() *AuthService {
	registry := repository.NewRegistry(repository.NewMemoryStore(), nil, nil, nil)
	return NewAuthService(config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 5, BcryptCost: 4}, registry)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService()

	user, token, _, err := svc.RegisterUser(ctx, "Ada", "Ada@Example.com", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, "ada@example.com", user.Email)
	require.NotEqual(t, "secret1", user.PasswordHash)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)

	_, _, _, err = svc.RegisterUser(ctx, "Ada", "ada@example.com ", "secret2")
	de := requireCode(t, err, apperrors.CodeDuplicateEmail)
	require.Equal(t, "User already exists", de.Message)

	logged, token, _, err := svc.LoginUser(ctx, "ADA@example.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, user.ID, logged.ID)
	require.NotEmpty(t, token)

	_, _, _, err = svc.LoginUser(ctx, "ada@example.com", "wrong-password")
	requireCode(t, err, apperrors.CodeUnauthorized)
	_, _, _, err = svc.LoginUser(ctx, "nobody@example.com", "secret1")
	requireCode(t, err, apperrors.CodeUnauthorized)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService()

	_, _, _, err := svc.RegisterUser(ctx, "", "a@example.com", "secret1")
	requireCode(t, err, apperrors.CodeValidation)
	_, _, _, err = svc.RegisterUser(ctx, "A", "not-an-email", "secret1")
	requireCode(t, err, apperrors.CodeValidation)
	_, _, _, err = svc.RegisterUser(ctx, "A", "a@example.com", "abc")
	requireCode(t, err, apperrors.CodeValidation)
}
