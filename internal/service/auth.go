package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JuampiHernandez/raave-outfit/internal/apperror"
	"github.com/JuampiHernandez/raave-outfit/internal/auth"
)

// AdminService handles the single-operator login that guards manual uploads.
//
// DEPENDENCIES (injected via NewAdminService):
//   - passwordHash  bcrypt hash of the admin password (ADMIN_PASSWORD_HASH)
//   - tokens        *auth.TokenService → signs the admin JWT
//   - passwords     *auth.PasswordService → bcrypt verification
type AdminService struct {
	passwordHash string
	tokens       *auth.TokenService
	passwords    *auth.PasswordService
	logger       *slog.Logger
}

// NewAdminService creates an AdminService.
func NewAdminService(
	passwordHash string,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		passwordHash: passwordHash,
		tokens:       tokens,
		passwords:    passwords,
		logger:       logger,
	}
}

// LoginResult bundles the issued token and its expiry so the handler can
// set the cookie and respond in one step.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
}

// Login verifies password and issues an admin token.
// A wrong password is apperror.ErrUnauthorized; nothing else is revealed.
func (s *AdminService) Login(ctx context.Context, password string) (*LoginResult, error) {
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	if err := s.passwords.Verify(s.passwordHash, password); err != nil {
		if !errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.ErrorContext(ctx, "admin password hash check failed", slog.String("error", err.Error()))
		} else {
			s.logger.WarnContext(ctx, "admin login rejected")
		}
		return nil, apperror.Unauthorized("invalid credentials")
	}

	token, err := s.tokens.Generate(auth.AdminSubject)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating admin token: %w", err)
	}

	s.logger.InfoContext(ctx, "admin logged in")
	return &LoginResult{
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokens.TTL()),
	}, nil
}
