package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/sso"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// IdentityProvider verifies credentials upstream.
type IdentityProvider interface {
	Authenticate(ctx context.Context, username, password string) (sso.Result, error)
}

// LoginLimiter throttles login attempts per key.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// AuthService turns upstream SSO verdicts into dashboard sessions.
type AuthService struct {
	provider IdentityProvider
	tokens   *auth.TokenManager
	limiter  LoginLimiter
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Provider IdentityProvider
	Tokens   *auth.TokenManager
	Limiter  LoginLimiter
	Logger   *zap.Logger
	Metrics  *observability.Metrics
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		provider: deps.Provider,
		tokens:   deps.Tokens,
		limiter:  deps.Limiter,
		logger:   logger,
		metrics:  deps.Metrics,
	}
}

// Authenticate verifies the credentials against the identity providers and
// issues a signed session.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*domain.Session, error) {
	username = strings.TrimSpace(username)
	var missing []string
	if username == "" {
		missing = append(missing, "username")
	}
	if password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewMissingField(missing...)
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, strings.ToLower(username))
		if err != nil {
			// redis outage must not lock everybody out
			s.logger.Warn("login limiter unavailable", zap.Error(err))
		} else if !allowed {
			return nil, apperrors.NewTooManyRequests("too many login attempts, try again later")
		}
	}

	result, err := s.provider.Authenticate(ctx, username, password)
	for _, a := range result.Attempts {
		s.metrics.RecordSSOAttempt(a.State.String())
	}
	if err != nil {
		var rejection *sso.RejectionError
		switch {
		case errors.As(err, &rejection):
			return nil, apperrors.NewInvalidCredentials(rejection.Message)
		case errors.Is(err, sso.ErrInvalidCredentials):
			return nil, apperrors.NewInvalidCredentials("")
		case errors.Is(err, sso.ErrAllProvidersUnreachable):
			s.logger.Error("no identity provider reachable", zap.Int("attempts", len(result.Attempts)), zap.Error(err))
			return nil, apperrors.NewProvidersUnreachable(err)
		default:
			return nil, apperrors.NewInternalError(err)
		}
	}

	token, expiresAt, err := s.tokens.GenerateToken(result.Identity)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("dashboard login", zap.String("subject", result.Identity.SubjectID), zap.Int("attempts", len(result.Attempts)))
	return &domain.Session{Token: token, ExpiresAt: expiresAt, Identity: result.Identity}, nil
}
