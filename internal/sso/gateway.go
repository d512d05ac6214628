package sso

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// DefaultAttemptTimeout bounds a single provider round trip.
const DefaultAttemptTimeout = 5 * time.Second

var (
	ErrNoEndpoints = errors.New("sso: no identity endpoints configured")
	// ErrInvalidCredentials is wrapped by every RejectionError.
	ErrInvalidCredentials = errors.New("sso: invalid credentials")
	// ErrAllProvidersUnreachable means no provider returned a verdict.
	ErrAllProvidersUnreachable = errors.New("sso: all identity providers unreachable")
)

// RejectionError carries the rejecting provider's message.
type RejectionError struct {
	Endpoint string
	Message  string
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return ErrInvalidCredentials.Error()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidCredentials.Error(), e.Message)
}

func (e *RejectionError) Unwrap() error {
	return ErrInvalidCredentials
}

// Config is built once at startup and handed to NewGateway.
type Config struct {
	// Endpoints are tried in order.
	Endpoints      []string
	AttemptTimeout time.Duration
}

// Result lists every attempt made for one Authenticate call.
type Result struct {
	Identity domain.Identity
	Attempts []Attempt
}

// Gateway authenticates credentials against interchangeable identity
// providers, failing over only when a provider cannot be reached.
type Gateway struct {
	endpoints []string
	timeout   time.Duration
	client    *resty.Client
	logger    *zap.Logger
}

// NewGateway validates cfg and builds a gateway.
func NewGateway(cfg Config, logger *zap.Logger) (*Gateway, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	timeout := cfg.AttemptTimeout
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	endpoints := append([]string(nil), cfg.Endpoints...)
	return &Gateway{
		endpoints: endpoints,
		timeout:   timeout,
		client:    resty.New().SetTimeout(timeout),
		logger:    logger,
	}, nil
}

// Authenticate tries each endpoint in order. It returns on the first
// provider verdict, accepted or rejected, and moves on only after an
// unreachable attempt.
func (g *Gateway) Authenticate(ctx context.Context, username, password string) (Result, error) {
	var (
		result   Result
		failures []error
	)
	for _, endpoint := range g.endpoints {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}

		attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
		a := attempt(attemptCtx, g.client, endpoint, username, password)
		cancel()
		result.Attempts = append(result.Attempts, a)

		if !a.Final() {
			g.logger.Warn("sso endpoint unreachable", zap.String("endpoint", endpoint), zap.Error(a.Err))
			failures = append(failures, fmt.Errorf("%s: %w", endpoint, a.Err))
			continue
		}
		if a.State == AttemptAccepted {
			result.Identity = a.Identity
			return result, nil
		}
		g.logger.Info("sso rejected credentials", zap.String("endpoint", endpoint), zap.String("username", username))
		return result, &RejectionError{Endpoint: endpoint, Message: a.Message}
	}
	return result, fmt.Errorf("%w: %w", ErrAllProvidersUnreachable, errors.Join(failures...))
}
