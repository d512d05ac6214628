package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// Authenticator issues dashboard sessions.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*domain.Session, error)
}

// AuthHandler exposes the login endpoints.
type AuthHandler struct {
	auth Authenticator
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authenticator Authenticator) *AuthHandler {
	return &AuthHandler{auth: authenticator}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	session, err := h.auth.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      userResponse(session.Identity),
	}})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": userResponse(principal.Identity)})
}

func userResponse(identity domain.Identity) dto.UserResponse {
	return dto.UserResponse{ID: identity.SubjectID, Name: identity.DisplayName}
}
