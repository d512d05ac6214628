package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/persistence"
)

// Pinger is a backend the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DependencyCheck names a backend. Optional backends are reported but never
// fail readiness.
type DependencyCheck struct {
	Name     string
	Pinger   Pinger
	Optional bool
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	checks      []DependencyCheck
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, checks ...DependencyCheck) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, checks: checks}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	for _, check := range h.checks {
		err := check.Pinger.Ping(ctx)
		switch {
		case err == nil:
			depStatus[check.Name] = "ok"
		case errors.Is(err, persistence.ErrNotConfigured):
			depStatus[check.Name] = "disabled"
		default:
			depStatus[check.Name] = err.Error()
			if !check.Optional {
				ready = false
			}
		}
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}
