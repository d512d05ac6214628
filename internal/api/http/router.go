package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	tickets := app.Group("/api/tickets", cfg.AuthMiddleware.Handle)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/stats", cfg.Tickets.Stats)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Put("/:id/pic", cfg.Tickets.AssignPIC)
	tickets.Post("/:id/replies", cfg.Tickets.AddReply)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)
}

// NewApp builds the fiber application with middlewares and routes.
func NewApp(name string, mw MiddlewareConfig, routes RouteConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               name,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, mw)
	RegisterRoutes(app, routes)
	return app
}
