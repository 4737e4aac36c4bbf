package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/eventix/internal/api/http/handlers"
	"github.com/spec-kit/eventix/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	Idempotency    *IdempotencyStore
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	idempotent := func(c *fiber.Ctx) error { return c.Next() }
	if cfg.Idempotency != nil {
		idempotent = cfg.Idempotency.Middleware()
	}

	app.Get("/available-tickets", cfg.Tickets.AvailableTickets)
	app.Get("/marketplace", cfg.Tickets.Marketplace)
	app.Get("/my-tickets", cfg.Tickets.MyTickets)
	app.Get("/tickets/:mint/history", cfg.Tickets.History)
	app.Post("/buy-ticket", idempotent, cfg.Tickets.BuyTicket)
	app.Post("/list-ticket", idempotent, cfg.Tickets.ListTicket)
	app.Post("/buy-from-marketplace", idempotent, cfg.Tickets.BuyFromMarketplace)

	api := app.Group("/api")
	api.Post("/register", cfg.Users.Register)
	api.Post("/login", cfg.Users.Login)
	api.Get("/me", cfg.AuthMiddleware.Handle, auth.RequireUser(), cfg.Users.Me)
}
