package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Categories     *handlers.CategoriesHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Everything under /api/v1 requires an
// authenticated admin; category management is super-admin only.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireRole())

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/stats", cfg.Tickets.Statistics)
	tickets.Get("/count", cfg.Tickets.CountByCategory)
	tickets.Post("/bulk-assign", cfg.Tickets.BulkAssign)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/assign", cfg.Tickets.AssignUser)
	tickets.Post("/:id/status", cfg.Tickets.ChangeStatus)
	tickets.Post("/:id/priority", cfg.Tickets.SetPriority)
	tickets.Post("/:id/due-date", cfg.Tickets.SetDueDate)
	tickets.Post("/:id/actions", cfg.Tickets.PerformAll)
	tickets.Post("/:id/replies", cfg.Tickets.Reply)
	tickets.Get("/:id/replies", cfg.Tickets.ListReplies)

	categories := api.Group("/categories")
	categories.Get("/", cfg.Categories.ListCategories)
	categories.Get("/:id", cfg.Categories.GetCategory)
	categories.Post("/", auth.RequireRole(domain.RoleSuperAdmin), cfg.Categories.CreateCategory)
	categories.Delete("/:id", auth.RequireRole(domain.RoleSuperAdmin), cfg.Categories.DeleteCategory)
}
