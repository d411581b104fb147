package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/persistence"
)

// HealthHandler exposes liveness and readiness checks.
type HealthHandler struct {
	postgres *persistence.Postgres
	redis    *persistence.Redis
	version  string
}

// NewHealthHandler constructs handler.
func NewHealthHandler(pg *persistence.Postgres, rd *persistence.Redis, version string) *HealthHandler {
	return &HealthHandler{postgres: pg, redis: rd, version: version}
}

// Live GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "version": h.version})
}

// Ready GET /health/ready. Redis is optional infrastructure, so only the
// database gates readiness.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	checks := fiber.Map{"postgres": "ok", "redis": "ok"}
	status := fiber.StatusOK

	if h.postgres == nil || h.postgres.Pool == nil {
		checks["postgres"] = "unavailable"
		status = fiber.StatusServiceUnavailable
	} else if err := h.postgres.Pool.Ping(c.Context()); err != nil {
		checks["postgres"] = err.Error()
		status = fiber.StatusServiceUnavailable
	}

	if err := h.redis.Ping(c.Context()); err != nil {
		checks["redis"] = err.Error()
	}

	return c.Status(status).JSON(fiber.Map{"checks": checks, "version": h.version})
}
