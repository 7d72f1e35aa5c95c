package server

import (
	"github.com/VersatileFusion/sangshekkan/types"

	"github.com/gofiber/fiber/v2"
)

// Health reports liveness.
func Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(types.HealthResponse{Status: "ok"})
}
