package middleware

import (
	"github.com/VersatileFusion/sangshekkan/types"
	"github.com/VersatileFusion/sangshekkan/utils"

	"github.com/gofiber/fiber/v2"
)

// AuditSink accepts sanitized request records. logger.AsyncLogger implements it.
type AuditSink interface {
	Log(entry types.LogEntry) bool
}

// Audit records every request after the handler chain has written its response.
// Handler errors are rendered here so the entry carries the final status.
func Audit(sink AuditSink) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		sink.Log(utils.CreateSanitizedLogEntry(c))
		return nil
	}
}
