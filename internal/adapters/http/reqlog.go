package http

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/platekit/internal/pkg/logging"
)

// RequestIDLogMiddleware stores a request-scoped logger derived from base,
// tagged with the Fiber request ID, in the user context. Handlers read it
// with LoggerFromCtx and FilterService.Run logs through it.
func RequestIDLogMiddleware(base *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ridStr, _ := c.Locals("requestid").(string)
		if ridStr == "" {
			return c.Next()
		}
		c.SetUserContext(logging.WithContext(c.UserContext(), base.With("request_id", ridStr)))
		return c.Next()
	}
}

// LoggerFromCtx extracts the per-request slog.Logger from a context.
// Falls back to the default logger if none is set.
func LoggerFromCtx(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, slog.Default())
}
