package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/openbanco/account-server/internal/logger"
)

// RequestLogger logs route, duration and status for every request.
func RequestLogger(l *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				status = fiberErr.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		l.Info("http request completed",
			"method", c.Method(),
			"path", c.Path(),
			"duration_ms", time.Since(start).Milliseconds(),
			"status", status)

		if err != nil {
			l.Error("http request failed",
				"method", c.Method(),
				"path", c.Path(),
				"error", err.Error())
		}

		return err
	}
}
