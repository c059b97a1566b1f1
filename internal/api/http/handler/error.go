package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/openbanco/account-server/internal/model"
)

func statusFromError(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalid):
		return fiber.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, model.ErrConflict):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// sendError renders a workflow error. Typed guard errors carry their reason
// verbatim; anything else is an infrastructure failure and stays opaque.
func sendError(c *fiber.Ctx, err error) error {
	status := statusFromError(err)
	if status == fiber.StatusInternalServerError {
		return c.Status(status).JSON(fiber.Map{"message": "internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"message": err.Error()})
}
