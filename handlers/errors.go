// handlers/errors.go
package handlers

import (
	"errors"

	"eduquest/logger"
	"eduquest/models"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps a service error onto an HTTP status.
func StatusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, models.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrAlreadyExists), errors.Is(err, models.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, models.ErrUnavailable):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders every error as `{"message": ...}`. Validation errors
// also carry the offending field. Internal errors are logged and hidden.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := StatusFor(err)
		body := fiber.Map{"message": err.Error()}

		var ve *models.ValidationError
		if errors.As(err, &ve) {
			body["field"] = ve.Field
		}
		if status == fiber.StatusInternalServerError {
			log.Error("unhandled error",
				"method", c.Method(),
				"path", c.Path(),
				"error", err,
			)
			body["message"] = "internal server error"
		}
		return c.Status(status).JSON(body)
	}
}
