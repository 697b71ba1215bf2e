package middleware

import (
	"time"

	"eduquest/logger"

	"github.com/gofiber/fiber/v2"
)

// RequestLogger logs one line per request. Errors from the chain are passed
// to the app's error handler here so the logged status is the one sent.
func RequestLogger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		kv := []interface{}{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", c.Locals("requestid"),
		}
		if uid := UserID(c); uid != "" {
			kv = append(kv, "user_id", uid)
		}
		switch {
		case status >= fiber.StatusInternalServerError:
			log.Error("request", kv...)
		case status >= fiber.StatusBadRequest:
			log.Warn("request", kv...)
		default:
			log.Debug("request", kv...)
		}
		return nil
	}
}
