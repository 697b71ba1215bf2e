// middleware/gateway.go
package middleware

import (
	"crypto/subtle"
	"strings"

	"eduquest/logger"

	"github.com/gofiber/fiber/v2"
)

// ServiceTokenMiddleware guards internal routes with a static shared token,
// sent either as a bearer token or in X-Service-Token. An empty expected
// token disables the routes entirely.
func ServiceTokenMiddleware(expected string, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if expected == "" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"message": "service token is not configured",
			})
		}

		token := c.Get("X-Service-Token")
		if token == "" {
			token = strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		}
		if token == "" {
			log.Warn("service token missing", "path", c.Path(), "ip", c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "service token missing",
			})
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			log.Warn("invalid service token", "path", c.Path(), "ip", c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "invalid service token",
			})
		}
		return c.Next()
	}
}
