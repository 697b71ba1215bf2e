// middleware/sse_auth.go
package middleware

import (
	"strings"

	"eduquest/logger"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware authenticates EventSource requests, which cannot send
// headers, from the `token` query parameter. A bearer header still works.
//
// Usage:
//
//	app.Get("/api/social/groups/:groupId/messages/stream", middleware.SSEAuthMiddleware(auth, log), stream)
func SSEAuthMiddleware(tokens TokenParser, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Query("token"))
		if raw == "" {
			raw, _ = strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
			raw = strings.TrimSpace(raw)
		}
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "missing token in query",
			})
		}

		userID, err := tokens.ParseToken(raw)
		if err != nil {
			log.Debug("sse token rejected", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "invalid or expired token",
			})
		}

		c.Locals(UserIDKey, userID)
		return c.Next()
	}
}
