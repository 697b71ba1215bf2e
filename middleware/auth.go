// middleware/auth.go
package middleware

import (
	"strings"

	"eduquest/logger"

	"github.com/gofiber/fiber/v2"
)

// UserIDKey is the fiber locals key holding the authenticated user id.
const UserIDKey = "user_id"

// TokenParser resolves a bearer token to a user id.
type TokenParser interface {
	ParseToken(raw string) (string, error)
}

// UserContextMiddleware requires an `Authorization: Bearer <jwt>` header and
// attaches the token's user id to the request.
func UserContextMiddleware(tokens TokenParser, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "missing bearer token",
			})
		}

		userID, err := tokens.ParseToken(strings.TrimSpace(raw))
		if err != nil {
			log.Debug("rejected bearer token", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "invalid or expired token",
			})
		}

		c.Locals(UserIDKey, userID)
		return c.Next()
	}
}

// UserID returns the authenticated user id, or "" outside an authenticated route.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDKey).(string)
	return id
}

// RequireOwner rejects requests whose path parameter differs from the caller.
func RequireOwner(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Params(param) != UserID(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "cannot act on another user's data",
			})
		}
		return c.Next()
	}
}
