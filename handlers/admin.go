package handlers

import (
	"context"
	"time"

	"eduquest/services"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SetupAdminRoutes mounts internal maintenance endpoints behind guard.
func SetupAdminRoutes(api fiber.Router, svc *services.Services, guard fiber.Handler) {
	admin := api.Group("/admin", guard)

	admin.Post("/quests/refresh-all", func(c *fiber.Ctx) error {
		n, err := svc.Quests.RefreshAll(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"refreshed": n})
	})

	admin.Post("/challenges/sweep", func(c *fiber.Ctx) error {
		n, err := svc.Social.SweepChallenges(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"closed": n})
	})
}

func SetupHealthRoutes(api fiber.Router, db Pinger) {
	api.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":  "unavailable",
				"message": "storage is unreachable",
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
