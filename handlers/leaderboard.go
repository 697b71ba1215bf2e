package handlers

import (
	"eduquest/services"

	"github.com/gofiber/fiber/v2"
)

func SetupLeaderboardRoutes(api fiber.Router, lb *services.LeaderboardService, auth fiber.Handler) {
	api.Get("/leaderboard", auth, func(c *fiber.Ctx) error {
		tf, err := services.ParseTimeframe(c.Query("timeframe"))
		if err != nil {
			return err
		}
		entries, err := lb.Get(c.UserContext(), tf, c.QueryInt("limit", 0))
		if err != nil {
			return err
		}
		return c.JSON(entries)
	})
}
