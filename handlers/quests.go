// handlers/quests.go
package handlers

import (
	"eduquest/middleware"
	"eduquest/models"
	"eduquest/services"

	"github.com/gofiber/fiber/v2"
)

type questProgressRequest struct {
	UserID   string `json:"userId"   validate:"required"`
	Progress *int64 `json:"progress" validate:"required"`
}

type questCompleteRequest struct {
	UserID string `json:"userId" validate:"required"`
}

func setupUserQuestRoutes(users fiber.Router, svc *services.Services) {
	users.Get("/quests", func(c *fiber.Ctx) error {
		quests, err := svc.Quests.ListQuests(c.UserContext(), c.Params("userId"), models.QuestType(c.Query("type")))
		if err != nil {
			return err
		}
		return c.JSON(quests)
	})

	users.Post("/quests/refresh", func(c *fiber.Ctx) error {
		daily, _, err := svc.Quests.RefreshDailyQuests(c.UserContext(), c.Params("userId"), c.QueryBool("force", true))
		if err != nil {
			return err
		}
		return c.JSON(daily)
	})
}

// SetupQuestRoutes mounts /api/quests. The body names the acting user, who
// must be the caller.
func SetupQuestRoutes(api fiber.Router, svc *services.Services, auth fiber.Handler) {
	quests := api.Group("/quests", auth)

	quests.Post("/:questId/progress", func(c *fiber.Ctx) error {
		var req questProgressRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		if req.UserID != middleware.UserID(c) {
			return fiber.NewError(fiber.StatusForbidden, "cannot act on another user's quests")
		}
		q, err := svc.Quests.UpdateProgress(c.UserContext(), req.UserID, c.Params("questId"), *req.Progress)
		if err != nil {
			return err
		}
		return c.JSON(q)
	})

	quests.Post("/:questId/complete", func(c *fiber.Ctx) error {
		var req questCompleteRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		if req.UserID != middleware.UserID(c) {
			return fiber.NewError(fiber.StatusForbidden, "cannot act on another user's quests")
		}
		res, err := svc.Quests.CompleteQuest(c.UserContext(), req.UserID, c.Params("questId"))
		if err != nil {
			return err
		}
		return c.JSON(res)
	})
}
