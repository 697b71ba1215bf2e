// handlers/users.go
package handlers

import (
	"eduquest/middleware"
	"eduquest/models"
	"eduquest/services"

	"github.com/gofiber/fiber/v2"
)

type xpRequest struct {
	Amount *int64 `json:"amount" validate:"required,min=0"`
}

type currencyRequest struct {
	Coins int64 `json:"coins" validate:"min=0"`
	Gems  int64 `json:"gems"  validate:"min=0"`
}

type profileRequest struct {
	SelectedAvatar *string `json:"selectedAvatar" validate:"omitempty,min=1,max=64"`
	SelectedTitle  *string `json:"selectedTitle"  validate:"omitempty,min=1,max=64"`
}

// Value is accepted for compatibility; the check always uses server counters.
type achievementCheckRequest struct {
	Type  models.ConditionType `json:"type"  validate:"required"`
	Value *int64               `json:"value" validate:"omitempty,min=0"`
}

// SetupUserRoutes mounts everything under /api/users/:userId. The caller must
// be the user named in the path.
func SetupUserRoutes(api fiber.Router, svc *services.Services, auth fiber.Handler) {
	users := api.Group("/users/:userId", auth, middleware.RequireOwner("userId"))

	users.Get("/stats", func(c *fiber.Ctx) error {
		view, err := svc.Users.GetStats(c.UserContext(), c.Params("userId"))
		if err != nil {
			return err
		}
		return c.JSON(view)
	})

	users.Post("/xp", func(c *fiber.Ctx) error {
		var req xpRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		st, err := svc.Rewards.GrantXP(c.UserContext(), c.Params("userId"), *req.Amount, "manual")
		if err != nil {
			return err
		}
		return c.JSON(st)
	})

	users.Post("/currency", func(c *fiber.Ctx) error {
		var req currencyRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		st, err := svc.Rewards.GrantCurrency(c.UserContext(), c.Params("userId"), req.Coins, req.Gems)
		if err != nil {
			return err
		}
		return c.JSON(st)
	})

	users.Post("/checkin", func(c *fiber.Ctx) error {
		res, err := svc.Users.CheckIn(c.UserContext(), c.Params("userId"))
		if err != nil {
			return err
		}
		return c.JSON(res)
	})

	users.Put("/profile", func(c *fiber.Ctx) error {
		var req profileRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		st, err := svc.Users.UpdateProfile(c.UserContext(), c.Params("userId"), services.ProfileInput{
			SelectedAvatar: req.SelectedAvatar,
			SelectedTitle:  req.SelectedTitle,
		})
		if err != nil {
			return err
		}
		return c.JSON(st)
	})

	users.Get("/xp/history", func(c *fiber.Ctx) error {
		page, err := svc.Users.XPHistory(c.UserContext(), c.Params("userId"), c.QueryInt("page", 1), c.QueryInt("size", 20))
		if err != nil {
			return err
		}
		return c.JSON(page)
	})

	users.Get("/achievements", func(c *fiber.Ctx) error {
		list, err := svc.Achievements.ListAchievements(c.UserContext(), c.Params("userId"))
		if err != nil {
			return err
		}
		return c.JSON(list)
	})

	users.Post("/achievements/check", func(c *fiber.Ctx) error {
		var req achievementCheckRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		ids, err := svc.Achievements.RecheckAchievements(c.UserContext(), c.Params("userId"), req.Type)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"newlyUnlocked": ids})
	})

	users.Post("/export", func(c *fiber.Ctx) error {
		res, err := svc.Export.Export(c.UserContext(), c.Params("userId"))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	})

	setupUserQuestRoutes(users, svc)
	setupSubjectRoutes(users, svc)
}
