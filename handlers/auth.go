package handlers

import (
	"eduquest/services"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Email    string `json:"email"    validate:"omitempty,email"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SetupAuthRoutes mounts the unauthenticated /api/auth endpoints. limit is
// applied to the whole group.
func SetupAuthRoutes(api fiber.Router, auth *services.AuthService, limit fiber.Handler) {
	group := api.Group("/auth", limit)

	group.Post("/register", func(c *fiber.Ctx) error {
		var req registerRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		res, err := auth.Register(c.UserContext(), services.RegisterInput{
			Username: req.Username,
			Password: req.Password,
			Email:    req.Email,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	})

	group.Post("/login", func(c *fiber.Ctx) error {
		var req loginRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		res, err := auth.Login(c.UserContext(), req.Username, req.Password)
		if err != nil {
			return err
		}
		return c.JSON(res)
	})
}
