package handlers

import (
	"time"

	"eduquest/config"
	"eduquest/logger"
	"eduquest/middleware"
	"eduquest/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

type AppOptions struct {
	Server         config.ServerConfig
	ServiceToken   string
	StreamInterval time.Duration
}

// NewApp builds the fiber app with every route mounted under /api.
func NewApp(opts AppOptions, svc *services.Services, db Pinger, log *logger.Logger) *fiber.App {
	bodyLimit := opts.Server.BodyLimitMB
	if bodyLimit <= 0 {
		bodyLimit = 4
	}
	app := fiber.New(fiber.Config{
		AppName:               "eduquest",
		BodyLimit:             bodyLimit * 1024 * 1024,
		ErrorHandler:          ErrorHandler(log),
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: opts.Server.AllowedOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Service-Token",
		MaxAge:       86400,
	}))

	authRate := opts.Server.AuthRateLimit
	if authRate <= 0 {
		authRate = 20
	}
	authLimiter := limiter.New(limiter.Config{
		Max:        authRate,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "too many authentication attempts, try again later",
			})
		},
	})

	userAuth := middleware.UserContextMiddleware(svc.Auth, log)
	streamAuth := middleware.SSEAuthMiddleware(svc.Auth, log)

	api := app.Group("/api")
	SetupHealthRoutes(api, db)
	SetupAuthRoutes(api, svc.Auth, authLimiter)
	SetupAdminRoutes(api, svc, middleware.ServiceTokenMiddleware(opts.ServiceToken, log))
	SetupUserRoutes(api, svc, userAuth)
	SetupQuestRoutes(api, svc, userAuth)
	SetupLeaderboardRoutes(api, svc.Leaderboard, userAuth)
	SetupSocialRoutes(api, svc, userAuth, streamAuth, opts.StreamInterval)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "route not found")
	})
	return app
}
