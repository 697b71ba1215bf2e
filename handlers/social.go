// handlers/social.go
package handlers

import (
	"time"

	"eduquest/middleware"
	"eduquest/models"
	"eduquest/services"

	"github.com/gofiber/fiber/v2"
)

type friendRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type groupRequest struct {
	Name        string `json:"name"        validate:"required,max=128"`
	Description string `json:"description" validate:"max=512"`
	IsPrivate   bool   `json:"isPrivate"`
}

type messageRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

type groupSessionRequest struct {
	Title           string    `json:"title"           validate:"required,max=128"`
	StartTime       time.Time `json:"startTime"       validate:"required"`
	DurationMinutes int64     `json:"durationMinutes" validate:"required,min=1,max=480"`
}

type challengeRequest struct {
	ChallengedID string `json:"challengedId" validate:"required"`
	Type         string `json:"type"         validate:"required,max=32"`
	Target       int64  `json:"target"       validate:"required,min=1"`
}

type challengeProgressRequest struct {
	Role     models.ChallengeRole `json:"role"     validate:"required,oneof=creator challenged"`
	Progress *int64               `json:"progress" validate:"required,min=0"`
}

// parseSince reads the `since` cursor as RFC 3339. Missing means everything.
func parseSince(c *fiber.Ctx) (time.Time, error) {
	raw := c.Query("since")
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, models.NewValidationError("since", "must be an RFC 3339 timestamp")
	}
	return t, nil
}

// SetupSocialRoutes mounts /api/social. The message stream authenticates from
// the query string, so it is registered ahead of the bearer-token group.
func SetupSocialRoutes(api fiber.Router, svc *services.Services, auth, streamAuth fiber.Handler, streamInterval time.Duration) {
	api.Get("/social/groups/:groupId/messages/stream", streamAuth, streamGroupMessages(svc.Social, streamInterval))

	social := api.Group("/social", auth)

	// --- users ---
	social.Get("/users/search", func(c *fiber.Ctx) error {
		found, err := svc.Users.SearchUsers(c.UserContext(), c.Query("q"), c.QueryInt("limit", 20))
		if err != nil {
			return err
		}
		return c.JSON(found)
	})

	social.Get("/users/:userId", func(c *fiber.Ctx) error {
		p, err := svc.Users.GetProfile(c.UserContext(), c.Params("userId"))
		if err != nil {
			return err
		}
		return c.JSON(p)
	})

	// --- friendships ---
	social.Get("/friends", func(c *fiber.Ctx) error {
		list, err := svc.Social.ListFriendships(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return err
		}
		return c.JSON(list)
	})

	social.Post("/friends", func(c *fiber.Ctx) error {
		var req friendRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		f, err := svc.Social.SendFriendRequest(c.UserContext(), middleware.UserID(c), req.UserID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(f)
	})

	social.Post("/friends/:friendshipId/accept", func(c *fiber.Ctx) error {
		f, err := svc.Social.AcceptFriendRequest(c.UserContext(), middleware.UserID(c), c.Params("friendshipId"))
		if err != nil {
			return err
		}
		return c.JSON(f)
	})

	social.Delete("/friends/:friendshipId", func(c *fiber.Ctx) error {
		if err := svc.Social.RemoveFriendship(c.UserContext(), middleware.UserID(c), c.Params("friendshipId")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// --- groups ---
	social.Get("/groups", func(c *fiber.Ctx) error {
		var (
			list []models.StudyGroup
			err  error
		)
		if c.Query("scope") == "public" {
			list, err = svc.Social.ListPublicGroups(c.UserContext(), c.QueryInt("limit", 20))
		} else {
			list, err = svc.Social.ListMyGroups(c.UserContext(), middleware.UserID(c))
		}
		if err != nil {
			return err
		}
		return c.JSON(list)
	})

	social.Post("/groups", func(c *fiber.Ctx) error {
		var req groupRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		g, err := svc.Social.CreateGroup(c.UserContext(), middleware.UserID(c), services.GroupInput{
			Name:        req.Name,
			Description: req.Description,
			IsPrivate:   req.IsPrivate,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(g)
	})

	social.Get("/groups/:groupId", func(c *fiber.Ctx) error {
		g, err := svc.Social.GetGroup(c.UserContext(), middleware.UserID(c), c.Params("groupId"))
		if err != nil {
			return err
		}
		return c.JSON(g)
	})

	social.Post("/groups/:groupId/join", func(c *fiber.Ctx) error {
		m, err := svc.Social.JoinGroup(c.UserContext(), middleware.UserID(c), c.Params("groupId"))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	})

	social.Post("/groups/:groupId/leave", func(c *fiber.Ctx) error {
		if err := svc.Social.LeaveGroup(c.UserContext(), middleware.UserID(c), c.Params("groupId")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	social.Get("/groups/:groupId/members", func(c *fiber.Ctx) error {
		list, err := svc.Social.ListMembers(c.UserContext(), middleware.UserID(c), c.Params("groupId"))
		if err != nil {
			return err
		}
		return c.JSON(list)
	})

	// --- messages ---
	social.Get("/groups/:groupId/messages", func(c *fiber.Ctx) error {
		since, err := parseSince(c)
		if err != nil {
			return err
		}
		list, err := svc.Social.ListMessages(c.UserContext(), middleware.UserID(c), c.Params("groupId"), since, c.QueryInt("limit", 50))
		if err != nil {
			return err
		}
		return c.JSON(list)
	})

	social.Post("/groups/:groupId/messages", func(c *fiber.Ctx) error {
		var req messageRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		msg, err := svc.Social.PostMessage(c.UserContext(), middleware.UserID(c), c.Params("groupId"), req.Content)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(msg)
	})

	// --- group study sessions ---
	social.Get("/groups/:groupId/sessions", func(c *fiber.Ctx) error {
		list, err := svc.Social.ListSessions(c.UserContext(), middleware.UserID(c), c.Params("groupId"))
		if err != nil {
			return err
		}
		return c.JSON(list)
	})

	social.Post("/groups/:groupId/sessions", func(c *fiber.Ctx) error {
		var req groupSessionRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		gs, err := svc.Social.ScheduleSession(c.UserContext(), middleware.UserID(c), c.Params("groupId"), services.GroupSessionInput{
			Title:           req.Title,
			StartTime:       req.StartTime,
			DurationMinutes: req.DurationMinutes,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(gs)
	})

	social.Post("/groups/:groupId/sessions/:sessionId/join", func(c *fiber.Ctx) error {
		gs, err := svc.Social.JoinSession(c.UserContext(), middleware.UserID(c), c.Params("groupId"), c.Params("sessionId"))
		if err != nil {
			return err
		}
		return c.JSON(gs)
	})

	// --- challenges ---
	social.Get("/challenges", func(c *fiber.Ctx) error {
		list, err := svc.Social.ListChallenges(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return err
		}
		return c.JSON(list)
	})

	social.Post("/challenges", func(c *fiber.Ctx) error {
		var req challengeRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		ch, err := svc.Social.CreateChallenge(c.UserContext(), middleware.UserID(c), services.ChallengeInput{
			ChallengedID: req.ChallengedID,
			Type:         req.Type,
			Target:       req.Target,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ch)
	})

	social.Post("/challenges/:challengeId/progress", func(c *fiber.Ctx) error {
		var req challengeProgressRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		ch, err := svc.Social.UpdateChallengeProgress(c.UserContext(), middleware.UserID(c), c.Params("challengeId"), req.Role, *req.Progress)
		if err != nil {
			return err
		}
		return c.JSON(ch)
	})

	social.Post("/challenges/:challengeId/cancel", func(c *fiber.Ctx) error {
		ch, err := svc.Social.CancelChallenge(c.UserContext(), middleware.UserID(c), c.Params("challengeId"))
		if err != nil {
			return err
		}
		return c.JSON(ch)
	})
}
