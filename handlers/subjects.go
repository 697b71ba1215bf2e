package handlers

import (
	"eduquest/services"

	"github.com/gofiber/fiber/v2"
)

type subjectRequest struct {
	Name  *string `json:"name"  validate:"omitempty,min=1,max=64"`
	Color *string `json:"color" validate:"omitempty,max=32"`
	Icon  *string `json:"icon"  validate:"omitempty,max=64"`
}

func (r subjectRequest) input() services.SubjectInput {
	return services.SubjectInput{Name: r.Name, Color: r.Color, Icon: r.Icon}
}

type studyRequest struct {
	Minutes int64 `json:"minutes" validate:"required,min=1,max=1440"`
}

type noteRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

func setupSubjectRoutes(users fiber.Router, svc *services.Services) {
	users.Get("/subjects", func(c *fiber.Ctx) error {
		list, err := svc.Subjects.ListSubjects(c.UserContext(), c.Params("userId"))
		if err != nil {
			return err
		}
		return c.JSON(list)
	})

	users.Post("/subjects", func(c *fiber.Ctx) error {
		var req subjectRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		sub, err := svc.Subjects.CreateSubject(c.UserContext(), c.Params("userId"), req.input())
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(sub)
	})

	users.Get("/subjects/:subjectId", func(c *fiber.Ctx) error {
		sub, err := svc.Subjects.GetSubject(c.UserContext(), c.Params("userId"), c.Params("subjectId"))
		if err != nil {
			return err
		}
		return c.JSON(sub)
	})

	users.Put("/subjects/:subjectId", func(c *fiber.Ctx) error {
		var req subjectRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		sub, err := svc.Subjects.UpdateSubject(c.UserContext(), c.Params("userId"), c.Params("subjectId"), req.input())
		if err != nil {
			return err
		}
		return c.JSON(sub)
	})

	users.Delete("/subjects/:subjectId", func(c *fiber.Ctx) error {
		if err := svc.Subjects.DeleteSubject(c.UserContext(), c.Params("userId"), c.Params("subjectId")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	users.Post("/subjects/:subjectId/study", func(c *fiber.Ctx) error {
		var req studyRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		res, err := svc.Subjects.LogStudySession(c.UserContext(), c.Params("userId"), c.Params("subjectId"), req.Minutes)
		if err != nil {
			return err
		}
		return c.JSON(res)
	})

	users.Post("/subjects/:subjectId/notes", func(c *fiber.Ctx) error {
		var req noteRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		sub, err := svc.Subjects.AddNote(c.UserContext(), c.Params("userId"), c.Params("subjectId"), req.Content)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(sub)
	})

	users.Put("/subjects/:subjectId/notes/:noteId", func(c *fiber.Ctx) error {
		var req noteRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		sub, err := svc.Subjects.UpdateNote(c.UserContext(), c.Params("userId"), c.Params("subjectId"), c.Params("noteId"), req.Content)
		if err != nil {
			return err
		}
		return c.JSON(sub)
	})

	users.Delete("/subjects/:subjectId/notes/:noteId", func(c *fiber.Ctx) error {
		sub, err := svc.Subjects.DeleteNote(c.UserContext(), c.Params("userId"), c.Params("subjectId"), c.Params("noteId"))
		if err != nil {
			return err
		}
		return c.JSON(sub)
	})

	users.Get("/study-sessions", func(c *fiber.Ctx) error {
		list, err := svc.Subjects.ListStudySessions(c.UserContext(), c.Params("userId"), c.QueryInt("limit", 50))
		if err != nil {
			return err
		}
		return c.JSON(list)
	})
}
