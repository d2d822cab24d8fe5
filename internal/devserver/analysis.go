package devserver

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/analysis"
)

func (s *server) registerAnalysisRoutes(r fiber.Router) {
	r.Post("/analysis/breakdown", s.requireAuth, s.breakdown)
}

func (s *server) breakdown(c *fiber.Ctx) error {
	var req analysis.Request
	if err := c.BodyParser(&req); err != nil {
		return errBadBody
	}
	if strings.TrimSpace(req.Question) == "" {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "question is required")
	}
	for _, r := range req.Recipients {
		if r.ID == "" {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "every recipient needs an id")
		}
	}
	breakdowns, err := s.analysis.Analyze(c.UserContext(), req.Question, req.Recipients)
	if err != nil {
		return err
	}
	return c.JSON(analysis.Response{Breakdowns: breakdowns})
}
