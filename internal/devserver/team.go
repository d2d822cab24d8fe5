package devserver

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/platform/rbac"
	teamdomain "github.com/hariseldon84/singlebrief-full-sub000/internal/teammgmt/domain"
)

func (s *server) registerTeamRoutes(r fiber.Router) {
	h := r.Group("/team-management", s.requireAuth)
	h.Get("/members", s.listMembers)
	h.Post("/members", s.createMember)
	h.Get("/members/:id", s.getMember)
	h.Put("/members/:id", s.updateMember)
	h.Get("/clerk-invitations", s.listInvitations)
	h.Post("/clerk-invitations", s.inviteMember)
	h.Post("/clerk-invitations/:id/accept", s.acceptInvitation)
}

func (s *server) listMembers(c *fiber.Ctx) error {
	orgID, _, err := rbac.RequireOrgMember(c.UserContext(), s.identity)
	if err != nil {
		return err
	}
	members := s.directory.List(c.UserContext(), orgID)
	return c.JSON(teamdomain.MemberList{Members: members, Total: len(members)})
}

func (s *server) getMember(c *fiber.Ctx) error {
	orgID, _, err := rbac.RequireOrgMember(c.UserContext(), s.identity)
	if err != nil {
		return err
	}
	m, err := s.directory.Get(c.UserContext(), orgID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(m)
}

func (s *server) createMember(c *fiber.Ctx) error {
	orgID, _, err := rbac.RequireOrgAdmin(c.UserContext(), s.identity)
	if err != nil {
		return err
	}
	var in teamdomain.MemberInput
	if err := c.BodyParser(&in); err != nil {
		return errBadBody
	}
	m, err := s.directory.Create(c.UserContext(), orgID, in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

func (s *server) updateMember(c *fiber.Ctx) error {
	orgID, _, err := rbac.RequireOrgAdmin(c.UserContext(), s.identity)
	if err != nil {
		return err
	}
	var u teamdomain.MemberUpdate
	if err := c.BodyParser(&u); err != nil {
		return errBadBody
	}
	m, err := s.directory.Update(c.UserContext(), orgID, c.Params("id"), u)
	if err != nil {
		return err
	}
	return c.JSON(m)
}

func (s *server) listInvitations(c *fiber.Ctx) error {
	orgID, _, err := rbac.RequireOrgMember(c.UserContext(), s.identity)
	if err != nil {
		return err
	}
	invitations := s.directory.PendingInvitations(c.UserContext(), orgID)
	if invitations == nil {
		invitations = []teamdomain.Invitation{}
	}
	return c.JSON(fiber.Map{"invitations": invitations})
}

func (s *server) inviteMember(c *fiber.Ctx) error {
	orgID, _, err := rbac.RequireOrgAdmin(c.UserContext(), s.identity)
	if err != nil {
		return err
	}
	var req teamdomain.InvitationRequest
	if err := c.BodyParser(&req); err != nil {
		return errBadBody
	}
	inv, err := s.directory.Invite(c.UserContext(), orgID, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(inv)
}

func (s *server) acceptInvitation(c *fiber.Ctx) error {
	orgID, _, err := rbac.RequireOrgAdmin(c.UserContext(), s.identity)
	if err != nil {
		return err
	}
	m, err := s.directory.Accept(c.UserContext(), orgID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(m)
}
