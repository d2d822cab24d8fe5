package devserver

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	identityservice "github.com/hariseldon84/singlebrief-full-sub000/internal/identity/service"
	membershipdomain "github.com/hariseldon84/singlebrief-full-sub000/internal/membership/domain"
	orgdomain "github.com/hariseldon84/singlebrief-full-sub000/internal/organization/domain"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/platform/authctx"
	sessiondomain "github.com/hariseldon84/singlebrief-full-sub000/internal/session/domain"
	teamdomain "github.com/hariseldon84/singlebrief-full-sub000/internal/teammgmt/domain"
	teamservice "github.com/hariseldon84/singlebrief-full-sub000/internal/teammgmt/service"
	userdomain "github.com/hariseldon84/singlebrief-full-sub000/internal/user/domain"
)

const bearerPrefix = "bearer "

type loginBody struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type registerBody struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	FullName         string `json:"full_name"`
	OrganizationName string `json:"organization_name"`
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *server) registerAuthRoutes(r fiber.Router) {
	h := r.Group("/auth")
	h.Post("/login", s.login)
	h.Post("/register", s.register)
	h.Post("/refresh", s.refresh)
	h.Post("/logout", s.requireAuth, s.logout)
	h.Get("/me", s.requireAuth, s.me)
}

// requireAuth validates the bearer access token and puts the caller's identity on the user
// context (for rbac) and in locals (for websocket handlers).
func (s *server) requireAuth(c *fiber.Ctx) error {
	token := extractBearer(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		return errMissingBearer
	}
	p, err := s.auth.Authenticate(c.UserContext(), token)
	if err != nil {
		return err
	}
	c.SetUserContext(authctx.WithIdentity(c.UserContext(), p.UserID, p.OrgID, p.GrantID))
	c.Locals("principal", p)
	return c.Next()
}

// extractBearer returns the token of an "Authorization: Bearer <token>" value, or "".
func extractBearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

func (s *server) login(c *fiber.Ctx) error {
	var body loginBody
	if err := c.BodyParser(&body); err != nil {
		return errBadBody
	}
	res, err := s.auth.Login(c.UserContext(), body.Email, body.Password)
	if err != nil {
		return err
	}
	return c.JSON(authResponse(res))
}

func (s *server) register(c *fiber.Ctx) error {
	var body registerBody
	if err := c.BodyParser(&body); err != nil {
		return errBadBody
	}
	res, err := s.auth.Register(c.UserContext(), body.Email, body.Password, body.FullName, body.OrganizationName)
	if err != nil {
		return err
	}
	if res.Org != nil {
		// The owner is the first member of the new team.
		_, err := s.directory.Create(c.UserContext(), res.Org.ID, teamdomain.MemberInput{
			FullName: res.User.FullName,
			Email:    res.User.Email,
			Role:     string(res.Role),
		})
		if err != nil && !errors.Is(err, teamservice.ErrMemberExists) {
			return err
		}
	}
	return c.Status(fiber.StatusCreated).JSON(authResponse(res))
}

func (s *server) refresh(c *fiber.Ctx) error {
	var body refreshBody
	if err := c.BodyParser(&body); err != nil {
		return errBadBody
	}
	if strings.TrimSpace(body.RefreshToken) == "" {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "refresh_token is required")
	}
	pair, err := s.auth.Refresh(c.UserContext(), body.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(tokensResponse(pair))
}

func (s *server) logout(c *fiber.Ctx) error {
	grantID, _ := authctx.GetGrantID(c.UserContext())
	if err := s.auth.Logout(c.UserContext(), grantID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *server) me(c *fiber.Ctx) error {
	p, _ := c.Locals("principal").(*identityservice.Principal)
	profile, err := s.auth.Me(c.UserContext(), p)
	if err != nil {
		return err
	}
	return c.JSON(userResponse(profile.User, profile.Role))
}

func authResponse(res *identityservice.AuthResult) *sessiondomain.AuthResult {
	return &sessiondomain.AuthResult{
		User:         userResponse(res.User, res.Role),
		Tokens:       tokensResponse(&res.TokenPair),
		Organization: orgResponse(res.Org),
	}
}

func tokensResponse(p *identityservice.TokenPair) *sessiondomain.Tokens {
	return &sessiondomain.Tokens{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(p.ExpiresIn.Seconds()),
	}
}

func userResponse(u *userdomain.User, role membershipdomain.Role) *sessiondomain.User {
	return &sessiondomain.User{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      sessiondomain.Role(role),
		AvatarURL: u.AvatarURL,
		IsActive:  u.IsActive(),
	}
}

func orgResponse(o *orgdomain.Org) *sessiondomain.Organization {
	if o == nil {
		return nil
	}
	return &sessiondomain.Organization{ID: o.ID, Name: o.Name, Slug: o.Slug}
}
