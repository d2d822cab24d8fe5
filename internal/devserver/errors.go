package devserver

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/analysis"
	identityservice "github.com/hariseldon84/singlebrief-full-sub000/internal/identity/service"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/platform/rbac"
	teamservice "github.com/hariseldon84/singlebrief-full-sub000/internal/teammgmt/service"
)

var (
	errMissingBearer = fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
	errBadBody       = fiber.NewError(fiber.StatusUnprocessableEntity, "request body is not valid JSON")
)

// errorHandler renders every error as {"detail": "..."}. Unclassified errors become a 500 with a
// generic detail and are logged.
func (s *server) errorHandler(c *fiber.Ctx, err error) error {
	code, detail := classify(err)
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		detail = "internal server error"
	}
	return c.Status(code).JSON(fiber.Map{"detail": detail})
}

func classify(err error) (int, string) {
	var fe *fiber.Error
	var ve *identityservice.ValidationError
	var ie *teamservice.InvalidInputError
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.As(err, &ve):
		return fiber.StatusUnprocessableEntity, ve.Msg
	case errors.As(err, &ie):
		return fiber.StatusUnprocessableEntity, ie.Error()
	case errors.Is(err, identityservice.ErrEmailAlreadyRegistered),
		errors.Is(err, teamservice.ErrMemberExists):
		return fiber.StatusConflict, err.Error()
	case errors.Is(err, identityservice.ErrInvalidCredentials),
		errors.Is(err, identityservice.ErrInvalidRefreshToken),
		errors.Is(err, identityservice.ErrRefreshTokenReuse),
		errors.Is(err, identityservice.ErrInvalidAccessToken),
		errors.Is(err, rbac.ErrUnauthenticated):
		return fiber.StatusUnauthorized, err.Error()
	case errors.Is(err, rbac.ErrNoOrganization),
		errors.Is(err, rbac.ErrNotMember),
		errors.Is(err, rbac.ErrAdminRequired):
		return fiber.StatusForbidden, err.Error()
	case errors.Is(err, teamservice.ErrMemberNotFound),
		errors.Is(err, teamservice.ErrInvitationNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, analysis.ErrNoRecipients):
		return fiber.StatusUnprocessableEntity, err.Error()
	}
	return fiber.StatusInternalServerError, err.Error()
}
