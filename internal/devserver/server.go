// Package devserver is a development backend that speaks the REST contract the client consumes:
// the Authentication Service, team management, communication analysis and the chat websocket.
// All state is in memory.
package devserver

import (
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/analysis"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/chat"
	identityrepo "github.com/hariseldon84/singlebrief-full-sub000/internal/identity/repository"
	identityservice "github.com/hariseldon84/singlebrief-full-sub000/internal/identity/service"
	teamservice "github.com/hariseldon84/singlebrief-full-sub000/internal/teammgmt/service"
)

// APIPrefix is where every route is mounted.
const APIPrefix = "/api/v1"

// Deps holds the services behind the routes. Auth and Identity are required.
type Deps struct {
	Auth *identityservice.AuthService
	// Identity resolves organization roles for the team-management guards.
	Identity identityrepo.Repository
	// Directory is the team store. If nil, an empty one is created.
	Directory *teamservice.Directory
	// Analysis answers POST /analysis/breakdown. If nil, a SimulatedService without delay is used.
	Analysis analysis.Service
	// Responder answers chat messages on behalf of recipients. If nil, AcknowledgeResponder.
	Responder chat.Responder
	Logger    *zap.Logger
}

type server struct {
	auth      *identityservice.AuthService
	identity  identityrepo.Repository
	directory *teamservice.Directory
	analysis  analysis.Service
	respond   chat.Responder
	logger    *zap.Logger
}

// New builds the fiber application with every route registered.
func New(deps Deps) *fiber.App {
	s := &server{
		auth:      deps.Auth,
		identity:  deps.Identity,
		directory: deps.Directory,
		analysis:  deps.Analysis,
		respond:   deps.Responder,
		logger:    deps.Logger,
	}
	if s.directory == nil {
		s.directory = teamservice.NewDirectory(0)
	}
	if s.analysis == nil {
		s.analysis = analysis.NewSimulatedService(0)
	}
	if s.respond == nil {
		s.respond = chat.AcknowledgeResponder
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "singlebrief-devserver",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
		ReadTimeout:           30 * time.Second,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(otelfiber.Middleware())
	app.Use(s.accessLog)

	app.Get("/healthz", s.health)

	api := app.Group(APIPrefix)
	s.registerAuthRoutes(api)
	s.registerTeamRoutes(api)
	s.registerAnalysisRoutes(api)
	s.registerChatRoutes(api)
	return app
}

func (s *server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *server) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
	}
	s.logger.Debug("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
	)
	return err
}
