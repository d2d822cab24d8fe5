package devserver

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/chat"
	identityservice "github.com/hariseldon84/singlebrief-full-sub000/internal/identity/service"
)

func (s *server) registerChatRoutes(r fiber.Router) {
	r.Use("/chat/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	r.Get("/chat/ws", s.requireAuth, websocket.New(s.chatSession))
}

// chatSession answers every outbound frame with the responder's replies, in order, on the same
// connection. Frames from the client that are not user messages are ignored.
func (s *server) chatSession(conn *websocket.Conn) {
	p, _ := conn.Locals("principal").(*identityservice.Principal)
	logger := s.logger
	if p != nil {
		logger = logger.With(zap.String("user_id", p.UserID))
	}
	logger.Debug("chat: connected")
	defer logger.Debug("chat: disconnected")

	for {
		var m chat.Message
		if err := conn.ReadJSON(&m); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("chat: read", zap.Error(err))
			}
			return
		}
		if m.Author != chat.AuthorUser || strings.TrimSpace(m.Body) == "" || m.RecipientID == "" {
			continue
		}
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		for _, reply := range s.respond(m) {
			if reply.SentAt.IsZero() {
				reply.SentAt = time.Now().UTC()
			}
			if err := conn.WriteJSON(reply); err != nil {
				logger.Debug("chat: write", zap.Error(err))
				return
			}
		}
	}
}
