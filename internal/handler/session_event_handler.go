package handler

import (
	"os"

	"cs-chatbot-be/internal/pkg/logger"
	internalWS "cs-chatbot-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
)

// SessionEventHandler exposes the live session-event feed to the ops
// dashboard over a websocket.
type SessionEventHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewSessionEventHandler(hub *internalWS.Hub, log logger.ILogger) *SessionEventHandler {
	return &SessionEventHandler{
		hub:    hub,
		logger: log,
	}
}

func (h *SessionEventHandler) RegisterRoutes(app fiber.Router) {
	app.Use("/ws/events", h.authorize)
	app.Get("/ws/events", websocket.New(func(c *websocket.Conn) {
		internalWS.ServeWs(h.hub, c)
	}))
}

// authorize validates the admin JWT before the upgrade. Browsers can't set
// headers on websocket handshakes, so a "token" query param is accepted too.
func (h *SessionEventHandler) authorize(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}

	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token (Query 'token' or Header 'Authorization')"})
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})

	if err != nil || !token.Valid {
		h.logger.Warn("SessionEventHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	return c.Next()
}
