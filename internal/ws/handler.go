package ws

import (
	"github.com/djchat/backend/pkg/logger"
	"github.com/djchat/backend/pkg/utils"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	hub   *Hub
	store MessageStore
}

func NewHandler(hub *Hub, store MessageStore) *Handler {
	return &Handler{hub: hub, store: store}
}

// Upgrade gates the route on a websocket upgrade request.
func Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Serve authenticates the connection and runs the client pumps. Browsers
// cannot set headers on websocket requests, so the token travels as a query
// parameter instead of an Authorization header.
func (h *Handler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		token := conn.Query("token")
		if token == "" {
			_ = conn.WriteJSON(Event{Op: OpError})
			conn.Close()
			return
		}

		claims, err := utils.ValidateToken(token)
		if err != nil {
			logger.Warn("ws_invalid_token", map[string]interface{}{
				"error": err.Error(),
			})
			_ = conn.WriteJSON(Event{Op: OpError})
			conn.Close()
			return
		}

		client := newClient(h.hub, conn, h.store, claims.UserID)
		h.hub.register <- client

		go client.writePump()
		client.readPump()
	})
}
