package ws

import (
	"encoding/json"
	"time"

	"github.com/djchat/backend/internal/models"
	"github.com/djchat/backend/internal/serializers"
	"github.com/djchat/backend/pkg/logger"
	"github.com/gofiber/contrib/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 90 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

// MessageStore is the slice of the chat service the gateway needs; defined
// here so ws does not depend on the services package directly.
type MessageStore interface {
	SaveMessage(channelID, senderID uint, content string) (*models.Message, error)
	CanAccessChannel(channelID, userID uint) (bool, error)
}

type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	store    MessageStore
	userID   uint
	channels map[uint]bool
	send     chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn, store MessageStore, userID uint) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		store:    store,
		userID:   userID,
		channels: make(map[uint]bool),
		send:     make(chan []byte, sendBufferSize),
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("ws_unexpected_close", map[string]interface{}{
					"user_id": c.userID,
					"error":   err.Error(),
				})
			}
			return
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			c.sendError("invalid event")
			continue
		}

		c.handleEvent(event)
	}
}

func (c *Client) handleEvent(event Event) {
	switch event.Op {
	case OpHeartbeat:
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			return
		}
		c.enqueue(OpHeartbeatAck, nil)

	case OpSubscribe:
		var data SubscribeData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			c.sendError("invalid subscribe data")
			return
		}
		allowed, err := c.store.CanAccessChannel(data.ChannelID, c.userID)
		if err != nil || !allowed {
			c.sendError("channel access denied")
			return
		}
		c.hub.Subscribe(c, data.ChannelID)

	case OpUnsubscribe:
		var data SubscribeData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			c.sendError("invalid unsubscribe data")
			return
		}
		c.hub.Unsubscribe(c, data.ChannelID)

	case OpMessageSend:
		var data MessageSendData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			c.sendError("invalid message data")
			return
		}
		message, err := c.store.SaveMessage(data.ChannelID, c.userID, data.Content)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.hub.BroadcastToChannel(data.ChannelID, OpMessageNew, serializers.NewMessage(*message))

	default:
		c.sendError("unknown op")
	}
}

func (c *Client) enqueue(op string, data any) {
	raw, err := newEvent(op, data)
	if err != nil {
		return
	}
	select {
	case c.send <- raw:
	default:
	}
}

func (c *Client) sendError(reason string) {
	c.enqueue(OpError, ErrorData{Reason: reason})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case raw, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
