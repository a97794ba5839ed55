package ws

import (
	"sync"

	"github.com/djchat/backend/pkg/logger"
)

// Hub tracks connected clients and their channel subscriptions. All maps are
// guarded by mu; register/unregister go through channels so connection
// lifecycle is serialized in Run.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]bool
	channels map[uint]map[*Client]bool

	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		channels:   make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	logger.Info("ws_client_connected", map[string]interface{}{
		"user_id": client.userID,
		"total":   len(h.clients),
	})
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	for channelID := range client.channels {
		h.unsubscribeLocked(client, channelID)
	}
	close(client.send)

	logger.Info("ws_client_disconnected", map[string]interface{}{
		"user_id": client.userID,
		"total":   len(h.clients),
	})
}

func (h *Hub) Subscribe(client *Client, channelID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.channels[channelID]; !ok {
		h.channels[channelID] = make(map[*Client]bool)
	}
	h.channels[channelID][client] = true
	client.channels[channelID] = true
}

func (h *Hub) Unsubscribe(client *Client, channelID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribeLocked(client, channelID)
}

func (h *Hub) unsubscribeLocked(client *Client, channelID uint) {
	if subscribers, ok := h.channels[channelID]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.channels, channelID)
		}
	}
	delete(client.channels, channelID)
}

// BroadcastToChannel sends the payload to every subscriber of the channel.
// Clients with a full send buffer are skipped rather than blocked on.
func (h *Hub) BroadcastToChannel(channelID uint, op string, data any) {
	raw, err := newEvent(op, data)
	if err != nil {
		logger.Error("ws_broadcast_marshal_failed", err, map[string]interface{}{
			"channel_id": channelID,
		})
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.channels[channelID] {
		select {
		case client.send <- raw:
		default:
			logger.Warn("ws_client_send_buffer_full", map[string]interface{}{
				"user_id":    client.userID,
				"channel_id": channelID,
			})
		}
	}
}
