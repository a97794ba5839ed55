// Package serializers builds the transfer objects sent to API clients.
// Handlers never shape response JSON themselves.
package serializers

import "github.com/djchat/backend/internal/models"

type ChannelPayload struct {
	ID      uint    `json:"id"`
	Name    string  `json:"name"`
	Topic   *string `json:"topic,omitempty"`
	OwnerID uint    `json:"owner"`
}

// ServerPayload is the read-only projection of a server record. NumMembers
// is present only when the listing was asked for member counts.
type ServerPayload struct {
	ID            uint             `json:"id"`
	Name          string           `json:"name"`
	Description   *string          `json:"description,omitempty"`
	OwnerID       uint             `json:"owner"`
	Category      string           `json:"category"`
	NumMembers    *int64           `json:"num_members,omitempty"`
	ChannelServer []ChannelPayload `json:"channel_server"`
}

func NewChannel(channel models.Channel) ChannelPayload {
	return ChannelPayload{
		ID:      channel.ID,
		Name:    channel.Name,
		Topic:   channel.Topic,
		OwnerID: channel.OwnerID,
	}
}

func NewServer(server models.Server, withNumMembers bool) ServerPayload {
	channels := make([]ChannelPayload, 0, len(server.Channels))
	for _, channel := range server.Channels {
		channels = append(channels, NewChannel(channel))
	}

	payload := ServerPayload{
		ID:            server.ID,
		Name:          server.Name,
		Description:   server.Description,
		OwnerID:       server.OwnerID,
		Category:      server.Category.Name,
		ChannelServer: channels,
	}

	if withNumMembers {
		count := server.NumMembers
		payload.NumMembers = &count
	}

	return payload
}

// NewServerList preserves the order of the record sequence and performs no
// filtering of its own.
func NewServerList(servers []models.Server, withNumMembers bool) []ServerPayload {
	payloads := make([]ServerPayload, 0, len(servers))
	for _, server := range servers {
		payloads = append(payloads, NewServer(server, withNumMembers))
	}
	return payloads
}
