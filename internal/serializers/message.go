package serializers

import (
	"time"

	"github.com/djchat/backend/internal/models"
)

type SenderPayload struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

type MessagePayload struct {
	ID        uint          `json:"id"`
	ChannelID uint          `json:"channel"`
	Sender    SenderPayload `json:"sender"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"createdAt"`
}

func NewMessage(message models.Message) MessagePayload {
	return MessagePayload{
		ID:        message.ID,
		ChannelID: message.ChannelID,
		Sender: SenderPayload{
			ID:       message.Sender.ID,
			Username: message.Sender.Username,
		},
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
	}
}

func NewMessageList(messages []models.Message) []MessagePayload {
	payloads := make([]MessagePayload, 0, len(messages))
	for _, message := range messages {
		payloads = append(payloads, NewMessage(message))
	}
	return payloads
}
