package services

import (
	"errors"
	"strings"

	"github.com/djchat/backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrNotAMember      = errors.New("not a member of this server")
	ErrEmptyMessage    = errors.New("message content is empty")
)

// ChatService persists channel messages and answers membership questions for
// both the REST handlers and the websocket gateway.
type ChatService struct {
	DB *gorm.DB
}

func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{DB: db}
}

// IsMember reports whether the user belongs to the server. Returns
// gorm.ErrRecordNotFound when the server itself does not exist.
func (s *ChatService) IsMember(serverID, userID uint) (bool, error) {
	var server models.Server
	if err := s.DB.Select("id").First(&server, "id = ?", serverID).Error; err != nil {
		return false, err
	}

	var count int64
	err := s.DB.Table("server_members").
		Where("server_id = ? AND user_id = ?", serverID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CanAccessChannel reports whether the user may read and post to the
// channel, which requires membership of the owning server.
func (s *ChatService) CanAccessChannel(channelID, userID uint) (bool, error) {
	var channel models.Channel
	if err := s.DB.First(&channel, "id = ?", channelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.IsMember(channel.ServerID, userID)
}

// SaveMessage validates the channel and the sender's membership, then
// persists the message with its sender preloaded for broadcasting.
func (s *ChatService) SaveMessage(channelID, senderID uint, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	var channel models.Channel
	if err := s.DB.First(&channel, "id = ?", channelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, err
	}

	member, err := s.IsMember(channel.ServerID, senderID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotAMember
	}

	message := models.Message{
		ChannelID: channelID,
		SenderID:  senderID,
		Content:   content,
	}
	if err := s.DB.Create(&message).Error; err != nil {
		return nil, err
	}

	if err := s.DB.Preload("Sender").First(&message, "id = ?", message.ID).Error; err != nil {
		return nil, err
	}

	return &message, nil
}
