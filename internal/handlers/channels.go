package handlers

import (
	"errors"
	"strings"

	"github.com/djchat/backend/internal/middleware"
	"github.com/djchat/backend/internal/models"
	"github.com/djchat/backend/internal/serializers"
	"github.com/djchat/backend/internal/services"
	"github.com/djchat/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ChannelsHandler struct {
	DB   *gorm.DB
	Chat *services.ChatService
}

func NewChannelsHandler(db *gorm.DB, chat *services.ChatService) *ChannelsHandler {
	return &ChannelsHandler{DB: db, Chat: chat}
}

func (h *ChannelsHandler) ListByServer(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	serverID, err := parseID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid server id")
	}

	var channels []models.Channel
	if err := h.DB.Where("server_id = ?", serverID).Order("id").Find(&channels).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing channels")
	}

	payloads := make([]serializers.ChannelPayload, 0, len(channels))
	for _, channel := range channels {
		payloads = append(payloads, serializers.NewChannel(channel))
	}

	return utils.Success(c, fiber.StatusOK, payloads)
}

type createChannelRequest struct {
	Name  string  `json:"name"`
	Topic *string `json:"topic"`
}

func (h *ChannelsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	serverID, err := parseID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid server id")
	}

	var req createChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}

	member, err := h.Chat.IsMember(serverID, currentUser.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "server not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed validating membership")
	}
	if !member {
		return utils.Error(c, fiber.StatusForbidden, "must be a member to create channels")
	}

	channel := models.Channel{
		Name:     req.Name,
		Topic:    req.Topic,
		ServerID: serverID,
		OwnerID:  currentUser.ID,
	}
	if err := h.DB.Create(&channel).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating channel")
	}

	return utils.Success(c, fiber.StatusCreated, serializers.NewChannel(channel))
}

// Messages returns channel history, newest page first, oldest first within
// the page.
func (h *ChannelsHandler) Messages(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	channelID, err := parseID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid channel id")
	}

	var channel models.Channel
	if err := h.DB.First(&channel, "id = ?", channelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "channel not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading channel")
	}

	member, err := h.Chat.IsMember(channel.ServerID, currentUser.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed validating membership")
	}
	if !member {
		return utils.Error(c, fiber.StatusForbidden, "must be a member to read messages")
	}

	pagination := utils.ParsePagination(c)

	var total int64
	if err := h.DB.Model(&models.Message{}).Where("channel_id = ?", channelID).Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting messages")
	}

	var messages []models.Message
	query := h.DB.Preload("Sender").Where("channel_id = ?", channelID).Order("id DESC")
	if err := utils.ApplyPagination(query, pagination).Find(&messages).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing messages")
	}

	// reverse so the page reads oldest to newest
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return utils.Paginated(c, serializers.NewMessageList(messages), pagination.Page, pagination.Limit, total)
}
