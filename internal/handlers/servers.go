package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/djchat/backend/internal/middleware"
	"github.com/djchat/backend/internal/models"
	"github.com/djchat/backend/internal/serializers"
	"github.com/djchat/backend/internal/services"
	"github.com/djchat/backend/internal/storage"
	"github.com/djchat/backend/pkg/logger"
	"github.com/djchat/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const iconURLExpiry = 15 * time.Minute

type ServersHandler struct {
	DB      *gorm.DB
	Listing *services.ServerListService
	Media   *storage.MediaStore
}

func NewServersHandler(db *gorm.DB, listing *services.ServerListService, media *storage.MediaStore) *ServersHandler {
	return &ServersHandler{DB: db, Listing: listing, Media: media}
}

// List godoc
//
//	@Summary		List servers
//	@Description	Fetches servers filtered by the provided query parameters.
//	@Tags			servers
//	@Produce		json
//	@Param			category			query	string	false	"Category of server to retrieve"
//	@Param			qty					query	integer	false	"Number of servers to retrieve"
//	@Param			by_user				query	boolean	false	"Filter servers by the current authenticated user (true/false)"
//	@Param			by_serverid			query	integer	false	"Include server by id"
//	@Param			with_num_members	query	boolean	false	"Include the number of members for each server"
//	@Success		200	{array}		serializers.ServerPayload
//	@Failure		400	{object}	map[string]interface{}
//	@Failure		401	{object}	map[string]interface{}
//	@Security		BearerAuth
//	@Router			/servers [get]
func (h *ServersHandler) List(c *fiber.Ctx) error {
	params := services.ServerListParams{
		Category:       c.Query("category"),
		Qty:            c.Query("qty"),
		ByUser:         c.Query("by_user") == "true",
		ByServerID:     c.Query("by_serverid"),
		WithNumMembers: c.Query("with_num_members") == "true",
	}

	servers, err := h.Listing.List(middleware.GetCurrentUser(c), params)
	if err != nil {
		var validationErr *services.ValidationError
		switch {
		case errors.Is(err, services.ErrAuthenticationRequired):
			return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
		case errors.As(err, &validationErr):
			return utils.Error(c, fiber.StatusBadRequest, validationErr.Detail)
		default:
			return utils.Error(c, fiber.StatusInternalServerError, "failed listing servers")
		}
	}

	return utils.Success(c, fiber.StatusOK, serializers.NewServerList(servers, params.WithNumMembers))
}

type createServerRequest struct {
	Name        string  `json:"name"`
	CategoryID  uint    `json:"categoryID"`
	Description *string `json:"description"`
}

func (h *ServersHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createServerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}

	var category models.Category
	if err := h.DB.First(&category, "id = ?", req.CategoryID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusBadRequest, "category not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed validating category")
	}

	server := models.Server{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     currentUser.ID,
		CategoryID:  category.ID,
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&server).Error; err != nil {
			return err
		}
		if err := tx.Model(&server).Association("Members").Append(currentUser); err != nil {
			return err
		}
		general := models.Channel{
			Name:     "general",
			ServerID: server.ID,
			OwnerID:  currentUser.ID,
		}
		return tx.Create(&general).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating server")
	}

	logger.InfoWithUser(fmt.Sprint(currentUser.ID), "server_created", map[string]interface{}{
		"server_id":   server.ID,
		"server_name": server.Name,
	})

	server.Category = category
	return utils.Success(c, fiber.StatusCreated, serializers.NewServer(h.withChannels(server), false))
}

func (h *ServersHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	server, err := h.findServer(c)
	if err != nil {
		return h.serverLookupError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, serializers.NewServer(*server, false))
}

func (h *ServersHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	server, err := h.findServer(c)
	if err != nil {
		return h.serverLookupError(c, err)
	}
	if server.OwnerID != currentUser.ID {
		return utils.Error(c, fiber.StatusForbidden, "only the owner can delete a server")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		channelIDs := make([]uint, 0, len(server.Channels))
		for _, channel := range server.Channels {
			channelIDs = append(channelIDs, channel.ID)
		}
		if len(channelIDs) > 0 {
			if err := tx.Where("channel_id IN ?", channelIDs).Delete(&models.Message{}).Error; err != nil {
				return err
			}
			if err := tx.Where("server_id = ?", server.ID).Delete(&models.Channel{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(server).Association("Members").Clear(); err != nil {
			return err
		}
		return tx.Delete(server).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting server")
	}

	logger.InfoWithUser(fmt.Sprint(currentUser.ID), "server_deleted", map[string]interface{}{
		"server_id": server.ID,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

func (h *ServersHandler) Join(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	server, err := h.findServer(c)
	if err != nil {
		return h.serverLookupError(c, err)
	}

	if err := h.DB.Model(server).Association("Members").Append(currentUser); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed joining server")
	}

	logger.InfoWithUser(fmt.Sprint(currentUser.ID), "server_joined", map[string]interface{}{
		"server_id": server.ID,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"joined": true})
}

func (h *ServersHandler) Leave(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	server, err := h.findServer(c)
	if err != nil {
		return h.serverLookupError(c, err)
	}
	if server.OwnerID == currentUser.ID {
		return utils.Error(c, fiber.StatusBadRequest, "owner cannot leave their own server")
	}

	if err := h.DB.Model(server).Association("Members").Delete(currentUser); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed leaving server")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"left": true})
}

// UploadIcon stores a new icon object and forgets the previous one.
func (h *ServersHandler) UploadIcon(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if !h.Media.Enabled() {
		return utils.Error(c, fiber.StatusServiceUnavailable, "media storage not configured")
	}

	server, err := h.findServer(c)
	if err != nil {
		return h.serverLookupError(c, err)
	}
	if server.OwnerID != currentUser.ID {
		return utils.Error(c, fiber.StatusForbidden, "only the owner can change the icon")
	}

	fileHeader, err := c.FormFile("icon")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "icon file is required")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return utils.Error(c, fiber.StatusBadRequest, "icon must be an image")
	}

	stream, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed reading upload")
	}
	defer stream.Close()

	objectName := fmt.Sprintf("servers/%d/icon-%s", server.ID, uuid.New().String())
	if err := h.Media.Upload(c.Context(), objectName, stream, fileHeader.Size, contentType); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed uploading icon")
	}

	previous := server.IconPath
	if err := h.DB.Model(server).Update("icon_path", objectName).Error; err != nil {
		_ = h.Media.Delete(c.Context(), objectName)
		return utils.Error(c, fiber.StatusInternalServerError, "failed saving icon")
	}
	if previous != nil {
		_ = h.Media.Delete(c.Context(), *previous)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"icon": objectName})
}

func (h *ServersHandler) Icon(c *fiber.Ctx) error {
	if !h.Media.Enabled() {
		return utils.Error(c, fiber.StatusServiceUnavailable, "media storage not configured")
	}

	server, err := h.findServer(c)
	if err != nil {
		return h.serverLookupError(c, err)
	}
	if server.IconPath == nil {
		return utils.Error(c, fiber.StatusNotFound, "server has no icon")
	}

	url, err := h.Media.PresignedGetURL(c.Context(), *server.IconPath, iconURLExpiry)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating icon url")
	}

	return c.Redirect(url, fiber.StatusTemporaryRedirect)
}

var errInvalidServerID = errors.New("invalid server id")

// findServer loads the :id path server with its category and channels.
func (h *ServersHandler) findServer(c *fiber.Ctx) (*models.Server, error) {
	serverID, err := parseID(c.Params("id"))
	if err != nil {
		return nil, errInvalidServerID
	}

	var server models.Server
	if err := h.DB.Preload("Category").Preload("Channels").First(&server, "id = ?", serverID).Error; err != nil {
		return nil, err
	}

	return &server, nil
}

func (h *ServersHandler) serverLookupError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errInvalidServerID):
		return utils.Error(c, fiber.StatusBadRequest, "invalid server id")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return utils.Error(c, fiber.StatusNotFound, "server not found")
	default:
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading server")
	}
}

func (h *ServersHandler) withChannels(server models.Server) models.Server {
	var channels []models.Channel
	if err := h.DB.Where("server_id = ?", server.ID).Order("id").Find(&channels).Error; err == nil {
		server.Channels = channels
	}
	return server
}
