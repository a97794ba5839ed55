package handlers

import (
	"strings"

	"github.com/djchat/backend/internal/models"
	"github.com/djchat/backend/pkg/logger"
	"github.com/djchat/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CategoriesHandler struct {
	DB *gorm.DB
}

func NewCategoriesHandler(db *gorm.DB) *CategoriesHandler {
	return &CategoriesHandler{DB: db}
}

// List godoc
//
//	@Summary	List all server categories
//	@Tags		categories
//	@Produce	json
//	@Success	200	{array}	models.Category
//	@Router		/categories [get]
func (h *CategoriesHandler) List(c *fiber.Ctx) error {
	var categories []models.Category
	if err := h.DB.Order("name").Find(&categories).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing categories")
	}
	return utils.Success(c, fiber.StatusOK, categories)
}

type createCategoryRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// Create is admin-only; categories are curated, not user generated.
func (h *CategoriesHandler) Create(c *fiber.Ctx) error {
	var req createCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}

	category := models.Category{
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.DB.Create(&category).Error; err != nil {
		return utils.Error(c, fiber.StatusConflict, "category already exists")
	}

	logger.Info("category_created", map[string]interface{}{
		"category_id": category.ID,
		"name":        category.Name,
	})

	return utils.Success(c, fiber.StatusCreated, category)
}
