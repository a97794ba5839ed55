package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/djchat/backend/internal/database"
	"github.com/djchat/backend/internal/middleware"
	"github.com/djchat/backend/internal/models"
	"github.com/djchat/backend/internal/services"
	"github.com/djchat/backend/pkg/logger"
	"github.com/djchat/backend/pkg/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return setupTestEnvWithGate(t, true)
}

// setupTestEnvWithGate builds a full app over an in-memory database. The
// strictAuthGate flag mirrors the SERVERS_STRICT_AUTH_GATE setting.
func setupTestEnvWithGate(t *testing.T, strictAuthGate bool) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	listingService := services.NewServerListService(db, strictAuthGate)
	chatService := services.NewChatService(db)

	authHandler := NewAuthHandler(db)
	categoriesHandler := NewCategoriesHandler(db)
	serversHandler := NewServersHandler(db, listingService, nil)
	channelsHandler := NewChannelsHandler(db, chatService)
	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 10 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Get("/version", GetVersion)

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)

	api.Get("/categories", categoriesHandler.List)
	api.Post("/categories", authMiddleware.RequireAuth, middleware.AdminOnly, categoriesHandler.Create)

	serverRoutes := api.Group("/servers")
	serverRoutes.Get("/", authMiddleware.OptionalAuth, serversHandler.List)
	serverRoutes.Post("/", authMiddleware.RequireAuth, serversHandler.Create)
	serverRoutes.Get("/:id", authMiddleware.RequireAuth, serversHandler.Get)
	serverRoutes.Delete("/:id", authMiddleware.RequireAuth, serversHandler.Delete)
	serverRoutes.Post("/:id/join", authMiddleware.RequireAuth, serversHandler.Join)
	serverRoutes.Delete("/:id/leave", authMiddleware.RequireAuth, serversHandler.Leave)
	serverRoutes.Post("/:id/icon", authMiddleware.RequireAuth, serversHandler.UploadIcon)
	serverRoutes.Get("/:id/icon", serversHandler.Icon)
	serverRoutes.Get("/:id/channels", authMiddleware.RequireAuth, channelsHandler.ListByServer)
	serverRoutes.Post("/:id/channels", authMiddleware.RequireAuth, channelsHandler.Create)

	api.Get("/channels/:id/messages", authMiddleware.RequireAuth, channelsHandler.Messages)

	return &testEnv{app: app, db: db}
}

func createTestUser(t *testing.T, db *gorm.DB, email, username string, role models.UserRole) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword("password123")
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func createTestCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()

	category := &models.Category{Name: name}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed creating test category: %v", err)
	}
	return category
}

func createTestServer(t *testing.T, db *gorm.DB, name string, owner *models.User, category *models.Category, members ...*models.User) *models.Server {
	t.Helper()

	server := &models.Server{
		Name:       name,
		OwnerID:    owner.ID,
		CategoryID: category.ID,
	}
	if err := db.Create(server).Error; err != nil {
		t.Fatalf("failed creating test server: %v", err)
	}

	all := append([]*models.User{owner}, members...)
	for _, member := range all {
		if err := db.Model(server).Association("Members").Append(member); err != nil {
			t.Fatalf("failed adding member to test server: %v", err)
		}
	}

	return server
}

func createTestChannel(t *testing.T, db *gorm.DB, server *models.Server, owner *models.User, name string) *models.Channel {
	t.Helper()

	channel := &models.Channel{
		Name:     name,
		ServerID: server.ID,
		OwnerID:  owner.ID,
	}
	if err := db.Create(channel).Error; err != nil {
		t.Fatalf("failed creating test channel: %v", err)
	}
	return channel
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}

func dataArray(t *testing.T, body map[string]any) []any {
	t.Helper()

	if success, _ := body["success"].(bool); !success {
		t.Fatalf("expected success=true, got %+v", body)
	}
	data, ok := body["data"].([]any)
	if !ok {
		t.Fatalf("expected data array, got %T", body["data"])
	}
	return data
}

func dataObject(t *testing.T, body map[string]any) map[string]any {
	t.Helper()

	if success, _ := body["success"].(bool); !success {
		t.Fatalf("expected success=true, got %+v", body)
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %T", body["data"])
	}
	return data
}

func serverIDs(t *testing.T, data []any) []uint {
	t.Helper()

	ids := make([]uint, 0, len(data))
	for _, item := range data {
		obj, ok := item.(map[string]any)
		if !ok {
			t.Fatalf("expected server object, got %T", item)
		}
		id, ok := obj["id"].(float64)
		if !ok {
			t.Fatalf("expected numeric id, got %T", obj["id"])
		}
		ids = append(ids, uint(id))
	}
	return ids
}

func listServersPath(query string) string {
	if query == "" {
		return "/api/servers"
	}
	return fmt.Sprintf("/api/servers?%s", query)
}
