package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/djchat/backend/docs"
	"github.com/djchat/backend/internal/config"
	"github.com/djchat/backend/internal/database"
	"github.com/djchat/backend/internal/handlers"
	"github.com/djchat/backend/internal/middleware"
	"github.com/djchat/backend/internal/services"
	"github.com/djchat/backend/internal/storage"
	"github.com/djchat/backend/internal/ws"
	"github.com/djchat/backend/pkg/logger"
	"github.com/djchat/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
)

// @title djchat API
// @version 1.0
// @description REST API for the djchat community chat application.
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	media, err := storage.NewMediaStore(cfg.MinIO)
	if err != nil {
		log.Fatalf("media storage initialization failed: %v", err)
	}
	if media.Enabled() {
		if err := media.EnsureBucket(context.Background()); err != nil {
			log.Fatalf("failed ensuring media bucket: %v", err)
		}
	}

	listingService := services.NewServerListService(db, cfg.Servers.StrictAuthGate)
	chatService := services.NewChatService(db)

	authHandler := handlers.NewAuthHandler(db)
	categoriesHandler := handlers.NewCategoriesHandler(db)
	serversHandler := handlers.NewServersHandler(db, listingService, media)
	channelsHandler := handlers.NewChannelsHandler(db, chatService)

	authMiddleware := middleware.NewAuthMiddleware(db)

	hub := ws.NewHub()
	go hub.Run()
	wsHandler := ws.NewHandler(hub, chatService)

	app := fiber.New(fiber.Config{BodyLimit: 10 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	app.Use("/ws", ws.Upgrade)
	app.Get("/ws", wsHandler.Serve())

	api := app.Group("/api")
	api.Get("/version", handlers.GetVersion)
	api.Get("/docs/*", swagger.HandlerDefault)

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

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
