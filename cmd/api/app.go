package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/picpal/chat-gemma/internal/adapter/api/controller"
	"github.com/picpal/chat-gemma/internal/adapter/api/route"
	"github.com/picpal/chat-gemma/internal/adapter/repository"
	"github.com/picpal/chat-gemma/internal/core/ollama"
	"github.com/picpal/chat-gemma/internal/core/prompt"
	"github.com/picpal/chat-gemma/internal/domain/user"
	"github.com/picpal/chat-gemma/internal/infrastructure/database"
	"github.com/picpal/chat-gemma/internal/service"
	"github.com/picpal/chat-gemma/pkg/auth"
	"github.com/picpal/chat-gemma/pkg/logger"
)

// App wires the application dependencies
type App struct {
	router *gin.Engine
	db     *pgxpool.Pool
	log    logger.Logger
}

// NewApp builds the application graph
func NewApp() (*App, error) {
	log := logger.NewLogger()

	db, err := database.NewPostgresDB()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	jwtService, err := auth.NewJWTService()
	if err != nil {
		return nil, fmt.Errorf("failed to configure JWT: %w", err)
	}

	ollamaClient := ollama.NewClient(ollama.ConfigFromEnv())

	auditService := service.NewAuditService(auditRepo, log)
	chatService := service.NewChatService(
		chatRepo,
		messageRepo,
		auditService,
		prompt.NewBuilder(),
		ollamaClient,
		log,
	)

	authController := controller.NewAuthController(userRepo, jwtService, auditService, log)
	adminController := controller.NewAdminController(userRepo, auditService, log)
	chatController := controller.NewChatController(chatService, log)
	streamController := controller.NewStreamController(chatService, log)

	if err := seedAdmin(userRepo, log); err != nil {
		return nil, err
	}

	router := gin.Default()
	router.Use(corsMiddleware())

	api := router.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	route.SetupAuthRoutes(api, authController)
	route.SetupChatRoutes(api, chatController, streamController)
	route.SetupAdminRoutes(api, adminController)

	return &App{
		router: router,
		db:     db,
		log:    log,
	}, nil
}

// Start runs the HTTP server on the configured port
func (a *App) Start() error {
	port := getEnv("PORT", "8080")
	a.log.Info("starting server", "port", port)
	return a.router.Run(":" + port)
}

// Close releases the application resources
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

func corsMiddleware() gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{
		getEnv("FRONTEND_ORIGIN", "http://localhost:3000"),
		"http://localhost:5173",
	}
	config.AllowHeaders = append(config.AllowHeaders, "Authorization")
	config.AllowCredentials = true
	return cors.New(config)
}

// seedAdmin creates the default admin account when none exists yet
func seedAdmin(userRepo user.Repository, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	username := getEnv("ADMIN_USERNAME", "admin")

	exists, err := userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to check admin account: %w", err)
	}
	if exists {
		return nil
	}

	admin, err := user.NewAdmin(
		username,
		getEnv("ADMIN_PASSWORD", "admin1234"),
		getEnv("ADMIN_EMAIL", "admin@chat-gemma.local"),
	)
	if err != nil {
		return fmt.Errorf("failed to build admin account: %w", err)
	}

	if err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to seed admin account: %w", err)
	}

	log.Info("seeded default admin account", "username", username)
	return nil
}
