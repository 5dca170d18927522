package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mchat_backend/internal/config"
	"mchat_backend/internal/handlers"
	"mchat_backend/internal/logger"
	"mchat_backend/internal/middleware"
	"mchat_backend/internal/models"
	"mchat_backend/internal/models/chat"
	"mchat_backend/internal/ratelimit"
	"mchat_backend/internal/repositories"
	repoChat "mchat_backend/internal/repositories/chat"
	"mchat_backend/internal/routes"
	"mchat_backend/internal/services"
	chatsvc "mchat_backend/internal/services/chat"
	"mchat_backend/internal/services/push"
	"mchat_backend/internal/services/telegram"
	"mchat_backend/internal/validator"
	"mchat_backend/internal/workers"
	"mchat_backend/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Container - собранное приложение: роутер и живой слой
type Container struct {
	Router         *gin.Engine
	Manager        *ws.Manager
	Messages       chatsvc.MessageService
	PresenceWorker *workers.PresenceWorker
}

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...")
	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := Migrate(gormDB); err != nil {
		logger.Fatal("Failed to migrate database", "error", err)
	}

	// после падения у части пользователей мог остаться last_seen = NULL
	reset, err := repositories.NewUserRepository().ResetOnlineUsers(gormDB, time.Now())
	if err != nil {
		logger.Fatal("Failed to reset online users", "error", err)
	}
	logger.Info("Online users reset", "count", reset)

	limiter := newLimiter(cfg)
	container := Build(cfg, gormDB, limiter)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	container.PresenceWorker.Start(ctx)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: address, Handler: container.Router}

	go func() {
		logger.Info(fmt.Sprintf("🚀 Server starting on %s", address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server startup error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	if err := container.Manager.Shutdown(shutdownCtx); err != nil {
		// не все разрывы успели записать офлайн, добиваем хранилище
		logger.Error("WebSocket shutdown timed out", "error", err)
		if _, err := repositories.NewUserRepository().ResetOnlineUsers(gormDB, time.Now()); err != nil {
			logger.Error("Failed to reset online users", "error", err)
		}
	}
	// дожидаемся отложенных уведомлений
	container.Messages.Wait()
	logger.Info("Server stopped")
}

// Migrate создает таблицы чата
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.PushSubscription{},
		&chat.Message{},
		&chat.ChatState{},
	)
}

func newLimiter(cfg *config.Config) ratelimit.Limiter {
	if cfg.Redis.URL == "" {
		logger.Warn("Redis is not configured, using in-process rate limiter")
		return ratelimit.NewMemoryLimiter(cfg.Chat.RateLimitPerMinute, time.Minute)
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Invalid redis url", "error", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("Redis unavailable, using in-process rate limiter", "error", err)
		return ratelimit.NewMemoryLimiter(cfg.Chat.RateLimitPerMinute, time.Minute)
	}
	logger.Info("Redis connected")
	return ratelimit.NewRedisLimiter(client, cfg.Chat.RateLimitPerMinute, time.Minute)
}

// Build собирает репозитории, сервисы, живой слой и роутер
func Build(cfg *config.Config, gormDB *gorm.DB, limiter ratelimit.Limiter) *Container {
	// --- Репозитории ---
	userRepo := repositories.NewUserRepository()
	pushRepo := repositories.NewPushSubscriptionRepository()
	messageRepo := repoChat.NewMessageRepository()
	stateRepo := repoChat.NewChatStateRepository()

	// --- Живой слой ---
	// сервисы рассылают события через менеджер, поэтому он создается первым
	manager := ws.NewManager(gormDB, ws.Options{
		SendBuffer:      cfg.WebSocket.SendBuffer,
		PingInterval:    cfg.WebSocket.PingInterval,
		PongWait:        cfg.WebSocket.PongWait,
		WriteWait:       cfg.WebSocket.WriteWait,
		MaxMessageBytes: cfg.WebSocket.MaxMessageBytes,
		AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
	})

	// --- Внешние каналы уведомлений ---
	var pushSender chatsvc.PushSender
	sender := push.NewSender(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, cfg.Push.Subscriber, cfg.Push.TTL)
	if sender.Configured() {
		pushSender = sender
	} else {
		logger.Warn("VAPID keys are not set. Web push disabled.")
	}

	var botSender chatsvc.BotSender
	if cfg.Telegram.BotToken != "" {
		bot, err := telegram.NewBot(cfg.Telegram.BotToken)
		if err != nil {
			logger.Error("Failed to init telegram bot. Bot relay disabled.", "error", err)
		} else {
			botSender = bot
		}
	}

	// --- Сервисы ---
	notifier := chatsvc.NewNotificationService(stateRepo, userRepo, pushRepo, manager, pushSender, botSender, cfg.Chat.AppURL, cfg.Chat.DefaultLocale)
	messageService := chatsvc.NewMessageService(messageRepo, stateRepo, userRepo, limiter, notifier, manager)
	reactionService := chatsvc.NewReactionService(messageRepo, manager)
	readService := chatsvc.NewReadService(messageRepo, stateRepo, userRepo, manager)
	stateService := chatsvc.NewChatStateService(stateRepo, manager)
	presenceService := chatsvc.NewPresenceService(userRepo, messageRepo, manager)
	pushService := services.NewPushSubscriptionService(pushRepo, cfg.Push.VAPIDPublicKey)

	manager.Bind(ws.Services{
		Messages:  messageService,
		Reactions: reactionService,
		Reads:     readService,
		States:    stateService,
		Presence:  presenceService,
	})
	wsHandler := ws.NewWebSocketHandler(manager, userRepo)

	// --- Хэндлеры ---
	authMiddleware := middleware.AuthMiddleware(cfg.JWT.Secret)
	baseHandler := handlers.NewBaseHandler(validator.New(), authMiddleware)
	appHandlers := &handlers.AppHandlers{
		HealthHandler:   handlers.NewHealthHandler(baseHandler),
		ChatHandler:     handlers.NewChatHandler(baseHandler, messageService, stateService),
		PushHandler:     handlers.NewPushHandler(baseHandler, pushService),
		PresenceHandler: handlers.NewPresenceHandler(baseHandler, manager.Registry()),
	}

	ginRouter := initializeGinRouter(cfg, gormDB)
	routes.RegisterRoutes(ginRouter, appHandlers, wsHandler, authMiddleware)

	return &Container{
		Router:         ginRouter,
		Manager:        manager,
		Messages:       messageService,
		PresenceWorker: workers.NewPresenceWorker(gormDB, userRepo, manager, cfg.Presence.ReconcileInterval),
	}
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	corsConfig := cors.DefaultConfig()
	if len(cfg.WebSocket.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.WebSocket.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowHeaders("Authorization")

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(cors.New(corsConfig))
	router.Use(middleware.DBMiddleware(db))
	return router
}
