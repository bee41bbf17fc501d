package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tradeup_backend/database"
	"tradeup_backend/internal/auth"
	"tradeup_backend/internal/config"
	"tradeup_backend/internal/handlers"
	"tradeup_backend/internal/logger"
	"tradeup_backend/internal/middleware"
	"tradeup_backend/internal/repositories"
	"tradeup_backend/internal/routes"
	"tradeup_backend/internal/services"
	"tradeup_backend/internal/storage"
	"tradeup_backend/internal/validator"
	"tradeup_backend/internal/verification"
	"tradeup_backend/internal/workers"
	"tradeup_backend/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...")
	gormDB, err := database.ConnectGorm()
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

	if err := database.AutoMigrate(gormDB); err != nil {
		logger.Fatal("Migration failed", "error", err)
	}

	verificationWorker := workers.NewVerificationWorker(gormDB)
	verificationWorker.Start(context.Background())

	ginRouter := SetupRouter(cfg, gormDB, sqlDB)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info(fmt.Sprintf("Server starting on %s", address))
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

func SetupRouter(cfg *config.Config, gormDB *gorm.DB, sqlDB *sql.DB) *gin.Engine {
	storageInstance, err := storage.NewStorage(storage.Config{
		Type:     cfg.Storage.Type,
		BasePath: cfg.Storage.BasePath,
		BaseURL:  cfg.Storage.BaseURL,
	})
	if err != nil {
		logger.Fatal("Failed to initialize storage", "error", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, time.Duration(cfg.JWT.TTL)*time.Minute)

	wsManager := ws.NewManager()
	go wsManager.Run()

	serviceContainer := initializeServices(cfg, storageInstance, jwtManager, wsManager)

	appHandlers := initializeHandlers(serviceContainer)

	wsHandler := ws.NewHandler(wsManager, gormDB, serviceContainer.MessagingService)

	ginRouter := initializeGinRouter(gormDB)

	routes.RegisterRoutes(ginRouter, appHandlers, wsHandler, jwtManager)

	return ginRouter
}

func initializeServices(
	cfg *config.Config,
	storageInstance storage.Storage,
	jwtManager *auth.JWTManager,
	router services.DeliveryRouter,
) *services.ServiceContainer {
	userRepo := repositories.NewUserRepository()
	contactRepo := repositories.NewContactRepository()
	dealroomRepo := repositories.NewDealroomRepository()
	documentRepo := repositories.NewDocumentRepository()
	messageRepo := repositories.NewMessageRepository()
	notificationRepo := repositories.NewNotificationRepository()

	oracle := verification.NewSimulatedOracle()
	oracleTimeout := time.Duration(cfg.Oracle.TimeoutSeconds) * time.Second

	notificationService := services.NewNotificationService(notificationRepo, messageRepo, userRepo, dealroomRepo)
	authService := services.NewAuthService(userRepo, jwtManager)
	contactService := services.NewContactService(contactRepo, userRepo, notificationService)
	messagingService := services.NewMessagingService(messageRepo, dealroomRepo, userRepo, notificationService, router)
	dealroomService := services.NewDealroomService(
		dealroomRepo,
		documentRepo,
		userRepo,
		contactRepo,
		messageRepo,
		notificationService,
		storageInstance,
		oracle,
		oracleTimeout,
	)

	return &services.ServiceContainer{
		AuthService:         authService,
		ContactService:      contactService,
		DealroomService:     dealroomService,
		MessagingService:    messagingService,
		NotificationService: notificationService,
	}
}

func initializeHandlers(container *services.ServiceContainer) *handlers.AppHandlers {
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator)

	return &handlers.AppHandlers{
		AuthHandler:         handlers.NewAuthHandler(baseHandler, container.AuthService),
		ContactHandler:      handlers.NewContactHandler(baseHandler, container.ContactService),
		DealroomHandler:     handlers.NewDealroomHandler(baseHandler, container.DealroomService),
		MessageHandler:      handlers.NewMessageHandler(baseHandler, container.MessagingService),
		NotificationHandler: handlers.NewNotificationHandler(baseHandler, container.NotificationService),
	}
}

func initializeGinRouter(db *gorm.DB) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DBMiddleware(db))
	return router
}
