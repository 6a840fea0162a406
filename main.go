package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/CUknot/chatflow_backend/config"
	"github.com/CUknot/chatflow_backend/controllers"
	"github.com/CUknot/chatflow_backend/database"
	"github.com/CUknot/chatflow_backend/docs"
	"github.com/CUknot/chatflow_backend/logger"
	"github.com/CUknot/chatflow_backend/middleware"
	"github.com/CUknot/chatflow_backend/services"
	"github.com/CUknot/chatflow_backend/utils"
	"github.com/CUknot/chatflow_backend/websocket"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Chat API
// @version         1.0
// @description     API Server for Chat Application
// @host            localhost:8080
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get().Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.Initialize(cfg.LogLevel, cfg.LogFormat)

	// Initialize database
	db, err := database.Connect(cfg, log)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		log.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}
	store := database.NewStore(db)

	hub := websocket.NewHub(logger.WithComponent("hub"))

	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	authService := services.NewAuthService(store, tokens, logger.WithComponent("auth"))
	roomService := services.NewRoomService(store, logger.WithComponent("rooms"))
	requestService := services.NewRequestService(store, store, hub, logger.WithComponent("requests"))
	messageService := services.NewMessageService(store, store, hub, logger.WithComponent("messages"))
	presenceService := services.NewPresenceService(hub)

	wsLog := logger.WithComponent("websocket")
	lifecycle := websocket.NewLifecycle(hub, roomService, messageService, wsLog)
	dispatcher := websocket.NewDispatcher(hub, lifecycle, requestService, messageService, presenceService, wsLog)
	wsHandler := websocket.NewHandler(authService, lifecycle, dispatcher,
		cfg.WSEventsPerSecond, cfg.WSEventBurst, cfg.CORSOrigins, wsLog)

	// Set up Swagger info
	docs.SwaggerInfo.Host = "localhost:" + cfg.Port

	// Set up router
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger.WithComponent("http")))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": hub.ConnectionCount()})
	})

	controllers.RegisterRoutes(router, controllers.Handlers{
		Auth:     controllers.NewAuthController(authService),
		Rooms:    controllers.NewRoomController(roomService, requestService),
		Requests: controllers.NewRequestController(requestService),
		Messages: controllers.NewMessageController(messageService),
	}, middleware.JWTAuth(authService))

	// WebSocket route
	router.GET("/ws", wsHandler.HandleConnection)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Server running", "port", cfg.Port)
		log.Info("Swagger documentation available", "url", "http://localhost:"+cfg.Port+"/swagger/index.html")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Server first, so no new sessions arrive while the hub closes
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"server": func(ctx context.Context) error {
				log.Info("Graceful shutdown initiated")
				err := server.Shutdown(ctx)
				hub.Close()
				if sqlDB, dbErr := db.DB(); dbErr == nil {
					if closeErr := sqlDB.Close(); err == nil {
						err = closeErr
					}
				}
				return err
			},
		},
	)

	exitCode := <-wait
	log.Info("Application exited", "code", exitCode)
	os.Exit(exitCode)
}
