package routes

import (
	"tradeup_backend/internal/auth"
	"tradeup_backend/internal/handlers"
	"tradeup_backend/internal/logger"
	"tradeup_backend/internal/middleware"
	"tradeup_backend/ws"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all HTTP and WebSocket routes.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	wsHandler *ws.Handler,
	jwtManager *auth.JWTManager,
) {
	api := ginRouter.Group("/api/v1")
	{
		appHandlers.AuthHandler.RegisterRoutes(api)

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager))
		{
			appHandlers.ContactHandler.RegisterRoutes(protected)
			appHandlers.DealroomHandler.RegisterRoutes(protected)
			appHandlers.MessageHandler.RegisterRoutes(protected)
			appHandlers.NotificationHandler.RegisterRoutes(protected)
		}
	}

	wsGroup := ginRouter.Group("/ws")
	wsGroup.Use(middleware.AuthMiddleware(jwtManager))
	{
		wsGroup.GET("", wsHandler.ServeWS)
	}
	logger.Info("WebSocket route /ws registered")
}
