package server

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/thereayou/pulse-chat/internal/handlers"
	"github.com/thereayou/pulse-chat/internal/middleware"
	"github.com/thereayou/pulse-chat/pkg/auth"
)

func APIEndpoints(r *gin.Engine, authH *handlers.AuthHandler, wsH *handlers.WebSocketHandler, historyH *handlers.HistoryHandler, jwtMgr *auth.JWTManager, rdb *redis.Client) {
	// WebSocket endpoint: ?clientId=<userId> или ?token=<jwt>
	r.GET("/ws", wsH.HandleWebSocket)

	// Auth endpoints
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authH.Register)
		authGroup.POST("/login", authH.Login)
		authGroup.POST("/logout", authH.Logout)
	}

	// API endpoints
	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(jwtMgr, rdb))
	{
		api.GET("/rooms/:id/messages", historyH.GetRoomMessages)
	}
}
