package server

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/thereayou/pulse-chat/internal/database"
	"github.com/thereayou/pulse-chat/internal/handlers"
	"github.com/thereayou/pulse-chat/internal/messages"
	"github.com/thereayou/pulse-chat/internal/presence"
	"github.com/thereayou/pulse-chat/internal/rooms"
	ws "github.com/thereayou/pulse-chat/internal/websocket"
	"github.com/thereayou/pulse-chat/pkg/auth"
)

type Server struct {
	Router     *gin.Engine
	DB         *database.Database
	Redis      *redis.Client
	Hub        *ws.Hub
	JWTManager *auth.JWTManager
}

func NewServer() *Server {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println(".env not found, using environment variables")
		}
	}

	dbConn := &database.Database{}
	if err := dbConn.Connect(); err != nil {
		log.Fatalf("Postgres connect failed: %v", err)
	}

	var rdb *redis.Client
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisOpts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		rdb = redis.NewClient(redisOpts)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Redis connect failed: %v", err)
		}
	} else {
		log.Println("REDIS_URL not set, presence cache and token blacklist disabled")
	}

	jwtMgr := auth.NewJWTManager(
		os.Getenv("JWT_SECRET"),
		24*time.Hour,
	)

	// Ядро: реестр сессий, presence-рассылка, комнаты, пайплайн сообщений
	hub := ws.NewHub()
	hub.SetPresenceListener(presence.NewBroadcaster(hub, dbConn, rdb))

	roomMgr := rooms.NewManager(dbConn)
	tracker := messages.NewTracker(dbConn, hub)
	pipeline := messages.NewPipeline(dbConn, hub, tracker)
	gateway := handlers.NewGateway(dbConn, hub, roomMgr, pipeline, tracker)

	authH := handlers.NewAuthHandler(dbConn, jwtMgr, rdb)
	wsH := handlers.NewWebSocketHandler(hub, dbConn, gateway, jwtMgr)
	historyH := handlers.NewHistoryHandler(dbConn)

	go hub.Run()

	router := gin.Default()
	APIEndpoints(router, authH, wsH, historyH, jwtMgr, rdb)

	return &Server{
		Router:     router,
		DB:         dbConn,
		Redis:      rdb,
		Hub:        hub,
		JWTManager: jwtMgr,
	}
}

func (s *Server) Run() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server starting on port %s", port)
	if err := s.Router.Run(":" + port); err != nil {
		s.Hub.Stop()
		log.Fatalf("Server run error: %v", err)
	}
}
