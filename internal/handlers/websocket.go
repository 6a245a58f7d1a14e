package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/thereayou/pulse-chat/internal/database"
	ws "github.com/thereayou/pulse-chat/internal/websocket"
	"github.com/thereayou/pulse-chat/pkg/auth"
)

// WebSocketHandler терминирует соединения. Сессия привязывается к userId из
// query-параметра clientId; вместо него принимается и JWT из token.
type WebSocketHandler struct {
	hub        *ws.Hub
	db         *database.Database
	gateway    *Gateway
	jwtManager *auth.JWTManager
	upgrader   websocket.Upgrader
}

func NewWebSocketHandler(hub *ws.Hub, db *database.Database, gateway *Gateway, jwtMgr *auth.JWTManager) *WebSocketHandler {
	return &WebSocketHandler{
		hub:        hub,
		db:         db,
		gateway:    gateway,
		jwtManager: jwtMgr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// TODO: проверить origin в prod
				return true
			},
		},
	}
}

// HandleWebSocket обрабатывает подключение. Повторные connect с тем же
// userId — штатный мультисессионный случай, не ошибка.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.Query("clientId")
	if userID == "" {
		if token := c.Query("token"); token != "" && h.jwtManager != nil {
			claims, err := h.jwtManager.Verify(token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			userID = claims.Subject
		}
	}
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "clientId is required"})
		return
	}

	// Запись каталога появляется при первом подключении
	if _, err := h.db.EnsureUser(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register user"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := ws.NewClient(h.hub, conn, userID)

	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.gateway)
}
