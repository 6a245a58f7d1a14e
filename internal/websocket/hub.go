package websocket

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PresenceListener получает переходы online/offline. Вызывается из цикла
// хаба, то есть строго последовательно для любого пользователя.
type PresenceListener interface {
	OnPresenceChanged(userID string, isOnline bool, lastSeen time.Time)
}

// Hub — реестр соединений. Отображает userId на множество живых сессий
// (мультиустройство) и раздает исходящие кадры. Все мутации реестра идут
// через каналы register/unregister и сериализуются циклом Run.
type Hub struct {
	clients map[uuid.UUID]*Client

	// Сессии по UserID (у пользователя может быть несколько соединений)
	userClients map[string]map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	presence PresenceListener

	mu sync.RWMutex

	// Контекст для graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub создает новый Hub
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[string]map[uuid.UUID]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetPresenceListener подключает рассылку presence. Вызывать до Run.
func (h *Hub) SetPresenceListener(l PresenceListener) {
	h.presence = l
}

// Run запускает цикл хаба
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// Stop останавливает hub и закрывает все сессии
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.Send)
		if client.Conn != nil {
			client.Conn.Close()
		}
	}
	h.clients = make(map[uuid.UUID]*Client)
	h.userClients = make(map[string]map[uuid.UUID]*Client)
}

// Register регистрирует новую сессию
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister снимает сессию с учета
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client

	sessions, ok := h.userClients[client.UserID]
	if !ok {
		sessions = make(map[uuid.UUID]*Client)
		h.userClients[client.UserID] = sessions
	}
	sessions[client.ID] = client
	first := len(sessions) == 1
	h.mu.Unlock()

	log.Printf("Session registered: %s (user: %s)", client.ID, client.UserID)

	// Переход offline -> online только на первой сессии; повторный connect
	// того же userId — не ошибка
	if first && h.presence != nil {
		h.presence.OnPresenceChanged(client.UserID, true, time.Now())
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.ID]; !ok {
		h.mu.Unlock()
		return
	}

	delete(h.clients, client.ID)
	close(client.Send)

	last := false
	if sessions, ok := h.userClients[client.UserID]; ok {
		delete(sessions, client.ID)
		if len(sessions) == 0 {
			delete(h.userClients, client.UserID)
			last = true
		}
	}
	h.mu.Unlock()

	log.Printf("Session unregistered: %s (user: %s)", client.ID, client.UserID)

	// Последняя сессия закрылась — пользователь offline
	if last && h.presence != nil {
		h.presence.OnPresenceChanged(client.UserID, false, time.Now())
	}
}

// SendToUser отправляет кадр во все сессии пользователя. Отправка
// неблокирующая: переполненная очередь медленного клиента не задерживает
// остальных.
func (h *Hub) SendToUser(userID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if clients, ok := h.userClients[userID]; ok {
		for _, client := range clients {
			select {
			case client.Send <- message:
			default:
				log.Printf("Session %s send queue full, frame dropped", client.ID)
			}
		}
	}
}

// SendEventToUser сериализует событие и отправляет во все сессии пользователя.
func (h *Hub) SendEventToUser(userID string, event EventType, data interface{}) {
	raw, err := encodeEvent(event, data)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", event, err)
		return
	}
	h.SendToUser(userID, raw)
}

// BroadcastEvent рассылает событие всем сессиям, кроме сессий excludeUser.
func (h *Hub) BroadcastEvent(event EventType, data interface{}, excludeUser string) {
	raw, err := encodeEvent(event, data)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if client.UserID == excludeUser {
			continue
		}
		select {
		case client.Send <- raw:
		default:
		}
	}
}

// IsOnline — есть ли у пользователя хотя бы одна живая сессия.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sessions, ok := h.userClients[userID]
	return ok && len(sessions) > 0
}

// SessionCount — число живых сессий пользователя.
func (h *Hub) SessionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.userClients[userID])
}

// SessionID возвращает id одной из сессий пользователя, uuid.Nil если offline.
func (h *Hub) SessionID(userID string) uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id := range h.userClients[userID] {
		return id
	}
	return uuid.Nil
}

// OnlineUsers возвращает список пользователей с живыми сессиями.
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]string, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}
	return users
}

func encodeEvent(event EventType, data interface{}) ([]byte, error) {
	env, err := NewEnvelope(event, data)
	if err != nil {
		return nil, err
	}
	return env.Encode()
}
