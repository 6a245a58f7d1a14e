package websocket

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время ожидания записи
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Интервал отправки ping
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер кадра
	maxMessageSize = 64 * 1024
)

// EventHandler обрабатывает входящие события сессии.
type EventHandler interface {
	HandleEvent(client *Client, env *Envelope) error
}

// Client — одна транспортная сессия, привязанная к одному userId.
type Client struct {
	ID     uuid.UUID
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *Hub
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		ID:     uuid.New(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		Hub:    hub,
	}
}

// ReadPump читает кадры сессии и передает их обработчику. Любая ошибка
// обработки уходит ответом только в эту сессию, разделяемое состояние не
// трогается.
func (c *Client) ReadPump(handler EventHandler) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env Envelope
		err := c.Conn.ReadJSON(&env)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		if env.Event == "" {
			c.SendError(ErrInvalidEvent.Error())
			continue
		}

		if handler != nil {
			if err := handler.HandleEvent(c, &env); err != nil {
				log.Printf("Error handling %s from %s: %v", env.Event, c.UserID, err)
				c.SendError(err.Error())
			}
		}
	}
}

// WritePump сливает очередь сессии в соединение и держит его живым ping'ами
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub закрыл канал
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.Conn.WriteMessage(websocket.TextMessage, message)

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendEvent кладет событие в очередь сессии без блокировки.
func (c *Client) SendEvent(event EventType, data interface{}) error {
	env, err := NewEnvelope(event, data)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}

	select {
	case c.Send <- raw:
		return nil
	default:
		return ErrClientQueueFull
	}
}

func (c *Client) SendError(errorMsg string) {
	c.SendEvent(EventError, map[string]string{
		"error": errorMsg,
	})
}
