package websocket

import (
	"encoding/json"
	"time"
)

// EventType определяет именованные события протокола
type EventType string

const (
	// client -> server
	EventGetConnectedUsers EventType = "getConnectedUsers"
	EventStartPrivateChat  EventType = "startPrivateChat"
	EventSendMessage       EventType = "sendMessage"
	EventMessageRead       EventType = "messageRead"

	// server -> client
	EventConnectedUsersList       EventType = "connectedUsersList"
	EventUserStatusChanged        EventType = "userStatusChanged"
	EventChatRoomJoined           EventType = "chatRoomJoined"
	EventReceiveMessage           EventType = "receiveMessage"
	EventMessageStatusUpdated     EventType = "messageStatusUpdated"
	EventParticipantStatusChanged EventType = "participantStatusChanged"
	EventError                    EventType = "error"
)

// Envelope — кадр протокола поверх WebSocket: имя события плюс payload.
// Timestamp в миллисекундах epoch, как ожидает клиент.
type Envelope struct {
	Event     EventType       `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// NewEnvelope собирает кадр с сериализованным payload.
func NewEnvelope(event EventType, data interface{}) (*Envelope, error) {
	env := &Envelope{
		Event:     event,
		Timestamp: time.Now().UnixMilli(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return env, nil
}

func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}
