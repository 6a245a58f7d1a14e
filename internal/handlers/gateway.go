package handlers

import (
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/thereayou/pulse-chat/internal/database"
	"github.com/thereayou/pulse-chat/internal/handlers/dto"
	"github.com/thereayou/pulse-chat/internal/messages"
	"github.com/thereayou/pulse-chat/internal/models"
	"github.com/thereayou/pulse-chat/internal/rooms"
	ws "github.com/thereayou/pulse-chat/internal/websocket"
)

// Gateway — тонкий адаптер между транспортом и ядром: разбирает входящие
// события сессии, зовет реестр/комнаты/пайплайн и сериализует ответы.
type Gateway struct {
	db       *database.Database
	hub      *ws.Hub
	rooms    *rooms.Manager
	pipeline *messages.Pipeline
	tracker  *messages.Tracker
}

func NewGateway(db *database.Database, hub *ws.Hub, roomMgr *rooms.Manager, pipeline *messages.Pipeline, tracker *messages.Tracker) *Gateway {
	return &Gateway{
		db:       db,
		hub:      hub,
		rooms:    roomMgr,
		pipeline: pipeline,
		tracker:  tracker,
	}
}

// HandleEvent реализует websocket.EventHandler.
func (g *Gateway) HandleEvent(client *ws.Client, env *ws.Envelope) error {
	switch env.Event {
	case ws.EventGetConnectedUsers:
		return g.handleGetConnectedUsers(client)

	case ws.EventStartPrivateChat:
		return g.handleStartPrivateChat(client, env.Data)

	case ws.EventSendMessage:
		return g.handleSendMessage(client, env.Data)

	case ws.EventMessageRead:
		return g.handleMessageRead(client, env.Data)

	default:
		log.Printf("Unknown event type: %s", env.Event)
		return nil
	}
}

func (g *Gateway) handleGetConnectedUsers(client *ws.Client) error {
	users, err := g.db.ListUsers()
	if err != nil {
		return err
	}

	list := dto.ConnectedUsersList{Users: make([]dto.UserStatus, 0, len(users))}
	for _, user := range users {
		list.Users = append(list.Users, dto.UserStatus{
			UserID:   user.UserID,
			IsOnline: g.hub.IsOnline(user.UserID),
			LastSeen: user.LastSeenAt.UnixMilli(),
		})
	}

	return client.SendEvent(ws.EventConnectedUsersList, list)
}

func (g *Gateway) handleStartPrivateChat(client *ws.Client, data json.RawMessage) error {
	var req dto.StartPrivateChatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return ws.ErrInvalidEvent
	}

	// Инициатор — владелец сессии, payload его не переопределяет
	initiator := client.UserID
	if req.UserID != "" && req.UserID != initiator {
		return rooms.ErrInvalidParticipant
	}

	room, err := g.rooms.StartPrivateChat(initiator, req.OtherUserID)
	if err != nil {
		return err
	}

	// Снимок комнаты уходит обеим сторонам, ответ push-ем, не RPC
	snapshot := g.roomSnapshot(room)
	for _, p := range room.Participants {
		g.hub.SendEventToUser(p.UserID, ws.EventChatRoomJoined, snapshot)
	}

	return nil
}

func (g *Gateway) handleSendMessage(client *ws.Client, data json.RawMessage) error {
	var req dto.SendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return ws.ErrInvalidEvent
	}

	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		return messages.ErrRoomNotFound
	}

	_, err = g.pipeline.Send(roomID, client.UserID, req.Message, req.Type)
	return err
}

func (g *Gateway) handleMessageRead(client *ws.Client, data json.RawMessage) error {
	var req dto.MessageReadRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return ws.ErrInvalidEvent
	}

	messageID, err := uuid.Parse(req.MessageID)
	if err != nil {
		return messages.ErrMessageNotFound
	}
	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		return messages.ErrRoomNotFound
	}

	return g.tracker.MarkRead(messageID, roomID, client.UserID)
}

// roomSnapshot собирает полный Room для chatRoomJoined: участники с живым
// presence на момент снимка плюс весь лог сообщений.
func (g *Gateway) roomSnapshot(room *models.Room) dto.RoomResponse {
	resp := dto.RoomResponse{
		RoomID:       room.ID.String(),
		Participants: make([]dto.ParticipantInfo, 0, len(room.Participants)),
		Messages:     make([]dto.MessageResponse, 0, len(room.Messages)),
		LastActivity: room.LastActivity.UnixMilli(),
	}

	for _, p := range room.Participants {
		info := dto.ParticipantInfo{
			UserID:   p.UserID,
			Role:     p.Role,
			IsOnline: g.hub.IsOnline(p.UserID),
		}
		if sessionID := g.hub.SessionID(p.UserID); sessionID != uuid.Nil {
			info.SocketID = sessionID.String()
		}
		if user, err := g.db.GetUser(p.UserID); err == nil {
			info.DisplayName = user.DisplayName
			info.LastSeen = user.LastSeenAt.UnixMilli()
		} else {
			info.DisplayName = p.UserID
		}
		resp.Participants = append(resp.Participants, info)
	}

	for i := range room.Messages {
		resp.Messages = append(resp.Messages, messages.MessagePayload(&room.Messages[i]))
	}

	return resp
}
