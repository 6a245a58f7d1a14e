package messages

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/pulse-chat/internal/database"
	"github.com/thereayou/pulse-chat/internal/handlers/dto"
	"github.com/thereayou/pulse-chat/internal/models"
	ws "github.com/thereayou/pulse-chat/internal/websocket"
	"gorm.io/gorm"
)

// Pipeline принимает send-запросы: валидирует, присваивает id и порядковый
// номер, пишет в лог комнаты и раздает онлайн-участникам. Конкурентные
// отправки в одну комнату сериализуются per-room блокировкой, поэтому seq и
// createdAt монотонны для потребителей.
type Pipeline struct {
	db      *database.Database
	hub     *ws.Hub
	tracker *Tracker

	mu        sync.Mutex
	roomLocks map[uuid.UUID]*sync.Mutex
}

func NewPipeline(db *database.Database, hub *ws.Hub, tracker *Tracker) *Pipeline {
	return &Pipeline{
		db:        db,
		hub:       hub,
		tracker:   tracker,
		roomLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// Send обрабатывает запрос отправки. При отказе валидации ничего не
// сохраняется и не рассылается.
func (p *Pipeline) Send(roomID uuid.UUID, senderID, content, msgType string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	room, err := p.db.GetRoom(roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	if !room.HasParticipant(senderID) {
		return nil, ErrNotParticipant
	}

	if msgType == "" {
		msgType = models.TypeText
	}

	msg := &models.Message{
		Sender:    senderID,
		Content:   content,
		Type:      msgType,
		Status:    models.StatusSent,
		CreatedAt: time.Now(),
	}

	lock := p.roomLock(roomID)
	lock.Lock()
	err = p.db.AppendMessage(roomID, msg)
	lock.Unlock()
	if err != nil {
		return nil, err
	}

	p.deliver(room, msg)

	return msg, nil
}

// deliver раздает сообщение остальным участникам. Если хоть у одного
// получателя есть живая сессия, статус двигается в delivered и отправитель
// получает messageStatusUpdated. Доставка в каждую сессию получателя
// допускает дубли, клиент дедуплицирует по messageId.
func (p *Pipeline) deliver(room *models.Room, msg *models.Message) {
	recipientOnline := false
	for _, participant := range room.Participants {
		if participant.UserID == msg.Sender {
			continue
		}
		if p.hub.IsOnline(participant.UserID) {
			recipientOnline = true
		}
	}

	if recipientOnline {
		if advanced, err := p.db.AdvanceStatus(msg.ID, models.StatusDelivered); err == nil && advanced {
			msg.Status = models.StatusDelivered
		}
	}

	payload := MessagePayload(msg)
	for _, participant := range room.Participants {
		if participant.UserID == msg.Sender {
			continue
		}
		p.hub.SendEventToUser(participant.UserID, ws.EventReceiveMessage, payload)
	}

	if msg.Status == models.StatusDelivered {
		p.hub.SendEventToUser(msg.Sender, ws.EventMessageStatusUpdated, dto.MessageStatusUpdate{
			MessageID: msg.ID.String(),
			Status:    models.StatusDelivered,
			UserID:    msg.Sender,
		})
	}
}

func (p *Pipeline) roomLock(roomID uuid.UUID) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	lock, ok := p.roomLocks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		p.roomLocks[roomID] = lock
	}
	return lock
}

// MessagePayload переводит сообщение в формат клиента.
func MessagePayload(msg *models.Message) dto.MessageResponse {
	return dto.MessageResponse{
		MessageID: msg.ID.String(),
		Sender:    msg.Sender,
		Content:   msg.Content,
		Type:      msg.Type,
		Status:    msg.Status,
		CreatedAt: msg.CreatedAt.UnixMilli(),
	}
}
