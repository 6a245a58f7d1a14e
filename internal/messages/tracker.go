package messages

import (
	"errors"

	"github.com/google/uuid"
	"github.com/thereayou/pulse-chat/internal/database"
	"github.com/thereayou/pulse-chat/internal/handlers/dto"
	"github.com/thereayou/pulse-chat/internal/models"
	ws "github.com/thereayou/pulse-chat/internal/websocket"
	"gorm.io/gorm"
)

// Tracker — машина статусов сообщения: sent -> delivered -> read, только
// вперед. Монотонность обеспечивают условные UPDATE в хранилище, так что
// конкурентные подтверждения не откатывают статус.
type Tracker struct {
	db  *database.Database
	hub *ws.Hub
}

func NewTracker(db *database.Database, hub *ws.Hub) *Tracker {
	return &Tracker{db: db, hub: hub}
}

// MarkDelivered — no-op, если сообщение уже delivered или read.
func (t *Tracker) MarkDelivered(messageID uuid.UUID) error {
	_, err := t.db.AdvanceStatus(messageID, models.StatusDelivered)
	return err
}

// MarkRead подтверждает прочтение. Читатель обязан состоять в комнате.
// Подтверждение собственного сообщения разрешено и ничего не меняет
// (клиент шлет его при входе в комнату). При реальном переходе отправитель
// получает messageStatusUpdated во все свои сессии.
func (t *Tracker) MarkRead(messageID, roomID uuid.UUID, readerID string) error {
	room, err := t.db.GetRoom(roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoomNotFound
		}
		return err
	}

	if !room.HasParticipant(readerID) {
		return ErrNotParticipant
	}

	msg, err := t.db.GetMessage(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		return err
	}

	if msg.RoomID != roomID {
		return ErrMessageNotFound
	}

	if msg.Sender == readerID {
		return nil
	}

	advanced, err := t.db.AdvanceStatus(messageID, models.StatusRead)
	if err != nil {
		return err
	}
	if !advanced {
		// Уже read
		return nil
	}

	t.hub.SendEventToUser(msg.Sender, ws.EventMessageStatusUpdated, dto.MessageStatusUpdate{
		MessageID: msg.ID.String(),
		Status:    models.StatusRead,
		UserID:    readerID,
	})

	return nil
}
