package database

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/pulse-chat/internal/models"
	"gorm.io/gorm"
)

// AppendMessage дописывает сообщение в лог комнаты одной транзакцией:
// выдает следующий seq, пишет запись, двигает last_activity. Либо всё
// применяется целиком, либо ничего.
func (d *Database) AppendMessage(roomID uuid.UUID, msg *models.Message) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.First(&room, "id = ?", roomID).Error; err != nil {
			return err
		}

		msg.ID = uuid.New()
		msg.RoomID = roomID
		msg.Seq = room.LastSeq + 1
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now()
		}
		if msg.Status == "" {
			msg.Status = models.StatusSent
		}

		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		return tx.Model(&room).
			Updates(map[string]interface{}{"last_seq": msg.Seq, "last_activity": msg.CreatedAt}).Error
	})
}

func (d *Database) GetMessage(id uuid.UUID) (*models.Message, error) {
	var msg models.Message
	if err := d.db.First(&msg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetRoomMessages — страница истории до seq beforeSeq (0 — с конца),
// старые сообщения первыми.
func (d *Database) GetRoomMessages(roomID uuid.UUID, limit int, beforeSeq int64) ([]models.Message, error) {
	var messages []models.Message

	query := d.db.Where("room_id = ?", roomID)
	if beforeSeq > 0 {
		query = query.Where("seq < ?", beforeSeq)
	}

	err := query.Order("seq DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// AdvanceStatus двигает статус строго вперед. Условный UPDATE гарантирует
// монотонность на уровне хранилища: delivered применяется только из sent,
// read — из sent или delivered. Возвращает true, если переход состоялся.
func (d *Database) AdvanceStatus(id uuid.UUID, status string) (bool, error) {
	var from []string
	switch status {
	case models.StatusDelivered:
		from = []string{models.StatusSent}
	case models.StatusRead:
		from = []string{models.StatusSent, models.StatusDelivered}
	default:
		return false, errors.New("unknown message status: " + status)
	}

	res := d.db.Model(&models.Message{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
