package database

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/pulse-chat/internal/models"
	"gorm.io/gorm"
)

// PairKey — ключ поиска комнаты по неупорядоченной паре userId.
func PairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}

// GetOrCreatePrivateRoom идемпотентно возвращает комнату пары. Создание
// эксклюзивно: проигравший гонку по уникальному pair_key перечитывает
// комнату победителя.
func (d *Database) GetOrCreatePrivateRoom(creatorID, otherID string) (*models.Room, error) {
	key := PairKey(creatorID, otherID)

	room, err := d.findRoomByPairKey(key)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	newRoom := models.Room{
		ID:           uuid.New(),
		PairKey:      key,
		LastActivity: time.Now(),
		CreatedAt:    time.Now(),
	}

	err = d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&newRoom).Error; err != nil {
			return err
		}
		participants := []models.Participant{
			{RoomID: newRoom.ID, UserID: creatorID, Role: models.RoleAdmin},
			{RoomID: newRoom.ID, UserID: otherID, Role: models.RoleMember},
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		if isDuplicate(err) {
			return d.findRoomByPairKey(key)
		}
		return nil, err
	}

	return d.GetRoom(newRoom.ID)
}

func (d *Database) findRoomByPairKey(key string) (*models.Room, error) {
	var room models.Room
	err := d.db.
		Preload("Participants").
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("pair_key = ?", key).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// GetRoom возвращает комнату с участниками и полным логом сообщений в
// порядке seq.
func (d *Database) GetRoom(id uuid.UUID) (*models.Room, error) {
	var room models.Room
	err := d.db.
		Preload("Participants").
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		First(&room, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// GetUserRooms — комнаты, где состоит пользователь. Нужны presence-рассылке
// для room-scoped уведомлений.
func (d *Database) GetUserRooms(userID string) ([]models.Room, error) {
	var rooms []models.Room
	err := d.db.
		Joins("JOIN participants ON participants.room_id = rooms.id").
		Where("participants.user_id = ?", userID).
		Preload("Participants").
		Find(&rooms).Error
	return rooms, err
}
