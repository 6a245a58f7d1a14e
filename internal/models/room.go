package models

import (
	"time"

	"github.com/google/uuid"
)

// Room — приватная комната на двоих. PairKey строится из отсортированной пары
// userId и держит уникальный индекс: одновременные запросы A->B и B->A
// создают ровно одну комнату. Состав участников после создания неизменяем.
type Room struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	PairKey      string    `gorm:"uniqueIndex;not null"`
	LastSeq      int64     `gorm:"not null;default:0"`
	LastActivity time.Time
	CreatedAt    time.Time

	Participants []Participant `gorm:"foreignKey:RoomID"`
	Messages     []Message     `gorm:"foreignKey:RoomID"`
}

// Participant — членство пользователя в комнате. Роль admin получает
// инициатор чата, чисто информационно.
type Participant struct {
	ID     int64     `gorm:"primaryKey"`
	RoomID uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID string    `gorm:"not null;index"`
	Role   string    `gorm:"not null;default:'member'"`
}

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// HasParticipant проверяет членство по userId.
func (r *Room) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
