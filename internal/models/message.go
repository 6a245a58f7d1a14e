package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы сообщения. Переходы только вперёд: sent -> delivered -> read.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// Типы содержимого. Для image/file моделируется только тег.
const (
	TypeText  = "text"
	TypeImage = "image"
	TypeFile  = "file"
)

// Message — сообщение в комнате. Seq монотонно растёт внутри комнаты и
// задаёт тотальный порядок. Кроме Status запись неизменяема.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_room_seq"`
	Seq       int64     `gorm:"not null;uniqueIndex:idx_room_seq"`
	Sender    string    `gorm:"not null"`
	Content   string    `gorm:"not null"`
	Type      string    `gorm:"not null;default:'text'"`
	Status    string    `gorm:"not null;default:'sent'"`
	CreatedAt time.Time
}
