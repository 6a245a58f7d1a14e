package models

import (
	"time"

	"github.com/google/uuid"
)

// User — запись каталога пользователей. UserID приходит извне (opaque id),
// создаётся при первом подключении и никогда не удаляется.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID       string    `gorm:"uniqueIndex;not null"`
	DisplayName  string
	PasswordHash string
	IsOnline     bool `gorm:"not null;default:false"`
	LastSeenAt   time.Time
	CreatedAt    time.Time `gorm:"index"`
}
