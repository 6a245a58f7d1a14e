package database

import (
	"github.com/thereayou/pulse-chat/internal/models"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// Migrate накатывает схему. Вынесено отдельно от Connect, чтобы тесты могли
// поднять sqlite in-memory без postgres.
func (d *Database) Migrate() error {
	return d.db.AutoMigrate(&models.User{}, &models.Room{}, &models.Participant{}, &models.Message{})
}
