package database

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/pulse-chat/internal/models"
	"gorm.io/gorm"
)

func (d *Database) SaveUser(user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return d.db.Create(user).Error
}

// EnsureUser создает запись каталога при первом подключении. Повторный вызов
// возвращает существующую запись; гонка двух сессий разрешается уникальным
// индексом по user_id.
func (d *Database) EnsureUser(userID string) (*models.User, error) {
	user := models.User{}
	err := d.db.Where("user_id = ?", userID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		ID:          uuid.New(),
		UserID:      userID,
		DisplayName: userID,
		LastSeenAt:  time.Now(),
		CreatedAt:   time.Now(),
	}
	if err := d.db.Create(&user).Error; err != nil {
		if isDuplicate(err) {
			if err := d.db.Where("user_id = ?", userID).First(&user).Error; err != nil {
				return nil, err
			}
			return &user, nil
		}
		return nil, err
	}
	return &user, nil
}

func (d *Database) GetUser(userID string) (*models.User, error) {
	user := models.User{}
	if err := d.db.Where("user_id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *Database) FindUserByName(username string) (*models.User, error) {
	user := models.User{}
	if err := d.db.Where("user_id = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers возвращает весь каталог в стабильном порядке первого появления.
func (d *Database) ListUsers() ([]models.User, error) {
	var users []models.User
	err := d.db.Order("created_at ASC, user_id ASC").Find(&users).Error
	return users, err
}

// SetOnline обновляет presence-поля каталога. При уходе в offline фиксируется
// last_seen.
func (d *Database) SetOnline(userID string, online bool, lastSeen time.Time) error {
	return d.db.Model(&models.User{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{"is_online": online, "last_seen_at": lastSeen}).Error
}

// isDuplicate распознает нарушение уникального индекса и у postgres, и у
// sqlite (тесты).
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
