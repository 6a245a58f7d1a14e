package rooms

import (
	"sync"

	"github.com/thereayou/pulse-chat/internal/database"
	"github.com/thereayou/pulse-chat/internal/models"
)

// Manager владеет жизненным циклом приватных комнат. Ключ комнаты —
// неупорядоченная пара userId, поэтому повторный startPrivateChat в любом
// порядке возвращает ту же комнату и не трогает историю.
type Manager struct {
	db *database.Database

	// Per-pair блокировки: одновременные запросы обеих сторон сериализуются
	// до обращения к хранилищу
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewManager(db *database.Database) *Manager {
	return &Manager{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}
}

// StartPrivateChat возвращает комнату пары, создавая ее при первом
// обращении. Создание эксклюзивно: ровно одна комната на пару.
func (m *Manager) StartPrivateChat(userID, otherUserID string) (*models.Room, error) {
	if userID == "" || otherUserID == "" || userID == otherUserID {
		return nil, ErrInvalidParticipant
	}

	// Обе стороны должны существовать в каталоге до создания комнаты
	if _, err := m.db.EnsureUser(userID); err != nil {
		return nil, err
	}
	if _, err := m.db.EnsureUser(otherUserID); err != nil {
		return nil, err
	}

	key := database.PairKey(userID, otherUserID)
	lock := m.pairLock(key)
	lock.Lock()
	defer lock.Unlock()

	return m.db.GetOrCreatePrivateRoom(userID, otherUserID)
}

func (m *Manager) pairLock(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[key] = lock
	}
	return lock
}
