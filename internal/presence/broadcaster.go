package presence

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/thereayou/pulse-chat/internal/database"
	"github.com/thereayou/pulse-chat/internal/handlers/dto"
	ws "github.com/thereayou/pulse-chat/internal/websocket"
)

const lastSeenTTL = 30 * 24 * time.Hour

// Broadcaster рассылает смены presence. Получает переходы от хаба,
// фиксирует их в каталоге и кэше и раздает:
//   - userStatusChanged — всем остальным сессиям (глобальный список);
//   - participantStatusChanged — сессиям соседей по комнатам.
//
// Рассылка best-effort: сбой доставки одной сессии не откатывает статус и
// не задерживает остальных.
type Broadcaster struct {
	hub   *ws.Hub
	db    *database.Database
	redis *redis.Client
}

func NewBroadcaster(hub *ws.Hub, db *database.Database, rdb *redis.Client) *Broadcaster {
	return &Broadcaster{hub: hub, db: db, redis: rdb}
}

// OnPresenceChanged реализует websocket.PresenceListener.
func (b *Broadcaster) OnPresenceChanged(userID string, isOnline bool, lastSeen time.Time) {
	if err := b.db.SetOnline(userID, isOnline, lastSeen); err != nil {
		log.Printf("Failed to persist presence for %s: %v", userID, err)
	}
	b.cacheLastSeen(userID, lastSeen)

	status := dto.UserStatus{
		UserID:   userID,
		IsOnline: isOnline,
		LastSeen: lastSeen.UnixMilli(),
	}

	b.hub.BroadcastEvent(ws.EventUserStatusChanged, status, userID)
	b.notifyRoomPeers(userID, isOnline, lastSeen)
}

// notifyRoomPeers шлет room-scoped обновление участникам всех комнат
// пользователя.
func (b *Broadcaster) notifyRoomPeers(userID string, isOnline bool, lastSeen time.Time) {
	rooms, err := b.db.GetUserRooms(userID)
	if err != nil {
		log.Printf("Failed to load rooms for presence fan-out (%s): %v", userID, err)
		return
	}

	for _, room := range rooms {
		update := dto.ParticipantStatus{
			RoomID:   room.ID.String(),
			UserID:   userID,
			IsOnline: isOnline,
			LastSeen: lastSeen.UnixMilli(),
		}
		for _, p := range room.Participants {
			if p.UserID == userID {
				continue
			}
			b.hub.SendEventToUser(p.UserID, ws.EventParticipantStatusChanged, update)
		}
	}
}

func (b *Broadcaster) cacheLastSeen(userID string, lastSeen time.Time) {
	if b.redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := b.redis.Set(ctx, "presence:last_seen:"+userID, lastSeen.UnixMilli(), lastSeenTTL).Err(); err != nil {
		log.Printf("Failed to cache last seen for %s: %v", userID, err)
	}
}
