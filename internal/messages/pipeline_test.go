package messages_test

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/pulse-chat/internal/database"
	"github.com/thereayou/pulse-chat/internal/handlers/dto"
	"github.com/thereayou/pulse-chat/internal/messages"
	"github.com/thereayou/pulse-chat/internal/models"
	ws "github.com/thereayou/pulse-chat/internal/websocket"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *database.Database {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	db := database.NewDatabase(gdb)
	require.NoError(t, db.Migrate())
	return db
}

type fixture struct {
	db       *database.Database
	hub      *ws.Hub
	pipeline *messages.Pipeline
	tracker  *messages.Tracker
	room     *models.Room
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newTestDB(t)
	hub := ws.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	tracker := messages.NewTracker(db, hub)
	pipeline := messages.NewPipeline(db, hub, tracker)

	room, err := db.GetOrCreatePrivateRoom("alice", "bob")
	require.NoError(t, err)

	return &fixture{db: db, hub: hub, pipeline: pipeline, tracker: tracker, room: room}
}

// connect поднимает сессию пользователя и ждет регистрации в хабе.
func (f *fixture) connect(t *testing.T, userID string) *ws.Client {
	t.Helper()
	client := ws.NewClient(f.hub, nil, userID)
	f.hub.Register(client)
	require.Eventually(t, func() bool { return f.hub.SessionCount(userID) > 0 }, time.Second, 5*time.Millisecond)
	return client
}

func decodeEvent(t *testing.T, raw []byte) (ws.EventType, json.RawMessage) {
	t.Helper()
	var env ws.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env.Event, env.Data
}

func TestSendRejectsBlankContent(t *testing.T) {
	f := newFixture(t)

	for _, content := range []string{"", "   ", "\n\t "} {
		_, err := f.pipeline.Send(f.room.ID, "alice", content, "")
		assert.ErrorIs(t, err, messages.ErrEmptyContent)
	}

	stored, err := f.db.GetRoomMessages(f.room.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestSendUnknownRoom(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipeline.Send(uuid.New(), "alice", "hi", "")
	assert.ErrorIs(t, err, messages.ErrRoomNotFound)
}

func TestSendRejectsOutsider(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipeline.Send(f.room.ID, "mallory", "hi", "")
	assert.ErrorIs(t, err, messages.ErrNotParticipant)
}

func TestSendStaysSentWhenRecipientOffline(t *testing.T) {
	f := newFixture(t)

	msg, err := f.pipeline.Send(f.room.ID, "alice", "hi", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, msg.Status)

	stored, err := f.db.GetMessage(msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, stored.Status)
}

func TestSendDeliversToOnlineRecipient(t *testing.T) {
	f := newFixture(t)

	sender := f.connect(t, "alice")
	recipient := f.connect(t, "bob")

	msg, err := f.pipeline.Send(f.room.ID, "alice", "hi", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, msg.Status)

	// Получатель видит receiveMessage уже со статусом delivered
	select {
	case raw := <-recipient.Send:
		event, data := decodeEvent(t, raw)
		require.Equal(t, ws.EventReceiveMessage, event)
		var payload dto.MessageResponse
		require.NoError(t, json.Unmarshal(data, &payload))
		assert.Equal(t, msg.ID.String(), payload.MessageID)
		assert.Equal(t, "hi", payload.Content)
		assert.Equal(t, models.StatusDelivered, payload.Status)
		assert.Equal(t, models.TypeText, payload.Type)
	default:
		t.Fatal("recipient did not receive the message")
	}

	// Отправителю приходит смена статуса
	select {
	case raw := <-sender.Send:
		event, data := decodeEvent(t, raw)
		require.Equal(t, ws.EventMessageStatusUpdated, event)
		var update dto.MessageStatusUpdate
		require.NoError(t, json.Unmarshal(data, &update))
		assert.Equal(t, msg.ID.String(), update.MessageID)
		assert.Equal(t, models.StatusDelivered, update.Status)
	default:
		t.Fatal("sender did not receive the status update")
	}
}

func TestSendDuplicatesToAllRecipientSessions(t *testing.T) {
	f := newFixture(t)

	first := f.connect(t, "bob")
	second := f.connect(t, "bob")
	require.Eventually(t, func() bool { return f.hub.SessionCount("bob") == 2 }, time.Second, 5*time.Millisecond)

	msg, err := f.pipeline.Send(f.room.ID, "alice", "hi", "")
	require.NoError(t, err)

	// Каждая сессия получателя получает свой кадр, дедупликация по
	// messageId на клиенте
	for _, c := range []*ws.Client{first, second} {
		select {
		case raw := <-c.Send:
			event, data := decodeEvent(t, raw)
			require.Equal(t, ws.EventReceiveMessage, event)
			var payload dto.MessageResponse
			require.NoError(t, json.Unmarshal(data, &payload))
			assert.Equal(t, msg.ID.String(), payload.MessageID)
		default:
			t.Fatalf("session %s did not receive the message", c.ID)
		}
	}
}

func TestConcurrentSendsKeepTotalOrder(t *testing.T) {
	f := newFixture(t)

	const senders = 10
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.pipeline.Send(f.room.ID, "alice", "ping", "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := f.db.GetRoomMessages(f.room.ID, senders, 0)
	require.NoError(t, err)
	require.Len(t, stored, senders)

	seen := make(map[uuid.UUID]bool)
	for i, msg := range stored {
		assert.Equal(t, int64(i+1), msg.Seq)
		assert.False(t, seen[msg.ID], "duplicate message id")
		seen[msg.ID] = true
		if i > 0 {
			assert.False(t, msg.CreatedAt.Before(stored[i-1].CreatedAt))
		}
	}
}
