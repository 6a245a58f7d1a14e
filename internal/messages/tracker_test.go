package messages_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/pulse-chat/internal/handlers/dto"
	"github.com/thereayou/pulse-chat/internal/messages"
	"github.com/thereayou/pulse-chat/internal/models"
	ws "github.com/thereayou/pulse-chat/internal/websocket"
)

func (f *fixture) storedMessage(t *testing.T, sender, content string) *models.Message {
	t.Helper()
	msg := &models.Message{Sender: sender, Content: content, Type: models.TypeText}
	require.NoError(t, f.db.AppendMessage(f.room.ID, msg))
	return msg
}

func TestMarkReadRequiresParticipant(t *testing.T) {
	f := newFixture(t)
	msg := f.storedMessage(t, "alice", "hi")

	err := f.tracker.MarkRead(msg.ID, f.room.ID, "mallory")
	assert.ErrorIs(t, err, messages.ErrNotParticipant)

	stored, err := f.db.GetMessage(msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, stored.Status)
}

func TestMarkReadUnknownMessage(t *testing.T) {
	f := newFixture(t)

	err := f.tracker.MarkRead(uuid.New(), f.room.ID, "bob")
	assert.ErrorIs(t, err, messages.ErrMessageNotFound)
}

func TestMarkReadUnknownRoom(t *testing.T) {
	f := newFixture(t)
	msg := f.storedMessage(t, "alice", "hi")

	err := f.tracker.MarkRead(msg.ID, uuid.New(), "bob")
	assert.ErrorIs(t, err, messages.ErrRoomNotFound)
}

func TestMarkReadForeignRoomMessage(t *testing.T) {
	f := newFixture(t)
	msg := f.storedMessage(t, "alice", "hi")

	other, err := f.db.GetOrCreatePrivateRoom("alice", "carol")
	require.NoError(t, err)

	err = f.tracker.MarkRead(msg.ID, other.ID, "carol")
	assert.ErrorIs(t, err, messages.ErrMessageNotFound)
}

func TestMarkReadOwnMessageIsNoop(t *testing.T) {
	f := newFixture(t)
	sender := f.connect(t, "alice")
	msg := f.storedMessage(t, "alice", "hi")

	// Клиент шлет messageRead на собственное сообщение при входе в комнату
	require.NoError(t, f.tracker.MarkRead(msg.ID, f.room.ID, "alice"))

	stored, err := f.db.GetMessage(msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, stored.Status)

	select {
	case <-sender.Send:
		t.Fatal("self-read must not emit a status update")
	default:
	}
}

func TestMarkReadNotifiesAllSenderSessions(t *testing.T) {
	f := newFixture(t)
	first := f.connect(t, "alice")
	second := f.connect(t, "alice")
	msg := f.storedMessage(t, "alice", "hi")

	require.NoError(t, f.tracker.MarkRead(msg.ID, f.room.ID, "bob"))

	for _, c := range []*ws.Client{first, second} {
		select {
		case raw := <-c.Send:
			event, data := decodeEvent(t, raw)
			require.Equal(t, ws.EventMessageStatusUpdated, event)
			var update dto.MessageStatusUpdate
			require.NoError(t, json.Unmarshal(data, &update))
			assert.Equal(t, msg.ID.String(), update.MessageID)
			assert.Equal(t, models.StatusRead, update.Status)
			assert.Equal(t, "bob", update.UserID)
		default:
			t.Fatalf("sender session %s did not receive the read receipt", c.ID)
		}
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	f := newFixture(t)
	sender := f.connect(t, "alice")
	msg := f.storedMessage(t, "alice", "hi")

	require.NoError(t, f.tracker.MarkRead(msg.ID, f.room.ID, "bob"))
	require.NoError(t, f.tracker.MarkRead(msg.ID, f.room.ID, "bob"))

	// Повторное подтверждение не дает второго события
	<-sender.Send
	select {
	case <-sender.Send:
		t.Fatal("duplicate read receipt emitted")
	default:
	}
}

func TestStatusNeverRegresses(t *testing.T) {
	f := newFixture(t)
	msg := f.storedMessage(t, "alice", "hi")

	require.NoError(t, f.tracker.MarkRead(msg.ID, f.room.ID, "bob"))
	require.NoError(t, f.tracker.MarkDelivered(msg.ID))

	stored, err := f.db.GetMessage(msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRead, stored.Status)
}
