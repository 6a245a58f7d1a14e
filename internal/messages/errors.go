package messages

import "errors"

var (
	ErrEmptyContent    = errors.New("message content is empty")
	ErrRoomNotFound    = errors.New("room not found")
	ErrNotParticipant  = errors.New("user is not a participant of the room")
	ErrMessageNotFound = errors.New("message not found")
)
