package dto

// Форматы payload событий. Имена полей и timestamp'ы в миллисекундах epoch —
// контракт клиента.

type UserStatus struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
	LastSeen int64  `json:"lastSeen"`
}

type ConnectedUsersList struct {
	Users []UserStatus `json:"users"`
}

type ParticipantInfo struct {
	SocketID    string `json:"socketId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	LastSeen    int64  `json:"lastSeen"`
	IsOnline    bool   `json:"isOnline"`
}

type MessageResponse struct {
	MessageID string `json:"messageId"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"createdAt"`
}

type RoomResponse struct {
	RoomID       string            `json:"roomId"`
	Participants []ParticipantInfo `json:"participants"`
	Messages     []MessageResponse `json:"messages"`
	LastActivity int64             `json:"lastActivity"`
}

type ParticipantStatus struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
	LastSeen int64  `json:"lastSeen"`
}

type MessageStatusUpdate struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
	UserID    string `json:"userId"`
}

type StartPrivateChatRequest struct {
	UserID      string `json:"userId"`
	OtherUserID string `json:"otherUserId"`
}

type SendMessageRequest struct {
	RoomID  string `json:"roomId"`
	UserID  string `json:"userId"`
	Message string `json:"message"`
	Type    string `json:"type,omitempty"` // text, image, file
}

type MessageReadRequest struct {
	MessageID string `json:"messageId"`
	RoomID    string `json:"roomId"`
	UserID    string `json:"userId"`
}
