package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/pulse-chat/internal/database"
	"github.com/thereayou/pulse-chat/internal/handlers/dto"
	"github.com/thereayou/pulse-chat/internal/messages"
	"github.com/thereayou/pulse-chat/internal/middleware"
)

type HistoryHandler struct {
	db *database.Database
}

func NewHistoryHandler(db *database.Database) *HistoryHandler {
	return &HistoryHandler{db: db}
}

// GetRoomMessages отдает страницу истории комнаты. Доступ только участникам.
func (h *HistoryHandler) GetRoomMessages(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(string)

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	room, err := h.db.GetRoom(roomID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	if !room.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not a participant of this room"})
		return
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	var beforeSeq int64
	if before := c.Query("before"); before != "" {
		if parsed, err := strconv.ParseInt(before, 10, 64); err == nil && parsed > 0 {
			beforeSeq = parsed
		}
	}

	page, err := h.db.GetRoomMessages(roomID, limit, beforeSeq)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get messages"})
		return
	}

	result := make([]dto.MessageResponse, len(page))
	for i := range page {
		result[i] = messages.MessagePayload(&page[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": result,
		"has_more": len(page) == limit,
	})
}
