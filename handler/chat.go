package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/legalclear/backend/model"
	"github.com/legalclear/backend/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatMessageRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
}

type chatMessageResponse struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func toChatMessageResponse(msg *model.ChatMessage) chatMessageResponse {
	return chatMessageResponse{
		ID:        msg.ID,
		SessionID: msg.SessionID,
		Type:      msg.MessageType,
		Message:   msg.Message,
		Timestamp: msg.Timestamp,
	}
}

// PostMessage appends a user message to the thread and returns the assistant
// reply.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req chatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	reply, err := h.chat.PostMessage(c.Request.Context(), c.Param("id"), req.SessionID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toChatMessageResponse(reply))
}

// GetHistory returns the thread's messages in arrival order. Without a
// session_id query parameter, all threads for the document are returned.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	msgs, err := h.chat.GetHistory(c.Request.Context(), c.Param("id"), c.Query("session_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	result := make([]chatMessageResponse, len(msgs))
	for i, msg := range msgs {
		result[i] = toChatMessageResponse(msg)
	}

	c.JSON(http.StatusOK, result)
}
