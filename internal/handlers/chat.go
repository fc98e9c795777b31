package handlers

import (
	"net/http"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/chatlist"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/models"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/services"
	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	Messaging *services.MessagingService
	ChatList  *chatlist.Aggregator
}

// GetConversations GET /chat/conversations
func (h *ChatHandler) GetConversations(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	list, err := h.ChatList.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": list})
}

// GetMessages GET /chat/messages?userId=
func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	messages, err := h.Messaging.Conversation(c.Request.Context(), userID, c.Query("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type sendMessageRequest struct {
	ReceiverID  string             `json:"receiverId"`
	RecipientID string             `json:"recipientId"`
	Content     string             `json:"content" binding:"required"`
	Type        models.ContentKind `json:"type"`
}

func (r sendMessageRequest) receiver() string {
	if r.ReceiverID != "" {
		return r.ReceiverID
	}
	return r.RecipientID
}

// SendMessage POST /chat/messages
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	msg, err := h.Messaging.Send(c.Request.Context(), services.SendRequest{
		SenderID:   userID,
		ReceiverID: req.receiver(),
		Content:    req.Content,
		Kind:       req.Type,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// MarkMessageRead POST /chat/messages/:id/read
func (h *ChatHandler) MarkMessageRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	msg, err := h.Messaging.MarkRead(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// MarkConversationRead POST /chat/read/:partnerId
func (h *ChatHandler) MarkConversationRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	n, err := h.Messaging.MarkConversationRead(c.Request.Context(), userID, c.Param("partnerId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"markedRead": n})
}

// DeleteMessage DELETE /chat/messages/:id
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	msg, err := h.Messaging.Delete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}
