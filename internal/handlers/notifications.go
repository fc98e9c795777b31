package handlers

import (
	"net/http"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/services"
	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	Notifier *services.Notifier
}

// GetNotifications GET /notifications
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	list, err := h.Notifier.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	unread := 0
	for _, n := range list {
		if !n.IsRead {
			unread++
		}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list, "unreadCount": unread})
}

// MarkNotificationRead PUT /notifications/:id/read
func (h *NotificationHandler) MarkNotificationRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.Notifier.MarkRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
