package routes

import (
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/handlers"
	"github.com/gin-gonic/gin"
)

func RegisterNotificationRoutes(r gin.IRouter, h *handlers.NotificationHandler, auth gin.HandlerFunc) {
	notifications := r.Group("/notifications")
	notifications.Use(auth)
	{
		notifications.GET("", h.GetNotifications)
		notifications.PUT("/:id/read", h.MarkNotificationRead)
	}
}
