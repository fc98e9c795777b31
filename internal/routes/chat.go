package routes

import (
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/handlers"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/middleware"
	"github.com/gin-gonic/gin"
)

func RegisterChatRoutes(r gin.IRouter, h *handlers.ChatHandler, auth gin.HandlerFunc) {
	chat := r.Group("/chat")
	chat.Use(auth)
	{
		chat.GET("/conversations", h.GetConversations)
		chat.GET("/messages", h.GetMessages) // ?userId=...
		chat.POST("/messages", middleware.ChatRateLimit(), h.SendMessage)
		chat.POST("/messages/:id/read", h.MarkMessageRead)
		chat.DELETE("/messages/:id", h.DeleteMessage)
		chat.POST("/read/:partnerId", h.MarkConversationRead)
	}
}

func RegisterUserRoutes(r gin.IRouter, h *handlers.UserHandler, auth gin.HandlerFunc) {
	users := r.Group("/users")
	users.Use(auth)
	{
		users.GET("/online", h.GetOnlineUsers)
	}
}
