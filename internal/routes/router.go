package routes

import (
	"net/http"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/handlers"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/middleware"
	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Chat          *handlers.ChatHandler
	Notifications *handlers.NotificationHandler
	Users         *handlers.UserHandler
}

type RouterConfig struct {
	JWTSecret   string
	FrontendURL string
	Socket      *socketio.Server
	// Health reports dependency status; nil means always healthy
	Health func() map[string]string
}

// NewRouter assembles the HTTP surface: /api, /health, /metrics and /socket.io.
func NewRouter(cfg RouterConfig, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandlerMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.FrontendURL))
	r.Use(middleware.SecurityHeaders())

	r.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		checks := map[string]string{}
		if cfg.Health != nil {
			checks = cfg.Health()
		}
		for _, v := range checks {
			if v != "ok" {
				status = http.StatusServiceUnavailable
			}
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.Socket != nil {
		socket := handlers.SocketHTTPHandler(cfg.Socket)
		r.GET("/socket.io/*any", socket)
		r.POST("/socket.io/*any", socket)
	}

	auth := middleware.AuthMiddleware(cfg.JWTSecret)
	api := r.Group("/api")
	api.Use(middleware.GeneralRateLimit())
	RegisterChatRoutes(api, h.Chat, auth)
	RegisterNotificationRoutes(api, h.Notifications, auth)
	RegisterUserRoutes(api, h.Users, auth)

	return r
}
