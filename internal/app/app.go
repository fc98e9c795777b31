// Package app wires the messaging core behind the HTTP and socket surfaces.
package app

import (
	"context"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/cache"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/chatlist"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/config"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/handlers"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/hub"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/middleware"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/presence"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/queue"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/routes"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/services"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/store"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/logger"
	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type App struct {
	Cache     *cache.DeliveryCache
	Presence  *presence.Registry
	Queue     *queue.OfflineQueue
	ChatList  *chatlist.Aggregator
	Hub       *hub.Hub
	Notifier  *services.Notifier
	Messaging *services.MessagingService
	Socket    *socketio.Server
	Router    *gin.Engine
}

// New builds every component. db holds the directory and notifications;
// messages may live elsewhere.
func New(cfg *config.Config, db *gorm.DB, messages store.MessageStore, rdb *redis.Client) *App {
	a := &App{
		Cache: cache.New(rdb, cache.TTLs{
			Message:      cfg.MessageCacheTTL,
			ChatList:     cfg.ChatListTTL,
			Notification: cfg.NotificationCacheTTL,
		}),
		Presence: presence.NewRegistry(rdb),
		Queue:    queue.New(rdb, cfg.OfflineQueueTTL),
	}
	directory := store.NewGormDirectory(db)
	a.ChatList = chatlist.NewAggregator(messages, directory, a.Cache, a.Presence)

	a.Hub = hub.New(a.Presence, hub.Options{
		Secret:            cfg.JWTSecret,
		OpTimeout:         cfg.OpTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		StaleAfter:        cfg.PresenceStaleAfter,
	})
	a.Notifier = services.NewNotifier(store.NewGormNotificationStore(db), directory, a.Cache,
		a.Presence, a.Hub, services.TemplateRenderer{}, cfg.OpTimeout)
	a.Messaging = services.NewMessagingService(services.MessagingDeps{
		Messages:  messages,
		Cache:     a.Cache,
		Presence:  a.Presence,
		Queue:     a.Queue,
		ChatList:  a.ChatList,
		Notifier:  a.Notifier,
		Hub:       a.Hub,
		OpTimeout: cfg.OpTimeout,
	})
	a.Hub.SetLifecycle(a.Messaging)

	a.Socket = handlers.NewSocketServer(&handlers.SocketHandler{
		Hub:       a.Hub,
		Messaging: a.Messaging,
		Notifier:  a.Notifier,
		Presence:  a.Presence,
	}, cfg.FrontendURL)

	a.Router = routes.NewRouter(routes.RouterConfig{
		JWTSecret:   cfg.JWTSecret,
		FrontendURL: cfg.FrontendURL,
		Socket:      a.Socket,
		Health: func() map[string]string {
			ctx := context.Background()
			checks := map[string]string{"database": "ok", "redis": "ok"}
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
				checks["database"] = "error"
			}
			if err := a.Cache.Ping(ctx); err != nil {
				checks["redis"] = "error"
			}
			return checks
		},
	}, routes.Handlers{
		Chat:          &handlers.ChatHandler{Messaging: a.Messaging, ChatList: a.ChatList},
		Notifications: &handlers.NotificationHandler{Notifier: a.Notifier},
		Users:         &handlers.UserHandler{Presence: a.Presence},
	})
	return a
}

// Run serves socket.io and runs the background loops until ctx is done.
func (a *App) Run(ctx context.Context) {
	go func() {
		if err := a.Socket.Serve(); err != nil {
			logger.Error().Err(err).Msg("Socket server stopped")
		}
	}()
	go middleware.GeneralLimiter.Run(ctx)
	go middleware.ChatLimiter.Run(ctx)
	a.Hub.Run(ctx)
}

// Shutdown closes every live session and the socket server.
func (a *App) Shutdown(ctx context.Context) {
	a.Hub.Shutdown(ctx)
	if err := a.Socket.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close socket server")
	}
}
