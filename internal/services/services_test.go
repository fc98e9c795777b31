package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/cache"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/chatlist"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/hub"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/models"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/presence"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/queue"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/services"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/store"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/tests/testutil"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const secret = "test-secret"

// hookedStore runs test callbacks around message store reads.
type hookedStore struct {
	store.MessageStore
	afterList func()
	beforeGet func(id string) error
}

func (h *hookedStore) ListConversation(ctx context.Context, a, b string, order store.Order) ([]models.Message, error) {
	msgs, err := h.MessageStore.ListConversation(ctx, a, b, order)
	if f := h.afterList; f != nil {
		h.afterList = nil
		f()
	}
	return msgs, err
}

func (h *hookedStore) Get(ctx context.Context, id string) (*models.Message, error) {
	if h.beforeGet != nil {
		if err := h.beforeGet(id); err != nil {
			return nil, err
		}
	}
	return h.MessageStore.Get(ctx, id)
}

// hookedPresence runs afterLookup once, after the first IsOnline answer is read.
type hookedPresence struct {
	*presence.Registry
	afterLookup func(userID string)
}

func (h *hookedPresence) IsOnline(ctx context.Context, userID string) (bool, error) {
	online, err := h.Registry.IsOnline(ctx, userID)
	if f := h.afterLookup; f != nil {
		h.afterLookup = nil
		f(userID)
	}
	return online, err
}

type env struct {
	db        *gorm.DB
	messages  *store.GormMessageStore
	hooks     *hookedStore
	lookups   *hookedPresence
	cache     *cache.DeliveryCache
	presence  *presence.Registry
	queue     *queue.OfflineQueue
	chatList  *chatlist.Aggregator
	hub       *hub.Hub
	notifier  *services.Notifier
	messaging *services.MessagingService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)
	testutil.SeedUsers(t, db, "alice", "bob", "carol")

	e := &env{
		db:       db,
		messages: store.NewGormMessageStore(db),
		cache:    cache.New(rdb, cache.TTLs{}),
		presence: presence.NewRegistry(rdb),
		queue:    queue.New(rdb, 0),
	}
	e.hooks = &hookedStore{MessageStore: e.messages}
	e.lookups = &hookedPresence{Registry: e.presence}
	dir := store.NewGormDirectory(db)
	e.chatList = chatlist.NewAggregator(e.messages, dir, e.cache, e.presence)
	e.hub = hub.New(e.presence, hub.Options{Secret: secret})
	e.notifier = services.NewNotifier(store.NewGormNotificationStore(db), dir, e.cache, e.presence, e.hub, nil, time.Second)
	e.messaging = services.NewMessagingService(services.MessagingDeps{
		Messages:  e.hooks,
		Cache:     e.cache,
		Presence:  e.lookups,
		Queue:     e.queue,
		ChatList:  e.chatList,
		Notifier:  e.notifier,
		Hub:       e.hub,
		OpTimeout: time.Second,
	})
	e.hub.SetLifecycle(e.messaging)
	return e
}

func (e *env) connect(t *testing.T, userID string) *testutil.FakeConn {
	t.Helper()
	return e.connectAs(t, userID, userID+"-conn")
}

func (e *env) connectAs(t *testing.T, userID, connID string) *testutil.FakeConn {
	t.Helper()
	tok, err := utils.GenerateToken(userID, secret, time.Hour)
	require.NoError(t, err)
	conn := testutil.NewConn(connID)
	_, err = e.hub.Connect(context.Background(), conn, tok)
	require.NoError(t, err)
	return conn
}

func (e *env) send(t *testing.T, from, to, content string) *models.Message {
	t.Helper()
	m, err := e.messaging.Send(context.Background(), services.SendRequest{SenderID: from, ReceiverID: to, Content: content})
	require.NoError(t, err)
	return m
}

func (e *env) stored(t *testing.T, id string) *models.Message {
	t.Helper()
	m, err := e.messages.Get(context.Background(), id)
	require.NoError(t, err)
	return m
}
