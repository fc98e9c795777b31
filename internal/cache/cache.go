// Package cache is the Redis delivery cache: short-lived, non-authoritative
// copies of messages, conversations, chat lists and notification lists.
//
// Every read-modify-write goes through WATCH/MULTI so concurrent writers on
// any node cannot lose each other's updates.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/metrics"
	apperrors "github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultMessageTTL      = 7 * 24 * time.Hour
	DefaultChatListTTL     = 24 * time.Hour
	DefaultNotificationTTL = 20 * time.Minute

	// NotificationListCap bounds the per-user notification list
	NotificationListCap = 50

	maxCASAttempts = 8

	// fillMarker heads a conversation list reserved for a fill; it is not JSON
	fillMarker = "#fill"
	fillTTL    = 30 * time.Second

	messagePrefix      = "chat:msg:"
	conversationPrefix = "chat:conv:"
	chatListPrefix     = "chat:list:"
	notificationPrefix = "notif:list:"
)

// TTLs configures entry lifetimes. Zero values fall back to the defaults.
type TTLs struct {
	Message      time.Duration
	ChatList     time.Duration
	Notification time.Duration
}

func (t TTLs) withDefaults() TTLs {
	if t.Message <= 0 {
		t.Message = DefaultMessageTTL
	}
	if t.ChatList <= 0 {
		t.ChatList = DefaultChatListTTL
	}
	if t.Notification <= 0 {
		t.Notification = DefaultNotificationTTL
	}
	return t
}

type DeliveryCache struct {
	rdb *redis.Client
	ttl TTLs
}

func New(rdb *redis.Client, ttl TTLs) *DeliveryCache {
	return &DeliveryCache{rdb: rdb, ttl: ttl.withDefaults()}
}

func MessageKey(id string) string {
	return messagePrefix + id
}

// ConversationKey is scoped to one participant: each side of a conversation
// has its own list.
func ConversationKey(owner, partner string) string {
	return conversationPrefix + owner + ":" + partner
}

func ChatListKey(userID string) string {
	return chatListPrefix + userID
}

func NotificationsKey(userID string) string {
	return notificationPrefix + userID
}

var errGiveUp = errors.New("too many concurrent updates")

func unavailable(err error) error {
	return apperrors.Unavailable("delivery cache unavailable", err)
}

// cas runs fn under WATCH on keys, retrying while another writer wins the race.
func (c *DeliveryCache) cas(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		err := c.rdb.Watch(ctx, fn, keys...)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if _, ok := apperrors.As(err); ok {
			return err
		}
		return unavailable(err)
	}
	return unavailable(fmt.Errorf("%w on %v", errGiveUp, keys))
}

func encode(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", apperrors.Internal("failed to encode cache entry")
	}
	return string(data), nil
}

// Ping reports whether Redis answers.
func (c *DeliveryCache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (c *DeliveryCache) lookup(kind string, err error) (bool, error) {
	if errors.Is(err, redis.Nil) {
		metrics.Miss(kind)
		return false, nil
	}
	if err != nil {
		return false, unavailable(err)
	}
	metrics.Hit(kind)
	return true, nil
}
