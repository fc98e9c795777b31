package cache

import (
	"context"
	"encoding/json"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/models"
	"github.com/redis/go-redis/v9"
)

// ChatList returns the cached chat list. found is false on a miss.
func (c *DeliveryCache) ChatList(ctx context.Context, userID string) ([]models.ChatSummary, bool, error) {
	data, err := c.rdb.Get(ctx, ChatListKey(userID)).Bytes()
	found, err := c.lookup("chat_list", err)
	if !found {
		return nil, false, err
	}
	var list []models.ChatSummary
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, false, nil
	}
	return list, true, nil
}

// SetChatList replaces the cached chat list and resets its TTL.
func (c *DeliveryCache) SetChatList(ctx context.Context, userID string, list []models.ChatSummary) error {
	if list == nil {
		list = []models.ChatSummary{}
	}
	val, err := encode(list)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, ChatListKey(userID), val, c.ttl.ChatList).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// UpdateChatList applies update to the cached chat list atomically. found is
// false when no list is cached; update is not called then. update returns
// false to skip the write.
func (c *DeliveryCache) UpdateChatList(ctx context.Context, userID string, update func([]models.ChatSummary) ([]models.ChatSummary, bool)) (bool, error) {
	key := ChatListKey(userID)
	found := false

	err := c.cas(ctx, func(tx *redis.Tx) error {
		found = false
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		var list []models.ChatSummary
		if json.Unmarshal(data, &list) != nil {
			return nil
		}
		found = true

		next, write := update(list)
		if !write {
			return nil
		}
		if next == nil {
			next = []models.ChatSummary{}
		}
		val, err := encode(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, val, c.ttl.ChatList)
			return nil
		})
		return err
	}, key)
	return found, err
}

func (c *DeliveryCache) InvalidateChatList(ctx context.Context, userID string) error {
	if err := c.rdb.Del(ctx, ChatListKey(userID)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// PushNotification prepends n to userID's cached list and trims it to the
// cap. An uncached list stays absent so the next read loads the full history.
func (c *DeliveryCache) PushNotification(ctx context.Context, userID string, n models.NotificationEvent) error {
	val, err := encode(n)
	if err != nil {
		return err
	}
	key := NotificationsKey(userID)
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPushX(ctx, key, val)
		pipe.LTrim(ctx, key, 0, NotificationListCap-1)
		pipe.Expire(ctx, key, c.ttl.Notification)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// Notifications returns the cached list, newest first.
func (c *DeliveryCache) Notifications(ctx context.Context, userID string) ([]models.NotificationEvent, bool, error) {
	raw, err := c.rdb.LRange(ctx, NotificationsKey(userID), 0, -1).Result()
	if err != nil {
		return nil, false, unavailable(err)
	}
	if len(raw) == 0 {
		return nil, false, nil
	}
	out := make([]models.NotificationEvent, 0, len(raw))
	for _, item := range raw {
		var n models.NotificationEvent
		if json.Unmarshal([]byte(item), &n) == nil {
			out = append(out, n)
		}
	}
	return out, true, nil
}

// SetNotifications replaces the cached list with store contents, newest first.
func (c *DeliveryCache) SetNotifications(ctx context.Context, userID string, list []models.NotificationEvent) error {
	key := NotificationsKey(userID)
	if len(list) > NotificationListCap {
		list = list[:NotificationListCap]
	}
	vals := make([]interface{}, 0, len(list))
	for _, n := range list {
		val, err := encode(n)
		if err != nil {
			return err
		}
		vals = append(vals, val)
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(vals) > 0 {
			pipe.RPush(ctx, key, vals...)
			pipe.Expire(ctx, key, c.ttl.Notification)
		}
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (c *DeliveryCache) InvalidateNotifications(ctx context.Context, userID string) error {
	if err := c.rdb.Del(ctx, NotificationsKey(userID)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}
