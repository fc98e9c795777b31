package cache

import (
	"context"
	"encoding/json"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/metrics"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/models"
	"github.com/redis/go-redis/v9"
)

// PutMessage writes the per-message entry.
func (c *DeliveryCache) PutMessage(ctx context.Context, m *models.Message) error {
	val, err := encode(m)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, MessageKey(m.ID), val, c.ttl.Message).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// GetMessage returns the cached copy. found is false on a miss.
func (c *DeliveryCache) GetMessage(ctx context.Context, id string) (*models.Message, bool, error) {
	data, err := c.rdb.Get(ctx, MessageKey(id)).Bytes()
	found, err := c.lookup("message", err)
	if !found {
		return nil, false, err
	}
	var m models.Message
	if err := json.Unmarshal(data, &m); err != nil {
		// unreadable entries count as misses
		return nil, false, nil
	}
	return &m, true, nil
}

// AppendToConversation adds m to both participants' cached lists. Lists that
// are not cached stay absent, so a later read still goes to the store.
func (c *DeliveryCache) AppendToConversation(ctx context.Context, m *models.Message) error {
	val, err := encode(m)
	if err != nil {
		return err
	}
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range []string{
			ConversationKey(m.SenderID, m.ReceiverID),
			ConversationKey(m.ReceiverID, m.SenderID),
		} {
			pipe.RPushX(ctx, key, val)
			pipe.Expire(ctx, key, c.ttl.Message)
		}
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// Conversation returns owner's cached list with partner, oldest first. A list
// that is still being filled reads as a miss.
func (c *DeliveryCache) Conversation(ctx context.Context, owner, partner string) ([]models.Message, bool, error) {
	key := ConversationKey(owner, partner)
	raw, err := c.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, false, unavailable(err)
	}
	if len(raw) == 0 || raw[0] == fillMarker {
		if len(raw) > 1 {
			// writes landed on a reservation; appends keep it past fillTTL
			c.rdb.Del(ctx, key)
		}
		metrics.Miss("conversation")
		return nil, false, nil
	}
	metrics.Hit("conversation")

	out := make([]models.Message, 0, len(raw))
	for _, item := range raw {
		var m models.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, true, nil
}

// ReserveConversation claims owner's absent list for a fill. It must be called
// before the store read that feeds PopulateConversation: appends and patches
// that land on the reserved list in between tell the fill its read is stale.
// reserved is false when the list exists or another fill holds it.
func (c *DeliveryCache) ReserveConversation(ctx context.Context, owner, partner string) (bool, error) {
	key := ConversationKey(owner, partner)
	reserved := false
	err := c.cas(ctx, func(tx *redis.Tx) error {
		reserved = false
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, key, fillMarker)
			pipe.Expire(ctx, key, fillTTL)
			return nil
		})
		if err == nil {
			reserved = true
		}
		return err
	}, key)
	return reserved, err
}

// PopulateConversation completes a fill started by ReserveConversation. When
// anything was written to the list since the reservation, msgs may be missing
// it, so the list is dropped and the next read goes back to the store.
func (c *DeliveryCache) PopulateConversation(ctx context.Context, owner, partner string, msgs []models.Message) error {
	vals := make([]interface{}, 0, len(msgs))
	for i := range msgs {
		val, err := encode(&msgs[i])
		if err != nil {
			return err
		}
		vals = append(vals, val)
	}

	key := ConversationKey(owner, partner)
	return c.cas(ctx, func(tx *redis.Tx) error {
		items, err := tx.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return err
		}
		if len(items) == 0 || items[0] != fillMarker {
			// reservation expired or was never ours
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			if len(items) > 1 || len(vals) == 0 {
				return nil
			}
			pipe.RPush(ctx, key, vals...)
			pipe.Expire(ctx, key, c.ttl.Message)
			return nil
		})
		return err
	}, key)
}

// PatchMessage applies patch to every cached copy of ref: the message entry
// and both conversation lists. Missing copies are skipped. Remaining TTLs are
// kept.
func (c *DeliveryCache) PatchMessage(ctx context.Context, ref models.MessageRef, patch func(*models.Message)) error {
	msgKey := MessageKey(ref.ID)
	convKeys := []string{
		ConversationKey(ref.SenderID, ref.ReceiverID),
		ConversationKey(ref.ReceiverID, ref.SenderID),
	}

	return c.cas(ctx, func(tx *redis.Tx) error {
		type write struct {
			key   string
			index int64
			val   string
			stale bool
		}
		var writes []write

		data, err := tx.Get(ctx, msgKey).Bytes()
		switch {
		case err == redis.Nil:
		case err != nil:
			return err
		default:
			var m models.Message
			if json.Unmarshal(data, &m) == nil {
				patch(&m)
				val, err := encode(&m)
				if err != nil {
					return err
				}
				writes = append(writes, write{key: msgKey, index: -1, val: val})
			}
		}

		for _, key := range convKeys {
			items, err := tx.LRange(ctx, key, 0, -1).Result()
			if err != nil {
				return err
			}
			if len(items) > 0 && items[0] == fillMarker {
				writes = append(writes, write{key: key, stale: true})
			}
			for i, item := range items {
				var m models.Message
				if json.Unmarshal([]byte(item), &m) != nil || m.ID != ref.ID {
					continue
				}
				patch(&m)
				val, err := encode(&m)
				if err != nil {
					return err
				}
				writes = append(writes, write{key: key, index: int64(i), val: val})
			}
		}

		if len(writes) == 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, w := range writes {
				if w.stale {
					pipe.RPush(ctx, w.key, fillMarker)
					continue
				}
				if w.index < 0 {
					pipe.SetArgs(ctx, w.key, w.val, redis.SetArgs{KeepTTL: true})
					continue
				}
				pipe.LSet(ctx, w.key, w.index, w.val)
			}
			return nil
		})
		return err
	}, append([]string{msgKey}, convKeys...)...)
}

// InvalidateMessage drops every cached copy of ref.
func (c *DeliveryCache) InvalidateMessage(ctx context.Context, ref models.MessageRef) error {
	err := c.rdb.Del(ctx,
		MessageKey(ref.ID),
		ConversationKey(ref.SenderID, ref.ReceiverID),
		ConversationKey(ref.ReceiverID, ref.SenderID),
	).Err()
	if err != nil {
		return unavailable(err)
	}
	return nil
}
