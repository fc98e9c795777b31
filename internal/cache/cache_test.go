package cache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/cache"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/models"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/tests/testutil"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) (*miniredis.Miniredis, *cache.DeliveryCache) {
	mr, rdb := testutil.NewRedis(t)
	return mr, cache.New(rdb, cache.TTLs{})
}

func msg(id, from, to, content string) *models.Message {
	return &models.Message{
		ID: id, SenderID: from, ReceiverID: to, Content: content,
		Kind: models.KindText, DeliveryState: models.StateSent,
		ConversationID: models.ConversationID(from, to),
		CreatedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// fill caches msgs as owner's list the way a read-through does.
func fill(t *testing.T, c *cache.DeliveryCache, owner, partner string, msgs ...models.Message) {
	t.Helper()
	ctx := context.Background()
	reserved, err := c.ReserveConversation(ctx, owner, partner)
	require.NoError(t, err)
	require.True(t, reserved)
	require.NoError(t, c.PopulateConversation(ctx, owner, partner, msgs))
}

func TestMessageEntry_TTL(t *testing.T) {
	mr, c := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.PutMessage(ctx, msg("m1", "alice", "bob", "hi")))
	assert.Equal(t, 7*24*time.Hour, mr.TTL(cache.MessageKey("m1")))

	got, found, err := c.GetMessage(ctx, "m1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "hi", got.Content)

	_, found, err = c.GetMessage(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAppendToConversation_OnlyExtendsCachedLists(t *testing.T) {
	mr, c := newCache(t)
	ctx := context.Background()

	fill(t, c, "alice", "bob", *msg("m1", "alice", "bob", "one"))
	require.NoError(t, c.AppendToConversation(ctx, msg("m2", "bob", "alice", "two")))

	list, found, err := c.Conversation(ctx, "alice", "bob")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, list, 2)
	assert.Equal(t, "two", list[1].Content)

	// bob's side was never read, so it must stay a miss rather than a partial list
	_, found, err = c.Conversation(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, mr.Exists(cache.ConversationKey("bob", "alice")))
}

func TestPopulateConversation_DoesNotOverwrite(t *testing.T) {
	_, c := newCache(t)
	ctx := context.Background()

	fill(t, c, "alice", "bob", *msg("m1", "alice", "bob", "one"))

	reserved, err := c.ReserveConversation(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, reserved)
	require.NoError(t, c.PopulateConversation(ctx, "alice", "bob", []models.Message{*msg("stale", "alice", "bob", "old")}))

	list, _, err := c.Conversation(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "m1", list[0].ID)
}

func TestPopulateConversation_AppendDuringFillDropsList(t *testing.T) {
	mr, c := newCache(t)
	ctx := context.Background()

	reserved, err := c.ReserveConversation(ctx, "alice", "bob")
	require.NoError(t, err)
	require.True(t, reserved)

	_, found, err := c.Conversation(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, found, "a reserved list is a miss")

	// the store read returned only m1; m2 was sent before the fill completed
	require.NoError(t, c.AppendToConversation(ctx, msg("m2", "bob", "alice", "two")))
	require.NoError(t, c.PopulateConversation(ctx, "alice", "bob", []models.Message{*msg("m1", "alice", "bob", "one")}))

	_, found, err = c.Conversation(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, mr.Exists(cache.ConversationKey("alice", "bob")))
}

func TestPopulateConversation_PatchDuringFillDropsList(t *testing.T) {
	mr, c := newCache(t)
	ctx := context.Background()
	m := msg("m1", "alice", "bob", "one")

	reserved, err := c.ReserveConversation(ctx, "alice", "bob")
	require.NoError(t, err)
	require.True(t, reserved)

	require.NoError(t, c.PatchMessage(ctx, m.Ref(), func(cur *models.Message) { cur.IsRead = true }))
	require.NoError(t, c.PopulateConversation(ctx, "alice", "bob", []models.Message{*m}))

	assert.False(t, mr.Exists(cache.ConversationKey("alice", "bob")))
}

func TestPopulateConversation_ExpiredReservationIsNoop(t *testing.T) {
	mr, c := newCache(t)
	ctx := context.Background()

	reserved, err := c.ReserveConversation(ctx, "alice", "bob")
	require.NoError(t, err)
	require.True(t, reserved)
	mr.FastForward(time.Minute)

	require.NoError(t, c.PopulateConversation(ctx, "alice", "bob", []models.Message{*msg("m1", "alice", "bob", "one")}))
	assert.False(t, mr.Exists(cache.ConversationKey("alice", "bob")))
}

func TestPatchMessage_AllCopies(t *testing.T) {
	mr, c := newCache(t)
	ctx := context.Background()
	m := msg("m1", "alice", "bob", "hi")

	require.NoError(t, c.PutMessage(ctx, m))
	fill(t, c, "alice", "bob", *msg("m0", "bob", "alice", "before"), *m)
	fill(t, c, "bob", "alice", *m)
	mr.FastForward(time.Hour)

	err := c.PatchMessage(ctx, m.Ref(), func(cur *models.Message) {
		cur.DeliveryState = models.StateRead
		cur.IsRead = true
	})
	require.NoError(t, err)

	got, _, err := c.GetMessage(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, models.StateRead, got.DeliveryState)
	assert.Equal(t, 7*24*time.Hour-time.Hour, mr.TTL(cache.MessageKey("m1")))

	for _, owner := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
		list, _, err := c.Conversation(ctx, owner[0], owner[1])
		require.NoError(t, err)
		for _, item := range list {
			if item.ID == "m1" {
				assert.True(t, item.IsRead, owner)
			} else {
				assert.False(t, item.IsRead, owner)
			}
		}
	}
}

func TestPatchMessage_MissingCopiesAreSkipped(t *testing.T) {
	mr, c := newCache(t)
	err := c.PatchMessage(context.Background(), models.MessageRef{ID: "x", SenderID: "a", ReceiverID: "b"}, func(m *models.Message) {
		m.Content = "changed"
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.MessageKey("x")))
}

func TestPatchMessage_ConcurrentPatchesAllLand(t *testing.T) {
	_, c := newCache(t)
	ctx := context.Background()
	m := msg("m1", "alice", "bob", "")
	require.NoError(t, c.PutMessage(ctx, m))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := c.PatchMessage(ctx, m.Ref(), func(cur *models.Message) {
				cur.Content += fmt.Sprint(i)
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, _, err := c.GetMessage(ctx, "m1")
	require.NoError(t, err)
	assert.Len(t, got.Content, 5)
}

func TestInvalidateMessage(t *testing.T) {
	mr, c := newCache(t)
	ctx := context.Background()
	m := msg("m1", "alice", "bob", "hi")
	require.NoError(t, c.PutMessage(ctx, m))
	fill(t, c, "alice", "bob", *m)

	require.NoError(t, c.InvalidateMessage(ctx, m.Ref()))
	assert.False(t, mr.Exists(cache.MessageKey("m1")))
	assert.False(t, mr.Exists(cache.ConversationKey("alice", "bob")))
}

func TestUpdateChatList(t *testing.T) {
	mr, c := newCache(t)
	ctx := context.Background()

	found, err := c.UpdateChatList(ctx, "alice", func(list []models.ChatSummary) ([]models.ChatSummary, bool) {
		t.Fatal("update must not run on a miss")
		return list, true
	})
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.SetChatList(ctx, "alice", []models.ChatSummary{{PartnerID: "bob"}}))
	assert.Equal(t, 24*time.Hour, mr.TTL(cache.ChatListKey("alice")))

	found, err = c.UpdateChatList(ctx, "alice", func(list []models.ChatSummary) ([]models.ChatSummary, bool) {
		list[0].UnreadCount++
		return list, true
	})
	require.NoError(t, err)
	assert.True(t, found)

	list, found, err := c.ChatList(ctx, "alice")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, list[0].UnreadCount)
}

func TestUpdateChatList_ConcurrentIncrements(t *testing.T) {
	_, c := newCache(t)
	ctx := context.Background()
	require.NoError(t, c.SetChatList(ctx, "alice", []models.ChatSummary{{PartnerID: "bob"}}))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.UpdateChatList(ctx, "alice", func(list []models.ChatSummary) ([]models.ChatSummary, bool) {
				list[0].UnreadCount++
				return list, true
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	list, _, err := c.ChatList(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 5, list[0].UnreadCount)
}

func TestNotifications_CappedNewestFirst(t *testing.T) {
	mr, c := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.PushNotification(ctx, "alice", models.NotificationEvent{ID: "lost"}))
	_, found, err := c.Notifications(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, found, "pushing onto an uncached list must not create a partial one")

	require.NoError(t, c.SetNotifications(ctx, "alice", []models.NotificationEvent{{ID: "seed"}}))
	for i := 0; i < cache.NotificationListCap+5; i++ {
		require.NoError(t, c.PushNotification(ctx, "alice", models.NotificationEvent{ID: fmt.Sprint(i)}))
	}
	list, found, err := c.Notifications(ctx, "alice")
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, list, cache.NotificationListCap)
	assert.NotContains(t, list, models.NotificationEvent{ID: "seed"})
	assert.Equal(t, fmt.Sprint(cache.NotificationListCap+4), list[0].ID)
	assert.Equal(t, 20*time.Minute, mr.TTL(cache.NotificationsKey("alice")))

	require.NoError(t, c.InvalidateNotifications(ctx, "alice"))
	_, found, err = c.Notifications(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUnavailableWhenRedisDown(t *testing.T) {
	mr, c := newCache(t)
	mr.Close()

	err := c.PutMessage(context.Background(), msg("m1", "a", "b", "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delivery cache unavailable")
}
