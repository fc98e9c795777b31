package handlers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/handlers"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/hub"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/models"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/tests/testutil"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocketConnect(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tok, err := utils.GenerateToken("alice", secret, time.Hour)
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+tok)
	conn := testutil.NewConn("c1")
	userID, err := e.socket.Connect(ctx, conn, header, "")
	require.NoError(t, err)
	assert.Equal(t, "alice", userID)
	assert.Equal(t, hub.Open, e.app.Hub.State("c1"))

	// explicit auth field
	conn2 := testutil.NewConn("c2")
	bobTok, err := utils.GenerateToken("bob", secret, time.Hour)
	require.NoError(t, err)
	userID, err = e.socket.Connect(ctx, conn2, http.Header{}, bobTok)
	require.NoError(t, err)
	assert.Equal(t, "bob", userID)

	bad := testutil.NewConn("c3")
	_, err = e.socket.Connect(ctx, bad, http.Header{}, "nope")
	assert.Error(t, err)
	assert.True(t, bad.Closed())
	assert.Equal(t, hub.Closed, e.app.Hub.State("c3"))
}

func TestSocketSendMessage(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.connect(t, "alice")
	bob := e.connect(t, "bob")

	ack := e.socket.SendMessage(ctx, alice.ID(), handlers.SendPayload{TempID: "tmp-1", ReceiverID: "bob", Content: "hi bob"})
	require.True(t, ack.Success, ack.Error)
	assert.Equal(t, "tmp-1", ack.TempID)
	require.NotNil(t, ack.Message)
	assert.Equal(t, "hi bob", ack.Message.Content)

	assert.Equal(t, 1, bob.Count("new_message"))
	assert.Equal(t, 1, bob.Count("notification"))
	assert.Equal(t, 1, alice.Count("message_delivered"))

	ack = e.socket.SendMessage(ctx, alice.ID(), handlers.SendPayload{TempID: "tmp-2", RecipientID: "alice", Content: "me"})
	assert.False(t, ack.Success)
	assert.Equal(t, "tmp-2", ack.TempID)
	assert.NotEmpty(t, ack.Error)
	assert.False(t, ack.Retryable)

	ack = e.socket.SendMessage(ctx, "unknown-conn", handlers.SendPayload{ReceiverID: "bob", Content: "x"})
	assert.False(t, ack.Success)
}

func TestSocketTyping_Throttled(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.connect(t, "alice")
	bob := e.connect(t, "bob")

	target := handlers.TargetPayload{ReceiverID: "bob"}
	e.socket.Typing(ctx, alice.ID(), target, true)
	e.socket.Typing(ctx, alice.ID(), target, true)
	assert.Equal(t, 1, bob.Count("typing"))

	e.socket.Typing(ctx, alice.ID(), target, false)
	assert.Equal(t, 1, bob.Count("stop_typing"))

	e.socket.Typing(ctx, alice.ID(), handlers.TargetPayload{PartnerID: "bob"}, true)
	assert.Equal(t, 2, bob.Count("typing"))

	ev, ok := bob.Last("typing").(models.TypingEvent)
	require.True(t, ok)
	assert.Equal(t, "alice", ev.UserID)
	assert.Equal(t, models.ConversationID("alice", "bob"), ev.ChatID)
}

func TestSocketReadAndDelete(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.connect(t, "alice")
	bob := e.connect(t, "bob")

	m := e.send(t, "alice", "bob", "hello")

	ack := e.socket.MarkRead(ctx, alice.ID(), handlers.MessagePayload{MessageID: m.ID})
	assert.False(t, ack.Success)

	ack = e.socket.MarkRead(ctx, bob.ID(), handlers.MessagePayload{MessageID: m.ID})
	assert.True(t, ack.Success, ack.Error)
	assert.Equal(t, 1, alice.Count("message_read"))

	ack = e.socket.DeleteMessage(ctx, bob.ID(), handlers.MessagePayload{MessageID: m.ID})
	assert.False(t, ack.Success)

	ack = e.socket.DeleteMessage(ctx, alice.ID(), handlers.MessagePayload{MessageID: m.ID})
	assert.True(t, ack.Success, ack.Error)
	assert.Equal(t, 1, alice.Count("message_deleted"))
	assert.Equal(t, 1, bob.Count("message_deleted"))
}

func TestSocketMarkChatRead(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.connect(t, "alice")

	e.send(t, "bob", "alice", "1")
	e.send(t, "bob", "alice", "2")

	ack := e.socket.MarkChatRead(ctx, alice.ID(), handlers.TargetPayload{UserID: "bob"})
	require.True(t, ack.Success, ack.Error)

	list, err := e.app.ChatList.Get(ctx, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, list)
	assert.Equal(t, "bob", list[0].PartnerID)
	assert.Zero(t, list[0].UnreadCount)
}

func TestSocketOnlineUsers(t *testing.T) {
	e := newTestEnv(t)
	alice := e.connect(t, "alice")
	e.connect(t, "bob")

	e.socket.OnlineUsers(context.Background(), alice.ID())
	ids, ok := alice.Last("online_users").([]string)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"alice", "bob"}, ids)
}

func TestSocketSocial(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.connect(t, "alice")
	bob := e.connect(t, "bob")

	post := "post-1"
	ack := e.socket.Social(ctx, alice.ID(), "like", handlers.SocialPayload{TargetUserID: "bob", PostID: &post})
	require.True(t, ack.Success, ack.Error)
	require.Equal(t, 1, bob.Count("notification"))

	n, ok := bob.Last("notification").(models.NotificationEvent)
	require.True(t, ok)
	assert.Equal(t, models.NotificationTypeLike, n.Type)
	assert.Equal(t, "ALICE liked your post", n.Message)
	require.NotNil(t, n.PostID)
	assert.Equal(t, post, *n.PostID)

	// own post
	ack = e.socket.Social(ctx, alice.ID(), "like", handlers.SocialPayload{TargetUserID: "alice", PostID: &post})
	assert.True(t, ack.Success)
	assert.Zero(t, alice.Count("notification"))
}

func TestSocketDisconnect(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.connect(t, "alice")
	bob := e.connect(t, "bob")

	e.socket.Disconnect(ctx, alice.ID())
	assert.Equal(t, hub.Closed, e.app.Hub.State(alice.ID()))
	assert.Equal(t, 1, bob.Count("presence_offline"))

	online, err := e.app.Presence.IsOnline(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, online)
}
