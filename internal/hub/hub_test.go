package hub_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/hub"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/presence"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/tests/testutil"
	apperrors "github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/errors"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

type hookFunc func(ctx context.Context, s *hub.Session)

func (f hookFunc) OnOpen(ctx context.Context, s *hub.Session) { f(ctx, s) }

// stallingPresence holds MarkOffline until release is closed.
type stallingPresence struct {
	*presence.Registry
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *stallingPresence) MarkOffline(ctx context.Context, userID string) error {
	p.once.Do(func() { close(p.entered) })
	<-p.release
	return p.Registry.MarkOffline(ctx, userID)
}

func token(t *testing.T, userID string) string {
	tok, err := utils.GenerateToken(userID, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func newHub(t *testing.T) (*hub.Hub, *presence.Registry) {
	_, rdb := testutil.NewRedis(t)
	reg := presence.NewRegistry(rdb)
	return hub.New(reg, hub.Options{Secret: secret}), reg
}

func TestConnect_RejectsBadCredentials(t *testing.T) {
	h, reg := newHub(t)
	ctx := context.Background()

	for _, tok := range []string{"", "garbage"} {
		conn := testutil.NewConn("c-" + tok)
		s, err := h.Connect(ctx, conn, tok)
		assert.Nil(t, s)
		assert.True(t, apperrors.IsUnauthorized(err))
		assert.True(t, conn.Closed())
		assert.Equal(t, hub.Closed, h.State(conn.ID()))
	}

	online, err := reg.Online(ctx)
	require.NoError(t, err)
	assert.Empty(t, online)
}

func TestConnect_OpensAndMarksOnline(t *testing.T) {
	h, reg := newHub(t)
	ctx := context.Background()

	bobConn := testutil.NewConn("b1")
	_, err := h.Connect(ctx, bobConn, token(t, "bob"))
	require.NoError(t, err)

	aliceConn := testutil.NewConn("a1")
	s, err := h.Connect(ctx, aliceConn, token(t, "alice"))
	require.NoError(t, err)
	assert.Equal(t, "alice", s.UserID)
	assert.Equal(t, hub.Open, h.State("a1"))

	online, err := reg.IsOnline(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, online)

	assert.Contains(t, bobConn.Events(), "presence_online")
	assert.NotContains(t, aliceConn.Events(), "presence_online")
}

func TestConnect_LivePushesWaitForOpenHook(t *testing.T) {
	h, _ := newHub(t)
	ctx := context.Background()

	h.SetLifecycle(hookFunc(func(ctx context.Context, s *hub.Session) {
		// a concurrent sender lands while the backlog is still draining
		assert.True(t, h.EmitToUser(s.UserID, "new_message", "live"))
		s.Emit("new_message", "backlog-1")
		s.Emit("new_message", "backlog-2")
	}))

	conn := testutil.NewConn("c1")
	_, err := h.Connect(ctx, conn, token(t, "alice"))
	require.NoError(t, err)

	// the buffered live push lands after both backlog emits
	assert.Equal(t, []interface{}{"backlog-1", "backlog-2", "live"}, conn.Payloads())
	assert.True(t, h.EmitToUser("alice", "typing", nil))
	assert.Equal(t, "typing", conn.Events()[3])
}

func TestConnect_NewerConnectionReplacesOlder(t *testing.T) {
	h, reg := newHub(t)
	ctx := context.Background()

	first := testutil.NewConn("c1")
	_, err := h.Connect(ctx, first, token(t, "alice"))
	require.NoError(t, err)

	second := testutil.NewConn("c2")
	_, err = h.Connect(ctx, second, token(t, "alice"))
	require.NoError(t, err)

	assert.True(t, first.Closed())
	assert.Equal(t, hub.Closed, h.State("c1"))

	// the replaced connection's disconnect must not take the user offline
	h.Disconnect(ctx, "c1")
	online, err := reg.IsOnline(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, online)

	assert.True(t, h.EmitToUser("alice", "notification", nil))
	assert.Contains(t, second.Events(), "notification")
}

func TestDisconnect_ClearsPresenceAndBroadcasts(t *testing.T) {
	h, reg := newHub(t)
	ctx := context.Background()

	bobConn := testutil.NewConn("b1")
	_, err := h.Connect(ctx, bobConn, token(t, "bob"))
	require.NoError(t, err)
	_, err = h.Connect(ctx, testutil.NewConn("a1"), token(t, "alice"))
	require.NoError(t, err)

	h.Disconnect(ctx, "a1")
	h.Disconnect(ctx, "a1")

	assert.Equal(t, hub.Closed, h.State("a1"))
	assert.False(t, h.HasSession("alice"))
	assert.False(t, h.EmitToUser("alice", "new_message", nil))

	online, err := reg.IsOnline(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, online)
	assert.Contains(t, bobConn.Events(), "presence_offline")
}

func TestDisconnect_RacingReconnectStaysOnline(t *testing.T) {
	_, rdb := testutil.NewRedis(t)
	reg := presence.NewRegistry(rdb)
	p := &stallingPresence{Registry: reg, entered: make(chan struct{}), release: make(chan struct{})}
	h := hub.New(p, hub.Options{Secret: secret})
	ctx := context.Background()

	bobConn := testutil.NewConn("b1")
	_, err := h.Connect(ctx, bobConn, token(t, "bob"))
	require.NoError(t, err)
	_, err = h.Connect(ctx, testutil.NewConn("a1"), token(t, "alice"))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		h.Disconnect(ctx, "a1")
		close(done)
	}()
	<-p.entered

	_, err = h.Connect(ctx, testutil.NewConn("a2"), token(t, "alice"))
	require.NoError(t, err)
	close(p.release)
	<-done

	online, err := reg.IsOnline(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, online)
	assert.True(t, h.HasSession("alice"))
	assert.Zero(t, bobConn.Count("presence_offline"))
}

func TestHeartbeat_RestoresClearedFlagForLiveSession(t *testing.T) {
	h, reg := newHub(t)
	ctx := context.Background()

	_, err := h.Connect(ctx, testutil.NewConn("a1"), token(t, "alice"))
	require.NoError(t, err)
	require.NoError(t, reg.MarkOffline(ctx, "alice"))

	h.Heartbeat(ctx)

	online, err := reg.IsOnline(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, online)
}

func TestAllowTyping_Throttles(t *testing.T) {
	h, _ := newHub(t)
	s, err := h.Connect(context.Background(), testutil.NewConn("a1"), token(t, "alice"))
	require.NoError(t, err)

	assert.True(t, h.AllowTyping(s, "bob"))
	assert.False(t, h.AllowTyping(s, "bob"))
	assert.True(t, h.AllowTyping(s, "carol"))

	h.ResetTyping(s, "bob")
	assert.True(t, h.AllowTyping(s, "bob"))
}

func TestHeartbeat_SweepsGhosts(t *testing.T) {
	_, rdb := testutil.NewRedis(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := presence.NewRegistry(rdb).WithClock(func() time.Time { return now })
	h := hub.New(reg, hub.Options{Secret: secret, StaleAfter: time.Minute})
	ctx := context.Background()

	// left behind by a node that crashed
	require.NoError(t, reg.MarkOnline(ctx, "ghost"))

	conn := testutil.NewConn("a1")
	_, err := h.Connect(ctx, conn, token(t, "alice"))
	require.NoError(t, err)

	now = now.Add(5 * time.Minute)
	h.Heartbeat(ctx)

	ghost, err := reg.IsOnline(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ghost)

	alice, err := reg.IsOnline(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, alice)
	assert.Contains(t, conn.Events(), "presence_offline")
}

func TestShutdown_ClosesEverything(t *testing.T) {
	h, reg := newHub(t)
	ctx := context.Background()
	conn := testutil.NewConn("a1")
	_, err := h.Connect(ctx, conn, token(t, "alice"))
	require.NoError(t, err)

	h.Shutdown(ctx)
	assert.True(t, conn.Closed())
	assert.Empty(t, h.LocalUsers())

	online, err := reg.Online(ctx)
	require.NoError(t, err)
	assert.Empty(t, online)
}
