// Package hub tracks live connections on this node and routes pushes to them.
// Online status for routing decisions is read from the presence registry,
// never from the hub's own maps.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/metrics"
	apperrors "github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/errors"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/logger"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/utils"
	"github.com/rs/zerolog"
)

const (
	DefaultTypingInterval    = 3 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultStaleAfter        = 2 * time.Minute
	DefaultOpTimeout         = 5 * time.Second
)

// Presence is what the hub writes to the presence registry.
type Presence interface {
	MarkOnline(ctx context.Context, userID string) error
	MarkOffline(ctx context.Context, userID string) error
	Touch(ctx context.Context, userIDs ...string) error
	Sweep(ctx context.Context, staleAfter time.Duration) ([]string, error)
}

// Lifecycle runs when a session opens, before queued live pushes flush.
type Lifecycle interface {
	OnOpen(ctx context.Context, s *Session)
}

type Options struct {
	Secret            string
	OpTimeout         time.Duration
	HeartbeatInterval time.Duration
	StaleAfter        time.Duration
	TypingInterval    time.Duration
}

func (o Options) withDefaults() Options {
	if o.OpTimeout <= 0 {
		o.OpTimeout = DefaultOpTimeout
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = DefaultStaleAfter
	}
	if o.TypingInterval <= 0 {
		o.TypingInterval = DefaultTypingInterval
	}
	return o
}

type presenceEvent struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

type Hub struct {
	opts      Options
	presence  Presence
	lifecycle Lifecycle
	now       func() time.Time
	log       zerolog.Logger

	mu         sync.RWMutex
	byUser     map[string]*Session
	byConn     map[string]*Session
	handshakes map[string]State
}

func New(p Presence, opts Options) *Hub {
	return &Hub{
		opts:       opts.withDefaults(),
		presence:   p,
		now:        time.Now,
		log:        logger.With("hub"),
		byUser:     make(map[string]*Session),
		byConn:     make(map[string]*Session),
		handshakes: make(map[string]State),
	}
}

// SetLifecycle installs the open hook. Call before serving connections.
func (h *Hub) SetLifecycle(l Lifecycle) {
	h.lifecycle = l
}

func (h *Hub) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), h.opts.OpTimeout)
}

func (h *Hub) setHandshake(connID string, st State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if st == Closed {
		delete(h.handshakes, connID)
		return
	}
	h.handshakes[connID] = st
}

// Connect authenticates conn with token and opens a session for its user.
// A rejected connection is closed and never reaches Open.
func (h *Hub) Connect(ctx context.Context, conn Conn, token string) (*Session, error) {
	connID := conn.ID()
	h.setHandshake(connID, Connecting)
	h.setHandshake(connID, Authenticating)

	if token == "" {
		h.reject(conn)
		return nil, apperrors.Unauthorized("authentication required")
	}
	claims, err := utils.ValidateToken(token, h.opts.Secret)
	if err != nil {
		h.reject(conn)
		return nil, apperrors.Unauthorized("invalid token")
	}

	s := newSession(claims.UserID, conn)
	h.mu.Lock()
	delete(h.handshakes, connID)
	old := h.byUser[s.UserID]
	h.byUser[s.UserID] = s
	h.byConn[connID] = s
	if old != nil {
		delete(h.byConn, old.ConnID())
	}
	h.mu.Unlock()

	metrics.OpenConnections.Inc()
	if old != nil && old.close() {
		metrics.OpenConnections.Dec()
		old.conn.Close()
		h.log.Info().Str("user_id", s.UserID).Str("conn_id", old.ConnID()).Msg("Replaced older connection")
	}

	opCtx, cancel := h.opContext(ctx)
	defer cancel()
	if err := h.presence.MarkOnline(opCtx, s.UserID); err != nil {
		h.log.Warn().Err(err).Str("user_id", s.UserID).Msg("Failed to mark user online")
	}
	h.Broadcast("presence_online", presenceEvent{UserID: s.UserID, IsOnline: true}, s.UserID)

	if h.lifecycle != nil {
		h.lifecycle.OnOpen(opCtx, s)
	}
	s.markReady()

	h.log.Info().Str("user_id", s.UserID).Str("conn_id", connID).Msg("Socket authenticated")
	return s, nil
}

func (h *Hub) reject(conn Conn) {
	h.setHandshake(conn.ID(), Closed)
	conn.Close()
	h.log.Warn().Str("conn_id", conn.ID()).Msg("Socket connection rejected")
}

// Disconnect closes the session on connID. Presence is cleared only when that
// session still owns its user.
func (h *Hub) Disconnect(ctx context.Context, connID string) {
	h.mu.Lock()
	delete(h.handshakes, connID)
	s := h.byConn[connID]
	if s == nil {
		h.mu.Unlock()
		return
	}
	delete(h.byConn, connID)
	owns := h.byUser[s.UserID] == s
	if owns {
		delete(h.byUser, s.UserID)
	}
	h.mu.Unlock()

	if s.close() {
		metrics.OpenConnections.Dec()
	}
	if !owns {
		return
	}

	opCtx, cancel := h.opContext(ctx)
	defer cancel()
	if err := h.presence.MarkOffline(opCtx, s.UserID); err != nil {
		h.log.Warn().Err(err).Str("user_id", s.UserID).Msg("Failed to mark user offline")
	}
	// A reconnect can register and mark online while MarkOffline is in flight.
	if h.HasSession(s.UserID) {
		if err := h.presence.MarkOnline(opCtx, s.UserID); err != nil {
			h.log.Warn().Err(err).Str("user_id", s.UserID).Msg("Failed to restore presence")
		}
		return
	}
	h.Broadcast("presence_offline", presenceEvent{UserID: s.UserID, IsOnline: false}, s.UserID)
}

// State reports the state of connID; unknown connections are Closed.
func (h *Hub) State(connID string) State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if s, ok := h.byConn[connID]; ok {
		return s.State()
	}
	if st, ok := h.handshakes[connID]; ok {
		return st
	}
	return Closed
}

// SessionFor returns the open session on connID.
func (h *Hub) SessionFor(connID string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.byConn[connID]
	return s, ok
}

// HasSession reports whether userID has a session on this node.
func (h *Hub) HasSession(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.byUser[userID]
	return ok
}

// EmitToUser pushes to userID's session on this node. It returns false when
// there is no open session to take the event.
func (h *Hub) EmitToUser(userID, event string, payload interface{}) bool {
	h.mu.RLock()
	s := h.byUser[userID]
	h.mu.RUnlock()
	if s == nil {
		return false
	}
	return s.push(event, payload)
}

// Broadcast pushes to every session except exceptUser's.
func (h *Hub) Broadcast(event string, payload interface{}, exceptUser string) {
	for _, s := range h.sessions() {
		if s.UserID == exceptUser {
			continue
		}
		s.push(event, payload)
	}
}

func (h *Hub) sessions() []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Session, 0, len(h.byUser))
	for _, s := range h.byUser {
		out = append(out, s)
	}
	return out
}

// LocalUsers lists users with a session on this node.
func (h *Hub) LocalUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.byUser))
	for id := range h.byUser {
		out = append(out, id)
	}
	return out
}

// AllowTyping throttles typing pushes per sender and target.
func (h *Hub) AllowTyping(s *Session, target string) bool {
	return s.allowTyping(target, h.now(), h.opts.TypingInterval)
}

// ResetTyping lets the next typing push through immediately.
func (h *Hub) ResetTyping(s *Session, target string) {
	s.clearTyping(target)
}

// Run refreshes heartbeats for local sessions and sweeps entries whose node
// stopped heartbeating, until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Heartbeat(ctx)
		}
	}
}

// Heartbeat runs one touch and sweep pass.
func (h *Hub) Heartbeat(ctx context.Context) {
	opCtx, cancel := h.opContext(ctx)
	defer cancel()

	if err := h.presence.Touch(opCtx, h.LocalUsers()...); err != nil {
		h.log.Warn().Err(err).Msg("Presence heartbeat failed")
		return
	}
	swept, err := h.presence.Sweep(opCtx, h.opts.StaleAfter)
	if err != nil {
		h.log.Warn().Err(err).Msg("Presence sweep failed")
		return
	}
	for _, id := range swept {
		if h.HasSession(id) {
			if err := h.presence.MarkOnline(opCtx, id); err != nil {
				h.log.Warn().Err(err).Str("user_id", id).Msg("Failed to restore presence")
			}
			continue
		}
		h.log.Info().Str("user_id", id).Msg("Cleared stale presence")
		h.Broadcast("presence_offline", presenceEvent{UserID: id, IsOnline: false}, id)
	}
}

// Shutdown closes every session and clears their presence.
func (h *Hub) Shutdown(ctx context.Context) {
	for _, s := range h.sessions() {
		connID := s.ConnID()
		h.Disconnect(ctx, connID)
		s.conn.Close()
	}
}
