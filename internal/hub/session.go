package hub

import (
	"sync"
	"time"
)

// Conn is the transport side of one live connection.
type Conn interface {
	ID() string
	Emit(event string, args ...interface{})
	Close() error
}

type State int

const (
	Connecting State = iota
	Authenticating
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Authenticating:
		return "authenticating"
	case Open:
		return "open"
	}
	return "closed"
}

type pushed struct {
	event   string
	payload interface{}
}

// Session is an authenticated connection. Pushes that arrive before the
// session is ready are held back and flushed in order once it is.
type Session struct {
	UserID string
	conn   Conn

	mu         sync.Mutex
	state      State
	ready      bool
	pending    []pushed
	lastTyping map[string]time.Time
}

func newSession(userID string, conn Conn) *Session {
	return &Session{
		UserID:     userID,
		conn:       conn,
		state:      Open,
		lastTyping: make(map[string]time.Time),
	}
}

func (s *Session) ConnID() string {
	return s.conn.ID()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Emit writes straight to the connection, ahead of anything pending. The
// open hook uses it to deliver the drained backlog.
func (s *Session) Emit(event string, payload interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Open {
		return false
	}
	s.conn.Emit(event, payload)
	return true
}

// push delivers a live event, buffering until ready.
func (s *Session) push(event string, payload interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Open {
		return false
	}
	if !s.ready {
		s.pending = append(s.pending, pushed{event: event, payload: payload})
		return true
	}
	s.conn.Emit(event, payload)
	return true
}

func (s *Session) markReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Open {
		return
	}
	for _, p := range s.pending {
		s.conn.Emit(p.event, p.payload)
	}
	s.pending = nil
	s.ready = true
}

// close reports whether this call moved the session out of Open.
func (s *Session) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return false
	}
	s.state = Closed
	s.pending = nil
	return true
}

func (s *Session) allowTyping(target string, now time.Time, every time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastTyping[target]; ok && now.Sub(last) < every {
		return false
	}
	s.lastTyping[target] = now
	return true
}

func (s *Session) clearTyping(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lastTyping, target)
}
