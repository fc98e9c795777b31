package testutil

import "sync"

// FakeConn records every event pushed to it.
type FakeConn struct {
	ConnID string

	mu       sync.Mutex
	events   []string
	payloads []interface{}
	closed   bool
}

func NewConn(id string) *FakeConn {
	return &FakeConn{ConnID: id}
}

func (c *FakeConn) ID() string { return c.ConnID }

func (c *FakeConn) Emit(event string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	var payload interface{}
	if len(args) > 0 {
		payload = args[0]
	}
	c.payloads = append(c.payloads, payload)
}

func (c *FakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *FakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *FakeConn) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

func (c *FakeConn) Payloads() []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]interface{}(nil), c.payloads...)
}

// Count returns how many times event was emitted.
func (c *FakeConn) Count(event string) int {
	n := 0
	for _, e := range c.Events() {
		if e == event {
			n++
		}
	}
	return n
}

// Last returns the payload of the most recent event of that name.
func (c *FakeConn) Last(event string) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i] == event {
			return c.payloads[i]
		}
	}
	return nil
}
