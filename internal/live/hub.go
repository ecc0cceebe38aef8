// Package live pushes session snapshots to browser tabs over WebSocket, so
// timer-driven changes (delayed advances, countdown ticks) reach the client
// without polling.
package live

import (
	"log/slog"
	"sync"

	"github.com/ashureev/valentine/internal/valentine"
	"github.com/coder/websocket"
)

// subscriber is one connected tab. updates holds at most the latest
// snapshot not yet written.
type subscriber struct {
	conn    *websocket.Conn
	updates chan valentine.Snapshot

	closeOnce sync.Once
	done      chan struct{}
}

func newSubscriber(conn *websocket.Conn) *subscriber {
	return &subscriber{
		conn:    conn,
		updates: make(chan valentine.Snapshot, 1),
		done:    make(chan struct{}),
	}
}

// offer queues snap, replacing any snapshot still waiting to be written.
func (s *subscriber) offer(snap valentine.Snapshot) {
	for {
		select {
		case s.updates <- snap:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

func (s *subscriber) close(reason string) {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.conn != nil {
			_ = s.conn.Close(websocket.StatusNormalClosure, reason)
		}
	})
}

// Hub tracks the connected tab of every session.
type Hub struct {
	mu     sync.RWMutex
	active map[string]*subscriber
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{active: make(map[string]*subscriber)}
}

// Publish forwards snap to the tab watching the session, if any. It never blocks.
func (h *Hub) Publish(key string, snap valentine.Snapshot) {
	h.mu.RLock()
	sub := h.active[key]
	h.mu.RUnlock()

	if sub != nil {
		sub.offer(snap)
	}
}

// Register attaches sub to the session, replacing an older connection.
func (h *Hub) Register(key string, sub *subscriber) {
	h.mu.Lock()
	existing := h.active[key]
	h.active[key] = sub
	h.mu.Unlock()

	if existing != nil && existing != sub {
		existing.close("session replaced")
	}
	slog.Info("Live session registered", "session_key", key)
}

// Unregister detaches sub if it is still the session's connection.
func (h *Hub) Unregister(key string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.active[key]; ok && current == sub {
		delete(h.active, key)
		slog.Info("Live session unregistered", "session_key", key)
	}
}

// CloseSession disconnects the tab watching the session.
func (h *Hub) CloseSession(key string) {
	h.mu.Lock()
	sub, ok := h.active[key]
	delete(h.active, key)
	h.mu.Unlock()

	if ok {
		sub.close("session closed")
		slog.Info("Live session closed", "session_key", key)
	}
}

// Len returns the number of connected tabs.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active)
}
