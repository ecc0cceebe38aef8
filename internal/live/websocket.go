package live

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ashureev/valentine/internal/identity"
	"github.com/ashureev/valentine/internal/valentine"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// Sessions opens the session a connection watches.
type Sessions interface {
	Open(key string) *valentine.Machine
}

// Message is what the server sends.
type Message struct {
	Type     string              `json:"type"`
	Snapshot *valentine.Snapshot `json:"snapshot,omitempty"`
}

type clientMessage struct {
	Type string `json:"type"`
}

// Handler upgrades requests to WebSocket and streams the caller's session.
type Handler struct {
	hub            *Hub
	sessions       Sessions
	allowedOrigins []string
	isDev          bool
}

// NewHandler creates a new WebSocket handler.
func NewHandler(hub *Hub, sessions Sessions, allowedOrigins []string, isDev bool) *Handler {
	return &Handler{
		hub:            hub,
		sessions:       sessions,
		allowedOrigins: allowedOrigins,
		isDev:          isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := identity.SessionKey(r.Context())
	slog.Info("WebSocket connection request", "session_key", key, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_key", key)
		return
	}

	sub := newSubscriber(ws)
	h.hub.Register(key, sub)
	defer h.hub.Unregister(key, sub)
	defer sub.close("session ended")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub.offer(h.sessions.Open(key).Snapshot())

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer cancel()
		h.readLoop(ctx, ws, key)
	}()

	go func() {
		defer wg.Done()
		defer cancel()
		h.writeLoop(ctx, ws, sub, key)
	}()

	wg.Wait()
	slog.Info("Live session ended", "session_key", key)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	slog.Warn("WebSocket origin rejected", "origin", origin)
	return false
}

// readLoop answers pings. Any client message keeps the session alive.
func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, key string) {
	for {
		var msg clientMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			switch {
			case websocket.CloseStatus(err) != -1, ctx.Err() != nil:
				slog.Debug("WebSocket closed", "session_key", key)
			default:
				slog.Warn("WebSocket read error", "error", err, "session_key", key)
			}
			return
		}

		h.sessions.Open(key)

		if msg.Type == "ping" {
			if err := write(ctx, ws, Message{Type: "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err, "session_key", key)
				return
			}
		}
	}
}

// writeLoop writes snapshots in version order, skipping stale ones. A
// snapshot from a different session always goes out: after a reset the
// versions start over.
func (h *Handler) writeLoop(ctx context.Context, ws *websocket.Conn, sub *subscriber, key string) {
	var (
		lastID string
		last   uint64
		sent   bool
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		case snap := <-sub.updates:
			if sent && snap.SessionID == lastID && snap.Version <= last {
				continue
			}
			if err := write(ctx, ws, Message{Type: "snapshot", Snapshot: &snap}); err != nil {
				slog.Debug("WebSocket write error", "error", err, "session_key", key)
				return
			}
			lastID, last, sent = snap.SessionID, snap.Version, true
		}
	}
}

func write(ctx context.Context, ws *websocket.Conn, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, msg)
}
