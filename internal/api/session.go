package api

import (
	"log/slog"
	"net/http"

	"github.com/ashureev/valentine/internal/identity"
	"github.com/ashureev/valentine/internal/valentine"
	"github.com/go-chi/chi/v5"
)

// SessionHandler exposes the visitor's session as a small JSON API. Every
// mutating endpoint answers with the session snapshot after the action.
type SessionHandler struct {
	*Handler
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(base *Handler) *SessionHandler {
	return &SessionHandler{Handler: base}
}

type startRequest struct {
	Name string `json:"name"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type namesRequest struct {
	NameA string `json:"name_a"`
	NameB string `json:"name_b"`
}

// RegisterRoutes registers session routes.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/session", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/", h.Start)
		r.Delete("/", h.Reset)

		r.Post("/answer", h.Answer)
		r.Post("/continue", h.action(func(m *valentine.Machine) (valentine.Snapshot, error) {
			return m.Continue()
		}))
		r.Post("/love", h.action(func(m *valentine.Machine) (valentine.Snapshot, error) {
			return m.OpenLoveCalculator()
		}))
		r.Post("/accept", h.action(func(m *valentine.Machine) (valentine.Snapshot, error) {
			return m.Accept()
		}))
		r.Post("/decline", h.Decline)

		r.Route("/games/{game}", func(r chi.Router) {
			r.Put("/names", h.SetNames)
			r.Post("/compute", h.gameAction(func(m *valentine.Machine, g valentine.GameKind) (valentine.Snapshot, error) {
				return m.Compute(g)
			}))
			r.Post("/retry", h.gameAction(func(m *valentine.Machine, g valentine.GameKind) (valentine.Snapshot, error) {
				return m.Retry(g)
			}))
		})
	})
}

// Get returns the current session, opening a fresh one on first visit.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	m := h.sessions.Open(identity.SessionKey(r.Context()))
	JSON(w, http.StatusOK, m.Snapshot())
}

// Start submits the visitor's name.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	key := identity.SessionKey(r.Context())
	snap, err := h.sessions.Open(key).Start(req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if snap.State == valentine.StateQuestions {
		slog.Info("Session started", "session_key", key)
	}
	JSON(w, http.StatusOK, snap)
}

// Reset discards the visitor's session in this tab.
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	key := identity.SessionKey(r.Context())
	if h.sessions.Remove(key) {
		slog.Info("Session reset", "session_key", key)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Answer submits an answer to the current question.
func (h *SessionHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.action(func(m *valentine.Machine) (valentine.Snapshot, error) {
		return m.Answer(req.Answer)
	})(w, r)
}

// Decline declines the proposal. The body optionally carries the viewport.
func (h *SessionHandler) Decline(w http.ResponseWriter, r *http.Request) {
	var vp valentine.Viewport
	if err := decodeBody(w, r, &vp); err != nil {
		writeError(w, r, err)
		return
	}
	h.action(func(m *valentine.Machine) (valentine.Snapshot, error) {
		return m.Decline(vp)
	})(w, r)
}

// SetNames stores the names typed into a game.
func (h *SessionHandler) SetNames(w http.ResponseWriter, r *http.Request) {
	var req namesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.gameAction(func(m *valentine.Machine, g valentine.GameKind) (valentine.Snapshot, error) {
		return m.SetNames(g, req.NameA, req.NameB)
	})(w, r)
}

// action runs op against the caller's existing session.
func (h *SessionHandler) action(op func(*valentine.Machine) (valentine.Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := h.sessions.Get(identity.SessionKey(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		snap, err := op(m)
		if err != nil {
			writeError(w, r, err)
			return
		}
		JSON(w, http.StatusOK, snap)
	}
}

func (h *SessionHandler) gameAction(op func(*valentine.Machine, valentine.GameKind) (valentine.Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, err := valentine.ParseGameKind(chi.URLParam(r, "game"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		h.action(func(m *valentine.Machine) (valentine.Snapshot, error) {
			return op(m, kind)
		})(w, r)
	}
}
