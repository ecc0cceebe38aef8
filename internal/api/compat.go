package api

import (
	"net/http"
	"strings"

	"github.com/ashureev/valentine/internal/compat"
	"github.com/go-chi/chi/v5"
)

// CompatHandler serves stateless compatibility lookups.
type CompatHandler struct{}

// NewCompatHandler creates a new compatibility handler.
func NewCompatHandler() *CompatHandler {
	return &CompatHandler{}
}

// CompatResponse carries both games for one pair of names.
type CompatResponse struct {
	A      string        `json:"a"`
	B      string        `json:"b"`
	Flames compat.Result `json:"flames"`
	Love   compat.Result `json:"love"`
}

// RegisterRoutes registers compatibility routes.
func (h *CompatHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/compat", h.Compat)
}

// Compat computes FLAMES and the love percentage for ?a=&b=.
func (h *CompatHandler) Compat(w http.ResponseWriter, r *http.Request) {
	a := strings.TrimSpace(r.URL.Query().Get("a"))
	b := strings.TrimSpace(r.URL.Query().Get("b"))
	if a == "" || b == "" {
		Error(w, http.StatusBadRequest, "both a and b are required")
		return
	}

	JSON(w, http.StatusOK, CompatResponse{
		A:      a,
		B:      b,
		Flames: compat.FlamesResult(a, b),
		Love:   compat.LoveResult(a, b),
	})
}
