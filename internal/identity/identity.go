// Package identity provides anonymous per-device visitor identity and
// per-tab session keys.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	VisitorCookieName = "valentine_visitor"
	TabHeaderName     = "X-Valentine-Tab"
	TabQueryParam     = "tab"
	DefaultTabValue   = "default"
	visitorCookieAge  = 30 * 24 * time.Hour
)

type contextKey int

const (
	visitorIDKey contextKey = iota
	tabIDKey
)

var (
	visitorIDPattern = regexp.MustCompile(`^v_[a-f0-9]{32}$`)
	tabIDPattern     = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)
)

// VisitorIDFromContext extracts the visitor ID from the request context.
func VisitorIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(visitorIDKey).(string); ok {
		return v
	}
	return ""
}

// TabIDFromContext extracts the tab ID from the request context.
func TabIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(tabIDKey).(string); ok {
		return v
	}
	return DefaultTabValue
}

// SessionKey returns the key of the session the request belongs to: one
// session per visitor and tab.
func SessionKey(ctx context.Context) string {
	return VisitorIDFromContext(ctx) + ":" + TabIDFromContext(ctx)
}

// WithIdentity returns ctx carrying the given visitor and tab.
func WithIdentity(ctx context.Context, visitorID, tabID string) context.Context {
	ctx = context.WithValue(ctx, visitorIDKey, visitorID)
	return context.WithValue(ctx, tabIDKey, sanitizeTabID(tabID))
}

func generateVisitorID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate visitor id: %w", err)
	}
	return "v_" + hex.EncodeToString(buf), nil
}

func isValidVisitorID(id string) bool {
	return visitorIDPattern.MatchString(id)
}

// Colons are excluded so a tab can never forge another visitor's key.
func sanitizeTabID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !tabIDPattern.MatchString(id) {
		return DefaultTabValue
	}
	return id
}

func setVisitorCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     VisitorCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(visitorCookieAge.Seconds()),
		Expires:  time.Now().Add(visitorCookieAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

func getOrCreateVisitorID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	if c, err := r.Cookie(VisitorCookieName); err == nil && isValidVisitorID(c.Value) {
		setVisitorCookie(w, c.Value, isDev)
		return c.Value, nil
	}

	id, err := generateVisitorID()
	if err != nil {
		return "", err
	}
	setVisitorCookie(w, id, isDev)
	return id, nil
}

func tabIDFromRequest(r *http.Request) string {
	tab := r.Header.Get(TabHeaderName)
	if tab == "" {
		// Browsers cannot set headers on websocket upgrades.
		tab = r.URL.Query().Get(TabQueryParam)
	}
	return sanitizeTabID(tab)
}

// Middleware injects the anonymous visitor identity and the tab ID.
func Middleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			visitorID, err := getOrCreateVisitorID(w, r, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish visitor identity"}`, http.StatusInternalServerError)
				return
			}

			ctx := WithIdentity(r.Context(), visitorID, tabIDFromRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IPFromRequest returns a normalized remote IP for request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
