package identity

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serve(t *testing.T, r *http.Request) (*httptest.ResponseRecorder, string, string) {
	t.Helper()
	var visitor, tab string
	h := Middleware(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		visitor = VisitorIDFromContext(r.Context())
		tab = TabIDFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec, visitor, tab
}

func TestMiddlewareIssuesVisitorCookie(t *testing.T) {
	rec, visitor, tab := serve(t, httptest.NewRequest(http.MethodGet, "/api/session", nil))

	if !isValidVisitorID(visitor) {
		t.Fatalf("Expected generated visitor ID, got %q", visitor)
	}
	if tab != DefaultTabValue {
		t.Errorf("Expected default tab, got %q", tab)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != VisitorCookieName || cookies[0].Value != visitor {
		t.Fatalf("Expected visitor cookie, got %+v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("Expected HttpOnly cookie")
	}
}

func TestMiddlewareReusesVisitorCookie(t *testing.T) {
	id := "v_" + strings.Repeat("ab", 16)
	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.AddCookie(&http.Cookie{Name: VisitorCookieName, Value: id})
	req.Header.Set(TabHeaderName, "tab-1")

	_, visitor, tab := serve(t, req)
	if visitor != id {
		t.Errorf("Expected visitor %q, got %q", id, visitor)
	}
	if tab != "tab-1" {
		t.Errorf("Expected tab-1, got %q", tab)
	}
}

func TestMiddlewareRejectsForgedCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: VisitorCookieName, Value: "admin"})

	_, visitor, _ := serve(t, req)
	if visitor == "admin" || !isValidVisitorID(visitor) {
		t.Errorf("Expected a fresh visitor ID, got %q", visitor)
	}
}

func TestTabFromQuery(t *testing.T) {
	_, _, tab := serve(t, httptest.NewRequest(http.MethodGet, "/ws/session?tab=abc.1", nil))
	if tab != "abc.1" {
		t.Errorf("Expected tab from query, got %q", tab)
	}
}

func TestSanitizeTabID(t *testing.T) {
	tests := map[string]string{
		"":                       DefaultTabValue,
		"  ok-1 ":                "ok-1",
		"v_x:default":            DefaultTabValue,
		"with space":             DefaultTabValue,
		strings.Repeat("a", 129): DefaultTabValue,
	}
	for in, want := range tests {
		if got := sanitizeTabID(in); got != want {
			t.Errorf("sanitizeTabID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSessionKey(t *testing.T) {
	ctx := WithIdentity(t.Context(), "v_1", "tab")
	if got := SessionKey(ctx); got != "v_1:tab" {
		t.Errorf("Expected v_1:tab, got %q", got)
	}
}
