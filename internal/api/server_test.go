package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tacyan/img-ex/internal/config"
	"github.com/tacyan/img-ex/internal/extract"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Logging.Level = "error"
	engine, err := extract.NewEngine(cfg)
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	manager := NewSessionManager(engine, 2, context.Background())
	return NewServer(manager, engine, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func assertRoute(t *testing.T, server *Server, method, path, body string, wantStatus int, wantContentType string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != wantStatus {
		t.Fatalf("%s %s returned %d, want %d (body: %s)", method, path, rec.Code, wantStatus, rec.Body.String())
	}
	if wantContentType != "" && !strings.HasPrefix(rec.Header().Get("Content-Type"), wantContentType) {
		t.Fatalf("%s %s content type %q, want prefix %q", method, path, rec.Header().Get("Content-Type"), wantContentType)
	}
	return rec
}

func TestServerRoutes(t *testing.T) {
	server := newTestServer(t)

	rec := assertRoute(t, server, http.MethodGet, "/health", "", http.StatusOK, "application/json")
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected health payload: %s", rec.Body.String())
	}

	assertRoute(t, server, http.MethodGet, "/openapi.yaml", "", http.StatusOK, "application/yaml")
	assertRoute(t, server, http.MethodGet, "/docs", "", http.StatusOK, "text/html")

	rec = assertRoute(t, server, http.MethodGet, "/api/sessions", "", http.StatusOK, "application/json")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty session list, got %s", rec.Body.String())
	}
}

func TestServerMethodNotAllowed(t *testing.T) {
	server := newTestServer(t)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/health"},
		{http.MethodPost, "/api/fetch"},
		{http.MethodPost, "/api/image"},
		{http.MethodPost, "/api/css"},
		{http.MethodGet, "/api/extract"},
		{http.MethodDelete, "/api/sessions"},
	}
	for _, tc := range cases {
		assertRoute(t, server, tc.method, tc.path, "", http.StatusMethodNotAllowed, "")
	}
}

func TestServerBadRequests(t *testing.T) {
	server := newTestServer(t)

	assertRoute(t, server, http.MethodGet, "/api/fetch", "", http.StatusBadRequest, "")
	assertRoute(t, server, http.MethodGet, "/api/image", "", http.StatusBadRequest, "")
	assertRoute(t, server, http.MethodGet, "/api/css", "", http.StatusBadRequest, "")
	assertRoute(t, server, http.MethodPost, "/api/extract", "not json", http.StatusBadRequest, "")
	assertRoute(t, server, http.MethodPost, "/api/extract", `{"url":""}`, http.StatusBadRequest, "")
	assertRoute(t, server, http.MethodPost, "/api/extract", `{"url":"/no-host"}`, http.StatusBadRequest, "")
}

func TestServerUnknownSession(t *testing.T) {
	server := newTestServer(t)

	assertRoute(t, server, http.MethodGet, "/api/sessions/deadbeef", "", http.StatusNotFound, "")
	assertRoute(t, server, http.MethodPost, "/api/sessions/deadbeef/cancel", "", http.StatusNotFound, "")
}

func TestNormalizePageURL(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://example.com/page", "https://example.com/page", false},
		{"example.com/page", "", true},
		{"//example.com/page", "https://example.com/page", false},
		{" https://example.com ", "https://example.com", false},
		{"", "", true},
		{"/relative/only", "", true},
	}
	for _, tc := range cases {
		got, err := normalizePageURL(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("normalizePageURL(%q) expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("normalizePageURL(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("normalizePageURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSessionSelection(t *testing.T) {
	session := newSession("test", "https://example.com/", nil)
	reg := session.State().Registry()
	reg.AddIfAbsent("https://example.com/a.jpg")
	reg.AddIfAbsent("https://example.com/b.jpg")

	if _, err := session.SelectedURLs(ZipRequest{}); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}

	session.ApplySelection(SelectRequest{URLs: []string{"https://example.com/a.jpg"}, Selected: true})
	urls, err := session.SelectedURLs(ZipRequest{})
	if err != nil {
		t.Fatalf("selected urls: %v", err)
	}
	if len(urls) != 1 || urls[0] != "https://example.com/a.jpg" {
		t.Fatalf("unexpected selection %v", urls)
	}

	session.ApplySelection(SelectRequest{All: true, Selected: true})
	urls, _ = session.SelectedURLs(ZipRequest{})
	if len(urls) != 2 {
		t.Fatalf("select all should cover both, got %v", urls)
	}

	session.ApplySelection(SelectRequest{All: true, Selected: false})
	if _, err := session.SelectedURLs(ZipRequest{}); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("deselect all should clear the selection, got %v", err)
	}

	// Explicit URLs bypass the stored selection.
	urls, err = session.SelectedURLs(ZipRequest{URLs: []string{"https://example.com/b.jpg"}})
	if err != nil || len(urls) != 1 {
		t.Fatalf("explicit urls should pass through: %v, %v", urls, err)
	}
}

func TestSessionSubscribe(t *testing.T) {
	session := newSession("test", "https://example.com/", nil)

	ch, cancel := session.Subscribe()
	defer cancel()

	evt := <-ch
	if evt.Type != "snapshot" {
		t.Fatalf("first event should be a snapshot, got %q", evt.Type)
	}
	if evt.Session.SessionID != "test" || evt.Session.Status != SessionStatusPending {
		t.Fatalf("unexpected snapshot summary: %+v", evt.Session)
	}

	session.broadcast("view_updated", nil, nil)
	evt = <-ch
	if evt.Type != "view_updated" {
		t.Fatalf("expected view_updated, got %q", evt.Type)
	}

	cancel()
	if _, open := <-ch; open {
		t.Fatal("channel should be closed after cancel")
	}
}
