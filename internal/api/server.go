package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tacyan/img-ex/internal/archive"
	"github.com/tacyan/img-ex/internal/extract"
)

// errorImageSVG is served whenever an image cannot be proxied, so the
// grid shows a placeholder instead of a broken tile.
const errorImageSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100" viewBox="0 0 100 100">
    <rect width="100" height="100" fill="#f0f0f0"/>
    <text x="50%" y="45%" font-family="Arial" font-size="12" text-anchor="middle" dominant-baseline="middle" fill="#999">Image</text>
    <text x="50%" y="60%" font-family="Arial" font-size="12" text-anchor="middle" dominant-baseline="middle" fill="#999">Not Available</text>
</svg>`

// Server exposes the HTTP API for page fetching, image proxying, and
// extraction sessions.
type Server struct {
	manager   *SessionManager
	engine    *extract.Engine
	staticDir string
	logger    *slog.Logger
	mux       *http.ServeMux
}

// NewServer wires handlers onto an HTTP mux.
func NewServer(manager *SessionManager, engine *extract.Engine, staticDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		manager:   manager,
		engine:    engine,
		staticDir: staticDir,
		logger:    logger,
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP satisfies the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/fetch", s.handleFetch)
	s.mux.HandleFunc("/api/image", s.handleImage)
	s.mux.HandleFunc("/api/css", s.handleCSS)
	s.mux.HandleFunc("/api/extract", s.handleExtract)
	s.mux.HandleFunc("/api/sessions", s.handleSessions)
	s.mux.HandleFunc("/api/sessions/", s.handleSessionByID)
	s.mux.HandleFunc("/openapi.yaml", s.handleOpenAPI)
	s.mux.HandleFunc("/docs", s.handleDocs)
	if s.staticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// handleFetch proxies a page fetch so the browser can read cross-origin
// HTML. Upstream errors below 500 pass through with their status.
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	target := r.URL.Query().Get("url")
	if target == "" {
		http.Error(w, "url query parameter is required", http.StatusBadRequest)
		return
	}
	render := r.URL.Query().Get("render") == "true"

	page, err := s.engine.FetchPage(r.Context(), target, render)
	if err != nil {
		if errors.Is(err, extract.ErrRobotsDisallowed) {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		s.logger.Warn("page fetch failed", "url", target, "error", err)
		http.Error(w, fmt.Sprintf("fetch failed: %v", err), http.StatusBadGateway)
		return
	}
	if page.StatusCode >= 500 {
		http.Error(w, fmt.Sprintf("upstream returned %d", page.StatusCode), http.StatusBadGateway)
		return
	}

	contentType := page.ContentType
	if contentType == "" {
		contentType = "text/html; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(page.StatusCode)
	_, _ = w.Write(page.Body)
}

// handleImage proxies one image with the referer and accept headers its
// origin expects. Failures yield a placeholder SVG rather than an error
// status so image grids degrade gracefully. The t query parameter is a
// client cache buster and is ignored.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	query := r.URL.Query()
	target := query.Get("url")
	if target == "" {
		http.Error(w, "url query parameter is required", http.StatusBadRequest)
		return
	}
	original := query.Get("original") == "true"
	download := query.Get("download") == "true"

	img, err := s.engine.ProxyImage(r.Context(), target, original)
	if err != nil {
		s.logger.Debug("image fetch failed", "url", target, "error", err)
		s.sendErrorImage(w)
		return
	}
	if img.StatusCode != http.StatusOK {
		s.logger.Debug("image fetch non-200", "url", target, "status", img.StatusCode)
		s.sendErrorImage(w)
		return
	}
	if img.ContentType != "" && !strings.HasPrefix(strings.ToLower(img.ContentType), "image/") {
		s.logger.Debug("non-image content type", "url", target, "content_type", img.ContentType)
		s.sendErrorImage(w)
		return
	}

	contentType := img.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)

	if download {
		filename := archive.Filename(target, img.ContentType, "")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", url.QueryEscape(filename)))
	}
	_, _ = w.Write(img.Data)
}

func (s *Server) sendErrorImage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = io.WriteString(w, errorImageSVG)
}

// handleCSS fetches an external stylesheet and returns the image URLs
// referenced by it.
func (s *Server) handleCSS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	target := r.URL.Query().Get("url")
	if target == "" {
		http.Error(w, "url query parameter is required", http.StatusBadRequest)
		return
	}

	css, err := s.engine.FetchCSS(r.Context(), target)
	if err != nil {
		s.logger.Debug("css fetch failed", "url", target, "error", err)
		http.Error(w, fmt.Sprintf("css fetch failed: %v", err), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, CSSResponse{
		ImageURLs: extract.ExtractCSSURLs(css, target),
	})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json payload: %v", err), http.StatusBadRequest)
		return
	}
	session, err := s.manager.StartExtraction(req)
	if err != nil {
		if errors.Is(err, ErrMaxSessions) {
			http.Error(w, err.Error(), http.StatusTooManyRequests)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, session.Snapshot())
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, s.manager.ListSessions())
}

func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions/"), "/")
	if trimmed == "" {
		http.NotFound(w, r)
		return
	}
	parts := strings.Split(trimmed, "/")
	sessionID, err := url.PathUnescape(parts[0])
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}
	session, ok := s.manager.GetSession(sessionID)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		writeJSON(w, http.StatusOK, session.Detail())
		return
	}

	switch parts[1] {
	case "select":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		s.selectImages(w, r, session)
	case "filter":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		s.applyFilter(w, r, session)
	case "events":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		s.streamSessionEvents(w, r, session)
	case "zip":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		s.downloadZip(w, r, session)
	case "cancel":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		if err := s.manager.CancelSession(sessionID); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) selectImages(w http.ResponseWriter, r *http.Request, session *Session) {
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json payload: %v", err), http.StatusBadRequest)
		return
	}
	session.ApplySelection(req)
	writeJSON(w, http.StatusOK, session.Detail())
}

func (s *Server) applyFilter(w http.ResponseWriter, r *http.Request, session *Session) {
	var req FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json payload: %v", err), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, session.ApplyFilter(req.Filter))
}

// downloadZip fetches every requested image and streams them back as a
// single archive named after the page host.
func (s *Server) downloadZip(w http.ResponseWriter, r *http.Request, session *Session) {
	var req ZipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, fmt.Sprintf("invalid json payload: %v", err), http.StatusBadRequest)
		return
	}
	urls, err := session.SelectedURLs(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	used := make(map[string]struct{}, len(urls))
	items := make([]archive.Item, 0, len(urls))
	for _, rawURL := range urls {
		img, err := s.engine.ProxyImage(r.Context(), rawURL, true)
		if err != nil || img.StatusCode != http.StatusOK {
			s.logger.Warn("zip member fetch failed", "url", rawURL, "error", err)
			continue
		}

		format := ""
		if rec, ok := session.State().Registry().Get(rawURL); ok {
			format = string(rec.Format)
		}
		name := archive.UniqueName(used, archive.Filename(rawURL, img.ContentType, format))
		items = append(items, archive.Item{Name: name, Data: img.Data})
	}
	if len(items) == 0 {
		http.Error(w, "no images could be fetched", http.StatusBadGateway)
		return
	}

	zipName := archive.ArchiveName(session.State().PageURL(), time.Now())
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", zipName))
	if err := archive.Build(w, items); err != nil {
		s.logger.Error("zip build failed", "session", session.ID(), "error", err)
	}
}

func (s *Server) streamSessionEvents(w http.ResponseWriter, r *http.Request, session *Session) {
	eventCh, cancel := session.Subscribe()
	defer cancel()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case evt, open := <-eventCh:
			if !open {
				return
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, "event: heartbeat\ndata: {}\n\n")
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
