package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tacyan/img-ex/internal/extract"
)

var (
	// ErrMaxSessions signals that the concurrent session limit has been reached.
	ErrMaxSessions = errors.New("maximum concurrent sessions reached")
	// ErrSessionNotFound is returned for lookups of unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoSelection is returned when a download is requested with nothing selected.
	ErrNoSelection = errors.New("no images selected")
)

// SessionManager coordinates extraction session lifecycles keyed by
// generated session identifier.
type SessionManager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	engine      *extract.Engine
	maxSessions int
	running     int
	rootCtx     context.Context
}

// NewSessionManager constructs a manager backed by the given engine.
func NewSessionManager(engine *extract.Engine, maxSessions int, rootCtx context.Context) *SessionManager {
	if maxSessions <= 0 {
		maxSessions = 16
	}
	if rootCtx == nil {
		rootCtx = context.Background()
	}
	return &SessionManager{
		sessions:    make(map[string]*Session),
		engine:      engine,
		maxSessions: maxSessions,
		rootCtx:     rootCtx,
	}
}

// StartExtraction validates the request and launches an extraction run.
func (m *SessionManager) StartExtraction(req ExtractRequest) (*Session, error) {
	pageURL, err := normalizePageURL(req.URL)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.running >= m.maxSessions {
		m.mu.Unlock()
		return nil, ErrMaxSessions
	}
	m.running++
	session := newSession(generateSessionID(), pageURL, m)
	m.sessions[session.id] = session
	m.mu.Unlock()

	session.startRun(m.rootCtx, req.Render)
	return session, nil
}

// ListSessions captures current summaries for all sessions.
func (m *SessionManager) ListSessions() []SessionSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	summaries := make([]SessionSummary, 0, len(m.sessions))
	for _, session := range m.sessions {
		summaries = append(summaries, session.Snapshot())
	}
	return summaries
}

// GetSession returns the backing session by id.
func (m *SessionManager) GetSession(id string) (*Session, bool) {
	id = strings.TrimSpace(id)
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	return session, ok
}

// CancelSession requests cancellation of a running extraction.
func (m *SessionManager) CancelSession(id string) error {
	session, ok := m.GetSession(id)
	if !ok {
		return fmt.Errorf("session %q: %w", id, ErrSessionNotFound)
	}
	if !session.Cancel("cancel requested via API") {
		return fmt.Errorf("session %q not running", id)
	}
	return nil
}

// Shutdown stops all active sessions.
func (m *SessionManager) Shutdown() {
	m.mu.RLock()
	snapshot := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		snapshot = append(snapshot, s)
	}
	m.mu.RUnlock()

	for _, session := range snapshot {
		session.Cancel("manager shutdown")
	}
}

func (m *SessionManager) notifyCompletion() {
	m.mu.Lock()
	if m.running > 0 {
		m.running--
	}
	m.mu.Unlock()
}

// Session tracks the lifecycle and state of one extraction run.
type Session struct {
	id string

	mu          sync.Mutex
	status      SessionStatus
	createdAt   time.Time
	startedAt   *time.Time
	completedAt *time.Time
	strategy    string
	stylesheets int
	probed      int
	message     string
	lastError   string

	cancel context.CancelFunc
	state  *extract.Session

	subscribers map[chan SSEEvent]struct{}
	subMu       sync.RWMutex

	manager *SessionManager
}

func newSession(id, pageURL string, manager *SessionManager) *Session {
	return &Session{
		id:          id,
		status:      SessionStatusPending,
		createdAt:   time.Now(),
		state:       extract.NewSession(pageURL),
		subscribers: make(map[chan SSEEvent]struct{}),
		manager:     manager,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State exposes the underlying extraction state.
func (s *Session) State() *extract.Session { return s.state }

func (s *Session) startRun(parentCtx context.Context, render bool) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	runCtx, cancel := context.WithCancel(parentCtx)

	started := time.Now()
	s.mu.Lock()
	s.status = SessionStatusRunning
	s.startedAt = &started
	s.message = "running"
	s.cancel = cancel
	s.mu.Unlock()

	s.broadcast("session_started", nil, nil)

	go s.run(runCtx, render)
}

func (s *Session) run(ctx context.Context, render bool) {
	engine := s.manager.engine

	page, err := engine.FetchPage(ctx, s.state.PageURL(), render)
	if err != nil {
		s.handleCompletion(fmt.Errorf("fetch page: %w", err))
		return
	}

	stylesheets, err := engine.Extract(page, s.state)
	if err != nil {
		s.handleCompletion(fmt.Errorf("extract: %w", err))
		return
	}

	s.mu.Lock()
	s.strategy = s.state.Strategy()
	s.stylesheets = len(stylesheets)
	s.mu.Unlock()

	s.broadcastView("candidates_found")

	if added := s.state.CollectStylesheets(ctx, engine, stylesheets); added > 0 {
		s.broadcastView("stylesheets_collected")
	}

	for res := range engine.ProbeSession(ctx, s.state) {
		dim := &DimensionEvent{URL: res.URL, Width: res.Width, Height: res.Height, Loaded: res.Err == nil}
		if res.Err != nil {
			dim.Error = res.Err.Error()
		}
		s.mu.Lock()
		s.probed++
		s.mu.Unlock()
		s.broadcast("image_probed", nil, dim)
	}

	if err := ctx.Err(); err != nil {
		s.handleCompletion(err)
		return
	}

	s.broadcastView("view_updated")
	s.handleCompletion(nil)
}

// broadcastView emits the current filtered view in fixed-size batches
// so large result sets stream incrementally.
func (s *Session) broadcastView(eventType string) {
	items := s.ViewItems()
	size := s.manager.engine.ChunkSize()
	if size <= 0 || len(items) <= size {
		s.broadcast(eventType, items, nil)
		return
	}
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		s.broadcast(eventType, items[start:end], nil)
	}
}

func (s *Session) handleCompletion(err error) {
	now := time.Now()
	s.mu.Lock()
	status := SessionStatusCompleted
	message := "completed"
	errorText := ""
	switch {
	case errors.Is(err, context.Canceled):
		status = SessionStatusCancelled
		message = "cancelled"
	case err != nil:
		status = SessionStatusFailed
		message = "failed"
		errorText = err.Error()
	}
	s.status = status
	s.completedAt = &now
	s.message = message
	s.lastError = errorText
	s.cancel = nil
	s.mu.Unlock()

	eventType := "session_completed"
	switch status {
	case SessionStatusCancelled:
		eventType = "session_cancelled"
	case SessionStatusFailed:
		eventType = "session_failed"
	}
	s.broadcast(eventType, nil, nil)
	s.manager.notifyCompletion()
}

// Cancel attempts to stop the running extraction.
func (s *Session) Cancel(reason string) bool {
	s.mu.Lock()
	if s.status != SessionStatusRunning || s.cancel == nil {
		s.mu.Unlock()
		return false
	}
	s.message = reason
	cancel := s.cancel
	s.mu.Unlock()
	cancel()
	return true
}

// Snapshot returns a copy of the public session state.
func (s *Session) Snapshot() SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() SessionSummary {
	summary := SessionSummary{
		SessionID:   s.id,
		PageURL:     s.state.PageURL(),
		Status:      s.status,
		Strategy:    s.strategy,
		Candidates:  s.state.Registry().Len(),
		Probed:      s.probed,
		Stylesheets: s.stylesheets,
		CreatedAt:   s.createdAt,
		Message:     s.message,
		Error:       s.lastError,
	}
	if s.startedAt != nil {
		started := *s.startedAt
		summary.StartedAt = &started
	}
	if s.completedAt != nil {
		completed := *s.completedAt
		summary.CompletedAt = &completed
	}
	return summary
}

// Detail captures the summary, the active filter, and the current view.
func (s *Session) Detail() SessionDetail {
	return SessionDetail{
		Session: s.Snapshot(),
		Filter:  s.state.ViewConfig(),
		View:    s.ViewItems(),
	}
}

// ViewItems computes the filtered view decorated for API clients.
func (s *Session) ViewItems() []ViewItem {
	records := s.state.View()
	items := make([]ViewItem, 0, len(records))
	for _, rec := range records {
		items = append(items, ViewItem{
			Record:     rec,
			DisplayURL: extract.DisplayURL(rec.URL),
			ProxyURL:   "/api/image?url=" + url.QueryEscape(rec.URL),
		})
	}
	return items
}

// ApplyFilter replaces the view configuration and recomputes the view.
func (s *Session) ApplyFilter(cfg extract.ViewConfig) SessionDetail {
	s.state.SetViewConfig(cfg)
	detail := s.Detail()
	s.broadcastView("view_updated")
	return detail
}

// ApplySelection updates selection state per the request.
func (s *Session) ApplySelection(req SelectRequest) {
	reg := s.state.Registry()
	if req.All {
		if req.Selected {
			reg.SelectAll()
		} else {
			reg.DeselectAll()
		}
		return
	}
	for _, rawURL := range req.URLs {
		reg.SetSelected(rawURL, req.Selected)
	}
}

// SelectedURLs resolves a zip request to the target URL list.
func (s *Session) SelectedURLs(req ZipRequest) ([]string, error) {
	if len(req.URLs) > 0 {
		return req.URLs, nil
	}
	selected := s.state.Registry().Selected()
	if len(selected) == 0 {
		return nil, ErrNoSelection
	}
	urls := make([]string, 0, len(selected))
	for _, rec := range selected {
		urls = append(urls, rec.URL)
	}
	return urls, nil
}

// Subscribe registers an SSE subscriber for the session.
func (s *Session) Subscribe() (<-chan SSEEvent, func()) {
	ch := make(chan SSEEvent, 16)

	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()

	initial := SSEEvent{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Session:   s.Snapshot(),
	}
	select {
	case ch <- initial:
	default:
	}

	cancel := func() {
		s.subMu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcast(eventType string, images []ViewItem, dim *DimensionEvent) {
	envelope := SSEEvent{
		Type:      eventType,
		Timestamp: time.Now(),
		Session:   s.Snapshot(),
		Images:    images,
		Dimension: dim,
	}

	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for ch := range s.subscribers {
		select {
		case ch <- envelope:
		default:
		}
	}
}

func normalizePageURL(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("url is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("url %q missing host", raw)
	}
	return parsed.String(), nil
}

func generateSessionID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("session-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
