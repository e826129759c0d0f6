package api

import (
	"time"

	"github.com/tacyan/img-ex/internal/extract"
)

// ExtractRequest captures the payload used to launch an extraction
// session for a page.
type ExtractRequest struct {
	URL    string `json:"url"`
	Render bool   `json:"render,omitempty"`
}

// SelectRequest toggles the selection state of candidates.
type SelectRequest struct {
	URLs     []string `json:"urls,omitempty"`
	All      bool     `json:"all,omitempty"`
	Selected bool     `json:"selected"`
}

// FilterRequest replaces the session's view configuration.
type FilterRequest struct {
	Filter extract.ViewConfig `json:"filter"`
}

// ZipRequest names the candidates to bundle. When empty the session's
// current selection is used.
type ZipRequest struct {
	URLs []string `json:"urls,omitempty"`
}

// SessionStatus captures the lifecycle stage of a session.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
	SessionStatusFailed    SessionStatus = "failed"
)

// SessionSummary surfaces the high-level state for an extraction session.
type SessionSummary struct {
	SessionID   string        `json:"session_id"`
	PageURL     string        `json:"page_url"`
	Status      SessionStatus `json:"status"`
	Strategy    string        `json:"strategy,omitempty"`
	Candidates  int           `json:"candidates"`
	Probed      int           `json:"probed"`
	Stylesheets int           `json:"stylesheets"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Message     string        `json:"message,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// ViewItem is one record of the filtered view, decorated with the
// display URL and the proxy endpoint the browser should load it from.
type ViewItem struct {
	extract.Record
	DisplayURL string `json:"display_url"`
	ProxyURL   string `json:"proxy_url"`
}

// SessionDetail extends the summary with the current view and filter.
type SessionDetail struct {
	Session SessionSummary     `json:"session"`
	Filter  extract.ViewConfig `json:"filter"`
	View    []ViewItem         `json:"view"`
}

// DimensionEvent reports a probed image's measured size.
type DimensionEvent struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Loaded bool   `json:"loaded"`
	Error  string `json:"error,omitempty"`
}

// SSEEvent envelopes session state for Server-Sent Event clients.
type SSEEvent struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Session   SessionSummary  `json:"session"`
	Images    []ViewItem      `json:"images,omitempty"`
	Dimension *DimensionEvent `json:"dimension,omitempty"`
}

// CSSResponse lists the image URLs mined from one stylesheet. The field
// name matches what the frontend consumes.
type CSSResponse struct {
	ImageURLs []string `json:"imageUrls"`
}
