package types

import (
	"net/http"
	"net/url"
	"time"
)

// FetchRequest models a single page retrieval.
type FetchRequest struct {
	URL     *url.URL
	Render  bool
	Referer string
	Headers map[string]string
}

// Page represents the fetched content.
type Page struct {
	URL             *url.URL
	FinalURL        *url.URL
	Body            []byte
	ContentType     string
	StatusCode      int
	Headers         http.Header
	FetchedAt       time.Time
	Rendered        bool
	ResponseLatency time.Duration
}
