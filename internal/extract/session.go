package extract

import (
	"context"
	"sync"
)

// CSSFetcher retrieves external stylesheet text for candidate mining.
type CSSFetcher interface {
	FetchCSS(ctx context.Context, rawURL string) (string, error)
}

// Session holds the extraction state for one submitted page: the
// candidate registry, the page URL filters key off, and the current
// view configuration.
type Session struct {
	mu       sync.RWMutex
	pageURL  string
	strategy string
	registry *Registry
	view     ViewConfig
}

// NewSession creates a session for a page with the default view.
func NewSession(pageURL string) *Session {
	return &Session{
		pageURL:  pageURL,
		registry: NewRegistry(),
		view:     DefaultViewConfig(),
	}
}

// PageURL returns the originally submitted page URL.
func (s *Session) PageURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pageURL
}

// Strategy returns the name of the strategy that ran for this page.
func (s *Session) Strategy() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.strategy
}

// SetStrategy records which extraction strategy handled the page.
func (s *Session) SetStrategy(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategy = name
}

// Registry exposes the candidate registry.
func (s *Session) Registry() *Registry {
	return s.registry
}

// ViewConfig returns the current view configuration.
func (s *Session) ViewConfig() ViewConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// SetViewConfig replaces the view configuration.
func (s *Session) SetViewConfig(cfg ViewConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = cfg
}

// View computes the sorted, filtered record list under the current
// configuration.
func (s *Session) View() []Record {
	s.mu.RLock()
	cfg := s.view
	pageURL := s.pageURL
	s.mu.RUnlock()
	return ComputeView(s.registry.Records(), cfg, pageURL)
}

// CollectStylesheets fetches every stylesheet concurrently and mines
// each for image URLs. Individual fetch failures are swallowed so one
// broken stylesheet cannot sink the rest; the added count covers the
// sheets that succeeded.
func (s *Session) CollectStylesheets(ctx context.Context, fetcher CSSFetcher, stylesheets []string) int {
	if fetcher == nil || len(stylesheets) == 0 {
		return 0
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		added int
	)
	for _, sheet := range stylesheets {
		wg.Add(1)
		go func(sheetURL string) {
			defer wg.Done()

			css, err := fetcher.FetchCSS(ctx, sheetURL)
			if err != nil {
				return
			}
			for _, imageURL := range ExtractCSSURLs(css, sheetURL) {
				s.registry.AddIfAbsent(imageURL)
				mu.Lock()
				added++
				mu.Unlock()
			}
		}(sheet)
	}
	wg.Wait()
	return added
}
