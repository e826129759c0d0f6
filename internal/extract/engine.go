package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/tacyan/img-ex/internal/config"
	"github.com/tacyan/img-ex/internal/fetcher"
	"github.com/tacyan/img-ex/internal/probe"
	robotsclient "github.com/tacyan/img-ex/internal/robots"
	"github.com/tacyan/img-ex/pkg/types"
)

// ErrRobotsDisallowed marks a page fetch refused by the target's
// robots.txt.
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

// Engine orchestrates page fetching, candidate extraction, image
// proxying, and dimension probing.
type Engine struct {
	cfg        config.Config
	pages      fetcher.Fetcher
	images     *fetcher.HTTPFetcher
	robots     *robotsclient.Agent
	dispatcher *Dispatcher
	prober     *probe.Prober
	logger     *slog.Logger
}

// NewEngine builds an extraction engine from configuration.
func NewEngine(cfg config.Config) (*Engine, error) {
	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	pageFetcher, err := fetcher.NewHTTPFetcher(fetcher.Options{
		UserAgent:      cfg.Fetch.UserAgent,
		AcceptLanguage: cfg.Fetch.AcceptLanguage,
		Headers:        cfg.Fetch.Headers,
		Timeout:        cfg.Fetch.RequestTimeout.Duration,
		MaxBodyBytes:   cfg.Fetch.MaxBodyBytes,
		ProxyURL:       cfg.Fetch.ProxyURL,
	})
	if err != nil {
		return nil, fmt.Errorf("page fetcher: %w", err)
	}

	imageFetcher, err := fetcher.NewHTTPFetcher(fetcher.Options{
		UserAgent:      cfg.Fetch.UserAgent,
		AcceptLanguage: cfg.Fetch.AcceptLanguage,
		Timeout:        cfg.Fetch.RequestTimeout.Duration,
		MaxBodyBytes:   cfg.Fetch.MaxImageBytes,
		ProxyURL:       cfg.Fetch.ProxyURL,
	})
	if err != nil {
		return nil, fmt.Errorf("image fetcher: %w", err)
	}

	var renderer fetcher.Renderer
	if cfg.Rendering.Enabled {
		switch strings.ToLower(cfg.Rendering.Engine) {
		case "chromedp", "chrome":
			renderer = fetcher.NewChromedpRenderer(fetcher.RenderOptions{
				Timeout:            cfg.Rendering.Timeout.Duration,
				WaitForSelector:    cfg.Rendering.WaitForSelector,
				UserAgent:          cfg.Fetch.UserAgent,
				MaxBodyBytes:       cfg.Fetch.MaxBodyBytes,
				DisableHeadless:    cfg.Rendering.DisableHeadless,
				ConcurrentSessions: cfg.Rendering.ConcurrentSessions,
			})
		case "none":
			// Explicit opt-out even if enabled flag toggled.
		default:
			return nil, fmt.Errorf("unsupported rendering engine %q", cfg.Rendering.Engine)
		}
	}

	return &Engine{
		cfg:        cfg,
		pages:      fetcher.NewComposite(pageFetcher, renderer),
		images:     imageFetcher,
		robots:     robotsclient.NewAgent(cfg.Robots, pageFetcher.Client()),
		dispatcher: NewDispatcher(logger),
		prober:     probe.NewProber(imageFetcher, int64(cfg.Probe.Concurrency), cfg.Probe.Timeout.Duration, logger),
		logger:     logger,
	}, nil
}

// Logger exposes the engine's configured logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// ChunkSize returns the configured view batch size.
func (e *Engine) ChunkSize() int {
	return e.cfg.Extract.ChunkSize
}

// FetchPage downloads the page at rawURL, optionally through the
// rendering engine when render is set and rendering is configured.
func (e *Engine) FetchPage(ctx context.Context, rawURL string, render bool) (*types.Page, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("url %q missing host", rawURL)
	}

	if e.cfg.Robots.Respect && !e.robots.Allowed(ctx, parsed) {
		return nil, fmt.Errorf("%s: %w", parsed.Host, ErrRobotsDisallowed)
	}

	page, err := e.pages.Fetch(ctx, types.FetchRequest{
		URL:    parsed,
		Render: render && e.cfg.Rendering.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	return page, nil
}

// Extract runs the site dispatcher over a fetched page and fills the
// session registry. It returns the external stylesheet URLs found on
// the page, capped by configuration.
func (e *Engine) Extract(page *types.Page, session *Session) ([]string, error) {
	if page == nil || len(page.Body) == 0 {
		return nil, errors.New("empty page")
	}

	base := session.PageURL()
	if page.FinalURL != nil {
		base = page.FinalURL.String()
	}

	doc, err := NewDocument(bytes.NewReader(page.Body), base)
	if err != nil {
		return nil, err
	}

	session.SetStrategy(e.dispatcher.Dispatch(doc, session.Registry()))

	stylesheets := doc.Stylesheets()
	if max := e.cfg.Extract.MaxStylesheets; max > 0 && len(stylesheets) > max {
		stylesheets = stylesheets[:max]
	}
	return stylesheets, nil
}

// ProxyImage fetches an image on behalf of the browser, with the
// referer and accept headers the origin expects.
func (e *Engine) ProxyImage(ctx context.Context, rawURL string, original bool) (*fetcher.ImageResult, error) {
	return e.images.FetchImage(ctx, rawURL, original)
}

// FetchCSS retrieves external stylesheet text.
func (e *Engine) FetchCSS(ctx context.Context, rawURL string) (string, error) {
	return e.images.FetchCSS(ctx, rawURL)
}

// ProbeSession measures every unloaded candidate in the session and
// applies each result to the registry as it arrives. The returned
// channel mirrors the per-image results for streaming to clients.
func (e *Engine) ProbeSession(ctx context.Context, session *Session) <-chan probe.Result {
	pending := session.Registry().Unloaded()
	out := make(chan probe.Result)

	go func() {
		defer close(out)
		for res := range e.prober.Probe(ctx, pending) {
			if res.Err != nil {
				session.Registry().MarkUnloaded(res.URL)
			} else {
				session.Registry().UpdateOnLoad(res.URL, res.Width, res.Height)
			}
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func buildLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unsupported log level %q", cfg.Level)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Structured {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler), nil
}
