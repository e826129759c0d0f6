package probe

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	// Registered decoders for DecodeConfig. The probe never decodes
	// pixel data, only headers.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/tacyan/img-ex/internal/fetcher"
)

// ImageFetcher supplies the raw bytes for a candidate image URL.
type ImageFetcher interface {
	FetchImage(ctx context.Context, rawURL string, original bool) (*fetcher.ImageResult, error)
}

// Result reports the measured dimensions of one candidate, or the error
// that prevented measuring them.
type Result struct {
	URL    string
	Width  int
	Height int
	Err    error
}

// Prober measures candidate image dimensions by downloading each image
// and decoding only its header. Concurrency is bounded by a weighted
// semaphore so a large candidate set cannot exhaust sockets.
type Prober struct {
	fetcher ImageFetcher
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  *slog.Logger
}

// NewProber builds a prober with the given concurrency bound and
// per-image timeout.
func NewProber(f ImageFetcher, concurrency int64, timeout time.Duration, logger *slog.Logger) *Prober {
	if concurrency <= 0 {
		concurrency = 8
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		fetcher: f,
		sem:     semaphore.NewWeighted(concurrency),
		timeout: timeout,
		logger:  logger,
	}
}

// Probe measures every URL and streams results as they arrive. The
// returned channel closes once all probes finish or the context is
// cancelled.
func (p *Prober) Probe(ctx context.Context, urls []string) <-chan Result {
	out := make(chan Result)

	go func() {
		defer close(out)

		var wg sync.WaitGroup
		for _, rawURL := range urls {
			if err := p.sem.Acquire(ctx, 1); err != nil {
				return
			}
			wg.Add(1)
			go func(rawURL string) {
				defer wg.Done()
				defer p.sem.Release(1)

				res := p.probeOne(ctx, rawURL)
				select {
				case out <- res:
				case <-ctx.Done():
				}
			}(rawURL)
		}
		wg.Wait()
	}()

	return out
}

func (p *Prober) probeOne(ctx context.Context, rawURL string) Result {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	img, err := p.fetcher.FetchImage(probeCtx, rawURL, false)
	if err != nil {
		return Result{URL: rawURL, Err: fmt.Errorf("fetch image: %w", err)}
	}
	if img.StatusCode != 200 {
		return Result{URL: rawURL, Err: fmt.Errorf("unexpected status %d", img.StatusCode)}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return Result{URL: rawURL, Err: fmt.Errorf("decode config: %w", err)}
	}

	p.logger.Debug("probed image", "url", rawURL, "format", format, "width", cfg.Width, "height", cfg.Height)
	return Result{URL: rawURL, Width: cfg.Width, Height: cfg.Height}
}
