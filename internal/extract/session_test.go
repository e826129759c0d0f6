package extract

import (
	"context"
	"errors"
	"testing"
)

type fakeCSSFetcher struct {
	sheets map[string]string
}

func (f fakeCSSFetcher) FetchCSS(_ context.Context, rawURL string) (string, error) {
	css, ok := f.sheets[rawURL]
	if !ok {
		return "", errors.New("fetch failed")
	}
	return css, nil
}

func TestCollectStylesheets(t *testing.T) {
	session := NewSession("https://example.com/page")
	fetcher := fakeCSSFetcher{sheets: map[string]string{
		"https://example.com/css/ok.css": `.a { background: url('/img/bg.png'); }`,
	}}

	added := session.CollectStylesheets(context.Background(), fetcher, []string{
		"https://example.com/css/ok.css",
		"https://example.com/css/broken.css",
	})

	// One sheet fails; the other still contributes its images.
	if added != 1 {
		t.Fatalf("expected 1 added candidate, got %d", added)
	}
	if _, ok := session.Registry().Get("https://example.com/img/bg.png"); !ok {
		t.Fatal("stylesheet image missing from registry")
	}
}

func TestCollectStylesheetsEmpty(t *testing.T) {
	session := NewSession("https://example.com/")
	if added := session.CollectStylesheets(context.Background(), nil, nil); added != 0 {
		t.Fatalf("expected 0, got %d", added)
	}
}

func TestSessionViewConfig(t *testing.T) {
	session := NewSession("https://example.com/")

	cfg := session.ViewConfig()
	if cfg.SortBy != SortSizeDesc || !cfg.ShowSmall {
		t.Fatalf("unexpected default view config: %+v", cfg)
	}

	cfg.SortBy = SortWidthDesc
	cfg.MinWidth = 300
	session.SetViewConfig(cfg)

	got := session.ViewConfig()
	if got.SortBy != SortWidthDesc || got.MinWidth != 300 {
		t.Fatalf("view config not replaced: %+v", got)
	}
}

func TestSessionView(t *testing.T) {
	session := NewSession("https://example.com/")
	reg := session.Registry()
	reg.AddIfAbsent("https://example.com/photo_original.jpg")
	reg.AddIfAbsent("https://example.com/photo_thumb.jpg")
	reg.UpdateOnLoad("https://example.com/photo_original.jpg", 1200, 800)

	view := session.View()
	if len(view) != 1 {
		t.Fatalf("expected only the original to pass the default filter, got %d", len(view))
	}
	if view[0].URL != "https://example.com/photo_original.jpg" {
		t.Fatalf("unexpected record: %s", view[0].URL)
	}
}
