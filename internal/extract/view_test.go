package extract

import "testing"

func allQuality() Quality {
	return Quality{Original: true, HighRes: true}
}

func TestComputeViewSorting(t *testing.T) {
	records := []Record{
		{URL: "small", Width: 100, Height: 50, Loaded: true, Format: FormatJPG, Quality: allQuality()},
		{URL: "pending", Format: FormatJPG, Quality: allQuality()},
		{URL: "big", Width: 1200, Height: 800, Loaded: true, Format: FormatJPG, Quality: allQuality()},
	}
	cfg := DefaultViewConfig()

	view := ComputeView(records, cfg, "https://example.com/")
	if len(view) != 3 {
		t.Fatalf("expected 3 records, got %d", len(view))
	}
	if view[0].URL != "big" || view[1].URL != "small" {
		t.Fatalf("loaded records should sort first by size: %v, %v", view[0].URL, view[1].URL)
	}
	if view[2].URL != "pending" {
		t.Fatalf("unloaded record should sort last, got %v", view[2].URL)
	}

	cfg.SortBy = SortSizeAsc
	view = ComputeView(records, cfg, "https://example.com/")
	if view[0].URL != "small" {
		t.Fatalf("ascending sort should put small first, got %v", view[0].URL)
	}
}

func TestComputeViewSortIsStable(t *testing.T) {
	records := []Record{
		{URL: "first", Width: 200, Height: 100, Loaded: true, Format: FormatJPG, Quality: allQuality()},
		{URL: "second", Width: 100, Height: 200, Loaded: true, Format: FormatJPG, Quality: allQuality()},
	}
	cfg := DefaultViewConfig()

	// Equal areas: the tie must keep discovery order.
	for _, key := range []SortKey{SortSizeDesc, SortSizeAsc} {
		cfg.SortBy = key
		view := ComputeView(records, cfg, "https://example.com/")
		if len(view) != 2 {
			t.Fatalf("%s: expected 2 records, got %d", key, len(view))
		}
		if view[0].URL != "first" || view[1].URL != "second" {
			t.Errorf("%s: equal-area records reordered: %v, %v", key, view[0].URL, view[1].URL)
		}
	}
}

func TestPassesQualityToggles(t *testing.T) {
	cfg := DefaultViewConfig()
	page := "https://example.com/"

	thumb := Record{URL: "t", Format: FormatJPG, Quality: Quality{Thumbnail: true}}
	if Passes(thumb, cfg, page) {
		t.Error("thumbnail should be filtered with defaults")
	}

	cfg.PrioritizeOriginal = false
	cfg.HighResOnly = false
	cfg.IncludeThumbnails = true
	if !Passes(thumb, cfg, page) {
		t.Error("thumbnail should pass once toggles are relaxed")
	}
}

func TestPassesHundredSquareExclusion(t *testing.T) {
	cfg := DefaultViewConfig()
	cfg.PrioritizeOriginal = false
	cfg.HighResOnly = false
	page := "https://example.com/"

	icon := Record{URL: "i", Width: 100, Height: 100, Format: FormatPNG}
	if Passes(icon, cfg, page) {
		t.Error("100x100 record should never pass, even unloaded")
	}
	icon.Loaded = true
	if Passes(icon, cfg, page) {
		t.Error("100x100 record should never pass when loaded")
	}
}

func TestPassesMeasuredSizeFilters(t *testing.T) {
	cfg := DefaultViewConfig()
	cfg.PrioritizeOriginal = false
	cfg.HighResOnly = false
	cfg.ShowSmall = false
	cfg.MinWidth = 200
	page := "https://example.com/"

	tiny := Record{URL: "t", Width: 50, Height: 50, Loaded: true, Format: FormatJPG}
	if Passes(tiny, cfg, page) {
		t.Error("loaded record under 100px should be filtered when show_small is off")
	}

	// Size filters do not apply before the probe completes.
	hinted := Record{URL: "h", Width: 50, Height: 50, Format: FormatJPG}
	if !Passes(hinted, cfg, page) {
		t.Error("unloaded record should not be size-filtered")
	}

	narrow := Record{URL: "n", Width: 150, Height: 300, Loaded: true, Format: FormatJPG}
	if Passes(narrow, cfg, page) {
		t.Error("record under min_width should be filtered")
	}
}

func TestPassesFormatFilter(t *testing.T) {
	cfg := DefaultViewConfig()
	cfg.PrioritizeOriginal = false
	cfg.HighResOnly = false
	cfg.Formats = []Format{FormatPNG}
	page := "https://example.com/"

	jpg := Record{URL: "j", Format: FormatJPG}
	png := Record{URL: "p", Format: FormatPNG}
	if Passes(jpg, cfg, page) {
		t.Error("jpg should be filtered when only png is enabled")
	}
	if !Passes(png, cfg, page) {
		t.Error("png should pass")
	}
}

func TestPassesSiteFilter(t *testing.T) {
	cfg := DefaultViewConfig()
	cfg.PrioritizeOriginal = false
	cfg.HighResOnly = false
	cfg.Sites = []string{"bing"}

	rec := Record{URL: "x", Format: FormatJPG}
	if Passes(rec, cfg, "https://www.google.com/search?tbm=isch") {
		t.Error("google page should be filtered when only bing is enabled")
	}
	if !Passes(rec, cfg, "https://www.bing.com/images/search") {
		t.Error("bing page should pass")
	}
	// Hosts with no dedicated rule are never restricted.
	if !Passes(rec, cfg, "https://blog.example.com/post") {
		t.Error("unknown host should always pass the site filter")
	}
}

func TestSiteFilterMatchesDispatcherOrder(t *testing.T) {
	// A host matching two needles must resolve to the first rule, the
	// same way the dispatcher picks its strategy.
	page := "https://google.com.bing.com/search"

	if !siteAllowed([]string{"google"}, page) {
		t.Error("first matching rule should decide the site")
	}
	if siteAllowed([]string{"bing"}, page) {
		t.Error("later rules should not be consulted after a match")
	}
}

func TestChunks(t *testing.T) {
	records := make([]Record, 45)
	chunks := Chunks(records, 20)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 20 || len(chunks[2]) != 5 {
		t.Fatalf("unexpected chunk sizes: %d, %d", len(chunks[0]), len(chunks[2]))
	}
	if Chunks(nil, 20) != nil {
		t.Fatal("empty input should yield no chunks")
	}
	if got := Chunks(records, 0); len(got) != 1 {
		t.Fatalf("non-positive size should yield one chunk, got %d", len(got))
	}
}
