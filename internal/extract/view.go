package extract

import (
	"net/url"
	"sort"
	"strings"
)

// SortKey selects the ordering criterion for the filtered view.
type SortKey string

const (
	SortSizeDesc   SortKey = "size_desc"
	SortSizeAsc    SortKey = "size_asc"
	SortWidthDesc  SortKey = "width_desc"
	SortHeightDesc SortKey = "height_desc"
)

// ViewConfig is the full filter and sort configuration for one view of
// the registry. Every filter is a conjunction: a record must pass all of
// them to be visible.
type ViewConfig struct {
	Formats            []Format `json:"formats,omitempty"`
	Sites              []string `json:"sites,omitempty"`
	SortBy             SortKey  `json:"sort_by,omitempty"`
	ShowSmall          bool     `json:"show_small"`
	MinWidth           int      `json:"min_width,omitempty"`
	MinHeight          int      `json:"min_height,omitempty"`
	PrioritizeOriginal bool     `json:"prioritize_original"`
	HighResOnly        bool     `json:"high_res_only"`
	IncludeThumbnails  bool     `json:"include_thumbnails"`
}

// DefaultViewConfig mirrors the initial UI state: every format enabled,
// size sort descending, originals and high-res preferred, thumbnails out.
func DefaultViewConfig() ViewConfig {
	return ViewConfig{
		Formats:            Formats(),
		SortBy:             SortSizeDesc,
		ShowSmall:          true,
		PrioritizeOriginal: true,
		HighResOnly:        true,
		IncludeThumbnails:  false,
	}
}

// Known site filter keys matched against the submitted page host, in
// the same order the dispatcher tries its host needles so both resolve
// a host to the same site.
var siteFilters = []struct {
	key    string
	needle string
}{
	{"google", "google.com"},
	{"irasutoya", "irasutoya.com"},
	{"bing", "bing.com"},
	{"yahoo", "yahoo.co.jp"},
	{"illustac", "ac-illust.com"},
	{"pixiv", "pixiv.net"},
	{"freepik", "freepik.com"},
}

// ComputeView sorts and filters the records for display. pageURL is the
// originally submitted page; the site filter keys off its host. The sort
// is stable so equal records keep their discovery order, and unloaded
// records always sort after loaded ones.
func ComputeView(records []Record, cfg ViewConfig, pageURL string) []Record {
	sorted := make([]Record, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Loaded != b.Loaded {
			return a.Loaded
		}
		switch cfg.SortBy {
		case SortSizeDesc:
			return a.Area() > b.Area()
		case SortSizeAsc:
			return a.Area() < b.Area()
		case SortWidthDesc:
			return a.Width > b.Width
		case SortHeightDesc:
			return a.Height > b.Height
		default:
			return false
		}
	})

	out := make([]Record, 0, len(sorted))
	for _, rec := range sorted {
		if Passes(rec, cfg, pageURL) {
			out = append(out, rec)
		}
	}
	return out
}

// Passes evaluates a single record against the view configuration. It is
// also used to re-evaluate one record when its dimensions arrive late.
func Passes(rec Record, cfg ViewConfig, pageURL string) bool {
	if len(cfg.Formats) > 0 && !containsFormat(cfg.Formats, rec.Format) {
		return false
	}

	if len(cfg.Sites) > 0 && !siteAllowed(cfg.Sites, pageURL) {
		return false
	}

	if cfg.PrioritizeOriginal && !rec.Original {
		return false
	}
	if cfg.HighResOnly && !rec.HighRes {
		return false
	}
	if !cfg.IncludeThumbnails && rec.Thumbnail {
		return false
	}

	// Known 100x100 icons are never shown, whether the size came from a
	// URL hint or a completed probe.
	if rec.Width == 100 && rec.Height == 100 {
		return false
	}

	// Measured-size filters only apply once real dimensions exist.
	if rec.Loaded {
		if !cfg.ShowSmall && (rec.Width < 100 || rec.Height < 100) {
			return false
		}
		if rec.Width < cfg.MinWidth || rec.Height < cfg.MinHeight {
			return false
		}
	}

	return true
}

// Chunks splits a view into fixed-size batches for incremental delivery.
func Chunks(records []Record, size int) [][]Record {
	if size <= 0 || len(records) == 0 {
		if len(records) == 0 {
			return nil
		}
		return [][]Record{records}
	}
	out := make([][]Record, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		out = append(out, records[start:end])
	}
	return out
}

func containsFormat(formats []Format, target Format) bool {
	for _, f := range formats {
		if f == target {
			return true
		}
	}
	return false
}

// siteAllowed checks the page host against the enabled site keys. Pages
// on hosts with no dedicated rule always pass; the filter only restricts
// the sites it knows about.
func siteAllowed(enabled []string, pageURL string) bool {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return true
	}
	host := strings.ToLower(parsed.Hostname())

	for _, rule := range siteFilters {
		if strings.Contains(host, rule.needle) {
			for _, site := range enabled {
				if site == rule.key {
					return true
				}
			}
			return false
		}
	}
	return true
}
