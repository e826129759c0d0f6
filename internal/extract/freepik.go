package extract

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Listing selectors tried in order, newest markup first. The first
// selector that matches anything wins.
var freepikListingSelectors = []string{
	".showcase__list .showcase__item",
	".listing-item",
	".listing__item",
	".listing-grid__item",
	".grid-item",
	".grid-cell",
	".card",
	".card--resource",
	".figure--image",
	".figure--vector",
	".resources-list .resources-list-item",
	".resources__list .resources__item",
	".search-results-list .search-results-item",
	".category-list-item",
	".category-item",
	`[data-testid="resource-card"]`,
	`[data-testid="search-item"]`,
	`[data-view="grid"] > div`,
	".multiple-keywords-result-item",
	".complex-search-result-item",
	`.related-keywords-container [class*="item"]`,
	`.related-keywords-container [class*="card"]`,
	`[data-view="list"] > div`,
	`[data-role="search-results"] > div > div`,
	`[data-role="resource-card"]`,
	"figure",
	".img-container",
}

var freepikScriptImagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)"(https?://[^"]+\.(jpg|jpeg|png|gif|webp|svg))"`),
	regexp.MustCompile(`(?i)'(https?://[^']+\.(jpg|jpeg|png|gif|webp|svg))'`),
	regexp.MustCompile(`(?i)url\(['"]?(https?://[^'")\s]+\.(?:jpg|jpeg|png|gif|webp|svg))['"]?\)`),
	regexp.MustCompile(`(?i)"image":"(https?://[^"]+)"`),
	regexp.MustCompile(`(?i)"preview":"(https?://[^"]+)"`),
	regexp.MustCompile(`(?i)"thumbnail":"(https?://[^"]+)"`),
	regexp.MustCompile(`(?i)"src":"(https?://[^"]+)"`),
	regexp.MustCompile(`(?i)"url":"(https?://[^"]+\.(jpg|jpeg|png|gif|webp|svg))"`),
}

var freepikStatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)window\.__INITIAL_STATE__\s*=\s*(\{.*?\});`),
	regexp.MustCompile(`(?s)window\.__APOLLO_STATE__\s*=\s*(\{.*?\});`),
	regexp.MustCompile(`(?s)window\.SEARCH_RESULTS\s*=\s*(\{.*?\});`),
	regexp.MustCompile(`(?s)window\.RESOURCES\s*=\s*(\{.*?\});`),
	regexp.MustCompile(`(?s)\.hydrate\s*\(\s*(\{.*?\})\s*,\s*document`),
}

var freepikNamedURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"previewUrl":"([^"]+)"`),
	regexp.MustCompile(`"thumbnailUrl":"([^"]+)"`),
	regexp.MustCompile(`"smallThumbnailUrl":"([^"]+)"`),
	regexp.MustCompile(`"largeImageUrl":"([^"]+)"`),
	regexp.MustCompile(`"originalImageUrl":"([^"]+)"`),
}

var (
	freepikResourceID   = regexp.MustCompile(`"(?:id|resourceId|resource_id)":"([^"]+)"`)
	freepikBackground   = regexp.MustCompile(`(?i)background-image\s*:\s*url\(['"]?([^'")]+)['"]?\)`)
	freepikImageHref    = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp)($|\?)`)
	freepikAbsoluteURL  = regexp.MustCompile(`https?://`)
	freepikResourceDirs = []string{"premium-vector", "free-vector", "premium-photo", "free-photo"}
)

// FreepikStrategy mines Freepik search and resource pages. Freepik
// renders most content client-side, so the strategy layers several
// techniques: listing containers, embedded state JSON, meta tags,
// data attributes, resource-id guesses, and a direct image sweep. All
// layers accumulate; the standard strategy runs only when every layer
// came up empty.
type FreepikStrategy struct {
	standard Strategy
	logger   *slog.Logger
}

func (f *FreepikStrategy) Name() string { return "freepik" }

func (f *FreepikStrategy) Extract(doc *Document, reg *Registry) int {
	if f.logger != nil {
		if search, ok := parseFreepikSearch(doc.BaseURL()); ok {
			f.logger.Debug("freepik search context",
				"query", search.Query,
				"type", search.Type,
				"format", search.Format,
				"last_filter", search.LastFilter,
				"last_value", search.LastValue,
			)
		}
	}

	c := &collector{reg: reg}

	listings := f.extractListings(doc, c)
	scripts := f.extractScripts(doc, c)
	meta := f.extractMetaTags(doc, c)
	dataAttrs := f.extractDataAttributes(doc, c)
	api := f.extractAPIResources(doc, c)
	direct := f.extractDirect(doc, c)

	if f.logger != nil {
		f.logger.Debug("freepik extraction layers",
			"listings", listings,
			"scripts", scripts,
			"meta", meta,
			"data_attrs", dataAttrs,
			"api", api,
			"direct", direct,
		)
	}

	if c.count == 0 {
		return f.standard.Extract(doc, reg)
	}
	return c.count
}

func (f *FreepikStrategy) extractListings(doc *Document, c *collector) int {
	found := 0
	for _, selector := range freepikListingSelectors {
		items := doc.Find(selector)
		if items.Length() == 0 {
			continue
		}
		items.Each(func(_ int, item *goquery.Selection) {
			item.Find("img").Each(func(_ int, img *goquery.Selection) {
				extractFreepikImageAttrs(doc, img, c)
				found++
			})

			item.Find(`[style*="background-image"]`).Each(func(_ int, el *goquery.Selection) {
				extractFreepikBackground(doc, el, c)
				found++
			})
			if style, ok := item.Attr("style"); ok && strings.Contains(style, "background-image") {
				extractFreepikBackground(doc, item, c)
				found++
			}

			for _, attr := range []string{"data-src", "data-bg", "data-image", "data-lazy", "data-srcset"} {
				item.Find("[" + attr + "]").Each(func(_ int, el *goquery.Selection) {
					if val, ok := el.Attr(attr); ok && val != "" {
						c.add(doc.Resolve(val))
						found++
					}
				})
			}

			// Premium results hide their previews deeper in the tree.
			if item.Find(`.premium-badge, .badge--premium, [class*="premium"]`).Length() > 0 {
				item.Find("*").Each(func(_ int, el *goquery.Selection) {
					if goquery.NodeName(el) == "img" {
						extractFreepikImageAttrs(doc, el, c)
					} else if style, ok := el.Attr("style"); ok && strings.Contains(style, "background-image") {
						extractFreepikBackground(doc, el, c)
					}
				})
			}
		})
		if found > 0 {
			break
		}
	}
	return found
}

func (f *FreepikStrategy) extractScripts(doc *Document, c *collector) int {
	found := 0
	doc.Find(`script:not([src]), script[type="application/ld+json"], script[type="text/javascript"]`).Each(func(_ int, sel *goquery.Selection) {
		content := sel.Text()
		if content == "" {
			return
		}

		if containsAny(content, "searchResults", "resourcesList", "searchData",
			"__INITIAL_STATE__", "__APOLLO_STATE__", "window.SEARCH_RESULTS", "window.RESOURCES") {
			for _, pattern := range freepikScriptImagePatterns {
				for _, match := range pattern.FindAllStringSubmatch(content, -1) {
					c.add(doc.Resolve(match[1]))
					found++
				}
			}
			for _, pattern := range freepikStatePatterns {
				state := pattern.FindStringSubmatch(content)
				if state == nil {
					continue
				}
				for _, imgPattern := range freepikScriptImagePatterns {
					for _, match := range imgPattern.FindAllStringSubmatch(state[1], -1) {
						c.add(doc.Resolve(match[1]))
						found++
					}
				}
			}
		}

		hasNamedURL := false
		for _, pattern := range freepikNamedURLPatterns {
			if pattern.MatchString(content) {
				hasNamedURL = true
				break
			}
		}
		if hasNamedURL {
			for _, pattern := range freepikNamedURLPatterns {
				for _, match := range pattern.FindAllStringSubmatch(content, -1) {
					clean := strings.ReplaceAll(match[1], `\`, "")
					c.add(doc.Resolve(clean))
					found++
				}
			}
		}
	})
	return found
}

func (f *FreepikStrategy) extractMetaTags(doc *Document, c *collector) int {
	found := 0
	doc.Find(`meta[property="og:image"], meta[property="og:image:url"], meta[name="twitter:image"]`).Each(func(_ int, sel *goquery.Selection) {
		if content, ok := sel.Attr("content"); ok && content != "" {
			c.add(doc.Resolve(content))
			found++
		}
	})

	doc.Find(`meta[property*="image"], meta[name*="image"], meta[content*=".jpg"], meta[content*=".png"]`).Each(func(_ int, sel *goquery.Selection) {
		content, ok := sel.Attr("content")
		if !ok {
			return
		}
		if freepikAbsoluteURL.MatchString(content) && imageExtAnywhere.MatchString(content) {
			c.add(doc.Resolve(content))
			found++
		}
	})
	return found
}

func (f *FreepikStrategy) extractDataAttributes(doc *Document, c *collector) int {
	found := 0
	for _, attr := range []string{"data-image", "data-src", "data-srcset", "data-bg", "data-original", "data-preview", "data-thumbnail"} {
		doc.Find("[" + attr + "]").Each(func(_ int, sel *goquery.Selection) {
			val, ok := sel.Attr(attr)
			if !ok || !freepikAbsoluteURL.MatchString(val) {
				return
			}
			c.add(doc.Resolve(val))
			found++
		})
	}

	doc.Find(`[data-testid*="image"], [data-testid*="resource"], [data-view], [data-role*="image"]`).Each(func(_ int, sel *goquery.Selection) {
		img := sel.Find("img").First()
		if img.Length() > 0 {
			extractFreepikImageAttrs(doc, img, c)
			found++
		}
		if style, ok := sel.Attr("style"); ok && strings.Contains(style, "background-image") {
			extractFreepikBackground(doc, sel, c)
			found++
		}
	})
	return found
}

// extractAPIResources guesses asset URLs from resource ids mentioned in
// scripts that talk to Freepik's internal API.
func (f *FreepikStrategy) extractAPIResources(doc *Document, c *collector) int {
	found := 0
	doc.Find("script:not([src])").Each(func(_ int, sel *goquery.Selection) {
		content := sel.Text()
		if content == "" {
			return
		}
		if !containsAny(content, "/api/", "apiUrl", "apiEndpoint", "fetch(", "axios.get(") {
			return
		}
		for _, match := range freepikResourceID.FindAllStringSubmatch(content, -1) {
			for _, dir := range freepikResourceDirs {
				c.add(fmt.Sprintf("https://img.freepik.com/%s/%s.jpg", dir, match[1]))
				found++
			}
		}
	})
	return found
}

func (f *FreepikStrategy) extractDirect(doc *Document, c *collector) int {
	found := 0
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		extractFreepikImageAttrs(doc, img, c)
		found++
	})
	doc.Find(`[style*="background-image"]`).Each(func(_ int, el *goquery.Selection) {
		extractFreepikBackground(doc, el, c)
		found++
	})
	return found
}

func extractFreepikImageAttrs(doc *Document, img *goquery.Selection, c *collector) {
	if src, ok := img.Attr("src"); ok && src != "" && !strings.Contains(src, "data:image/") {
		c.add(doc.Resolve(src))
	}
	for _, attr := range []string{"data-src", "data-bg", "data-original", "data-lazy-src", "data-url", "data-image"} {
		if val, ok := img.Attr(attr); ok && val != "" {
			c.add(doc.Resolve(val))
		}
	}

	if srcset, ok := img.Attr("srcset"); ok && srcset != "" {
		for _, part := range strings.Split(srcset, ",") {
			trimmed := strings.TrimSpace(part)
			if idx := strings.LastIndex(trimmed, " "); idx != -1 {
				c.add(doc.Resolve(trimmed[:idx]))
			}
		}
	}

	parent := img.Closest("a[href]")
	if parent.Length() > 0 {
		if href, ok := parent.Attr("href"); ok && freepikImageHref.MatchString(href) {
			c.add(doc.Resolve(href))
		}
	}
}

func extractFreepikBackground(doc *Document, el *goquery.Selection, c *collector) {
	style, ok := el.Attr("style")
	if !ok || !strings.Contains(style, "background-image") {
		return
	}
	for _, match := range freepikBackground.FindAllStringSubmatch(style, -1) {
		c.add(doc.Resolve(match[1]))
	}
}

// freepikSearchContext is the query information recoverable from a
// Freepik URL. It only feeds logging; extraction never depends on it.
type freepikSearchContext struct {
	Query      string
	Type       string
	Format     string
	LastFilter string
	LastValue  string
}

// parseFreepikSearch recovers the search keyword and filters from either
// URL form: /search carries everything in query parameters, while
// /vectors/, /photos/, /premium/, and /ai-image/ paths carry the type
// and keyword as path segments.
func parseFreepikSearch(rawURL string) (freepikSearchContext, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return freepikSearchContext{}, false
	}

	if strings.Contains(parsed.Path, "/search") {
		params := parsed.Query()
		search := freepikSearchContext{
			Query:      params.Get("query"),
			Type:       params.Get("type"),
			Format:     params.Get("format"),
			LastFilter: params.Get("last_filter"),
			LastValue:  params.Get("last_value"),
		}
		return search, search.Query != ""
	}

	for _, marker := range []string{"/vectors/", "/photos/", "/premium/", "/ai-image/"} {
		if !strings.Contains(rawURL, marker) {
			continue
		}
		segments := make([]string, 0, 4)
		for _, seg := range strings.Split(parsed.Path, "/") {
			if seg != "" {
				segments = append(segments, seg)
			}
		}
		if len(segments) < 2 {
			return freepikSearchContext{}, false
		}
		keyword := segments[1]
		if idx := strings.Index(keyword, "#"); idx != -1 {
			keyword = keyword[:idx]
		}
		return freepikSearchContext{Query: keyword, Type: segments[0]}, true
	}

	return freepikSearchContext{}, false
}

func containsAny(s string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
