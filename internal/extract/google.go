package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selector set for Google image search result containers. Google rotates
// its markup frequently, so old and new variants are kept side by side.
const googleImageSelectors = `div.islrc img, div.isv-r img, a[href^="/imgres"] img, ` +
	`[data-src], img[data-iurl], img[data-ils], ` +
	`g-img img, .rg_i, .rg_anbg, .rg_ilmbg, ` +
	`.UwIUSe img, a.wXeWr img, .bicc img, ` +
	`div[jscontroller] img, div[data-hveid] img`

var (
	googleThumbSize    = regexp.MustCompile(`w\d+-h\d+`)
	googleThumbScale   = regexp.MustCompile(`s\d+`)
	imgurlParam        = regexp.MustCompile(`imgurl=([^&]+)`)
	scriptImageURL     = regexp.MustCompile(`"(https?://[^"]+\.(jpg|jpeg|png|gif|webp))"`)
	afInitDataCallback = regexp.MustCompile(`AF_initDataCallback\s*\(\s*\{(?s:.+?)\}\s*\)\s*;`)
	afDataStructure    = regexp.MustCompile(`(?s)data\s*:\s*(\[.+?\])\s*\}`)
	afPotentialURL     = regexp.MustCompile(`"(https?://[^"]{10,})"`)
	imageExtAnywhere   = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp|svg)(\?|$)`)
	imgrefParam        = regexp.MustCompile(`(?i)imgrefurl=([^&"]+)`)
	metadataEscapes    = strings.NewReplacer(`\u003d`, "=", `\u0026`, "&")
)

// Keys under which Google result metadata hides image URLs.
var googleMetadataKeys = []string{"ou", "ru", "tu", "imageUrl", "thumbUrl", "origUrl", "imgurl", "fullImageUrl"}

var googleMetadataAttrs = []string{"data-tbnid", "data-ri", "data-id", "data-lfi", "data-meta", "jsdata", "data-lpage"}

var googleParentSelectors = []string{"div[data-ri]", "div[data-id]", "[data-lfi]", "[data-tbnid]", "g-img", "div.isv-r"}

// GoogleStrategy mines Google image search result pages: result
// containers, imgurl= redirect links, result metadata attributes, and
// AF_initDataCallback script payloads. When nothing matches, the page is
// probably not a result page and the standard strategy runs instead.
type GoogleStrategy struct {
	standard Strategy
}

func (g *GoogleStrategy) Name() string { return "google" }

func (g *GoogleStrategy) Extract(doc *Document, reg *Registry) int {
	c := &collector{reg: reg}
	found := false

	doc.Find(googleImageSelectors).Each(func(_ int, sel *goquery.Selection) {
		found = true

		for _, attr := range []string{"data-src", "data-iurl", "data-thumbnail", "data-thumbnail-url"} {
			if val, ok := sel.Attr(attr); ok && val != "" {
				c.add(doc.Resolve(val))
			}
		}
		if src, ok := sel.Attr("src"); ok && src != "" {
			c.add(doc.Resolve(convertGoogleThumbnail(src)))
		}

		g.extractMetadata(sel, c)
	})

	doc.Find(`a[href*="imgurl="]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		match := imgurlParam.FindStringSubmatch(href)
		if match == nil {
			return
		}
		decoded, err := url.QueryUnescape(match[1])
		if err != nil {
			return
		}
		c.add(decoded)
		found = true
	})

	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		content := sel.Text()
		if content == "" {
			return
		}
		for _, match := range scriptImageURL.FindAllStringSubmatch(content, -1) {
			c.add(match[1])
		}
		extractGoogleScriptData(content, c)
	})

	if !found || c.count == 0 {
		return g.standard.Extract(doc, reg)
	}
	return c.count
}

// extractMetadata walks known result container ancestors and pulls image
// URLs out of their serialized metadata attributes.
func (g *GoogleStrategy) extractMetadata(sel *goquery.Selection, c *collector) {
	for _, parentSelector := range googleParentSelectors {
		parent := sel.Closest(parentSelector)
		if parent.Length() == 0 {
			continue
		}
		for _, attr := range googleMetadataAttrs {
			metadata, ok := parent.Attr(attr)
			if !ok || metadata == "" {
				continue
			}
			for _, key := range googleMetadataKeys {
				pattern := regexp.MustCompile(`(?i)"` + key + `"\s*:\s*"([^"]+)"`)
				match := pattern.FindStringSubmatch(metadata)
				if match == nil {
					continue
				}
				decoded, err := url.QueryUnescape(metadataEscapes.Replace(match[1]))
				if err != nil {
					continue
				}
				c.add(decoded)
			}
			if match := imgrefParam.FindStringSubmatch(metadata); match != nil {
				if decoded, err := url.QueryUnescape(match[1]); err == nil {
					c.add(decoded)
				}
			}
		}
	}
}

// convertGoogleThumbnail upgrades a googleusercontent thumbnail URL to
// its high resolution variant by widening the size parameters.
func convertGoogleThumbnail(rawURL string) string {
	if !strings.Contains(rawURL, "googleusercontent.com/img") {
		return rawURL
	}
	out := googleThumbSize.ReplaceAllString(rawURL, "w1000-h1000")
	return googleThumbScale.ReplaceAllString(out, "s1000")
}

// extractGoogleScriptData scans AF_initDataCallback payloads for image
// URLs, both as direct matches and inside the embedded data arrays.
func extractGoogleScriptData(content string, c *collector) {
	for _, callback := range afInitDataCallback.FindAllString(content, -1) {
		for _, match := range scriptImageURL.FindAllStringSubmatch(callback, -1) {
			c.add(match[1])
		}
		structure := afDataStructure.FindStringSubmatch(callback)
		if structure == nil {
			continue
		}
		for _, candidate := range afPotentialURL.FindAllStringSubmatch(structure[1], -1) {
			raw := candidate[1]
			if imageExtAnywhere.MatchString(raw) || strings.Contains(raw, "googleusercontent.com/img") {
				c.add(raw)
			}
		}
	}
}
