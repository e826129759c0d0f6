package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var inlineBackgroundPattern = regexp.MustCompile(`(?i)background(-image)?\s*:\s*url\(['"]?([^'")]+)['"]?\)`)

// Lazy-loading attributes checked in order; the first present wins.
var lazyAttrs = []string{"data-src", "data-original", "data-lazy-src", "data-srcset", "data-url"}

// StandardStrategy performs generic extraction on any page: img sources
// and srcsets, lazy-load attributes, inline style blocks, inline
// background styles, and direct image links.
type StandardStrategy struct{}

func (s *StandardStrategy) Name() string { return "standard" }

func (s *StandardStrategy) Extract(doc *Document, reg *Registry) int {
	c := &collector{reg: reg}

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok && src != "" {
			c.add(doc.Resolve(src))
		}

		if srcset, ok := sel.Attr("srcset"); ok && srcset != "" {
			for _, part := range strings.Split(srcset, ",") {
				fields := strings.Fields(strings.TrimSpace(part))
				if len(fields) > 0 {
					c.add(doc.Resolve(fields[0]))
				}
			}
		}

		for _, attr := range lazyAttrs {
			if val, ok := sel.Attr(attr); ok && val != "" {
				c.add(doc.Resolve(val))
				break
			}
		}
	})

	doc.Find("style").Each(func(_ int, sel *goquery.Selection) {
		for _, u := range ExtractCSSURLs(sel.Text(), doc.BaseURL()) {
			c.add(u)
		}
	})

	doc.Find(`[style*="background"]`).Each(func(_ int, sel *goquery.Selection) {
		style, ok := sel.Attr("style")
		if !ok {
			return
		}
		if match := inlineBackgroundPattern.FindStringSubmatch(style); match != nil {
			c.add(doc.Resolve(match[2]))
		}
	})

	doc.Find("a[href], link[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || !IsImageURL(href) {
			return
		}
		c.add(doc.Resolve(href))
	})

	return c.count
}
