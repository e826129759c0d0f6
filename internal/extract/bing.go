package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var bingMediaURL = regexp.MustCompile(`"mediaUrl":\s*"([^"]+)"`)

// BingStrategy mines Bing image search result pages. The result grid
// stores thumbnails in img containers and full-size URLs in mediaUrl
// script metadata. The standard strategy always runs afterwards to pick
// up anything the grid missed.
type BingStrategy struct {
	standard Strategy
}

func (b *BingStrategy) Name() string { return "bing" }

func (b *BingStrategy) Extract(doc *Document, reg *Registry) int {
	c := &collector{reg: reg}

	doc.Find(`.imgpt img, .mimg, [class*="image"] img`).Each(func(_ int, sel *goquery.Selection) {
		if val, ok := sel.Attr("data-src"); ok && val != "" {
			c.add(doc.Resolve(val))
		}
		if val, ok := sel.Attr("data-source-url"); ok && val != "" {
			c.add(doc.Resolve(val))
		}
		if src, ok := sel.Attr("src"); ok && src != "" {
			c.add(doc.Resolve(src))
		}
	})

	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		content := sel.Text()
		if !strings.Contains(content, "mediaUrl") {
			return
		}
		for _, match := range bingMediaURL.FindAllStringSubmatch(content, -1) {
			c.add(strings.TrimSpace(match[1]))
		}
	})

	return c.count + b.standard.Extract(doc, reg)
}
