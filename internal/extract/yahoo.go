package extract

import (
	"encoding/json"

	"github.com/PuerkitoBio/goquery"
)

// yahooItemMeta is the JSON payload Yahoo attaches to thumbnail grid
// items; icUrl carries the thumbnail and imgUrl the full-size image.
type yahooItemMeta struct {
	IcURL  string `json:"icUrl"`
	ImgURL string `json:"imgUrl"`
}

// YahooStrategy mines Yahoo Japan image search result pages. The
// standard strategy always runs afterwards.
type YahooStrategy struct {
	standard Strategy
}

func (y *YahooStrategy) Name() string { return "yahoo" }

func (y *YahooStrategy) Extract(doc *Document, reg *Registry) int {
	c := &collector{reg: reg}

	containers := doc.Find("img.cl-img, img.sw-Thumbnail__item, .sw-ThumbnailGrid__item img")
	if containers.Length() > 0 {
		containers.Each(func(_ int, sel *goquery.Selection) {
			if val, ok := sel.Attr("data-src"); ok && val != "" {
				c.add(doc.Resolve(val))
			}
			if src, ok := sel.Attr("src"); ok && src != "" {
				c.add(doc.Resolve(src))
			}
		})

		doc.Find("[data-p]").Each(func(_ int, sel *goquery.Selection) {
			raw, ok := sel.Attr("data-p")
			if !ok || raw == "" {
				return
			}
			var meta yahooItemMeta
			if err := json.Unmarshal([]byte(raw), &meta); err != nil {
				return
			}
			if meta.IcURL != "" {
				c.add(meta.IcURL)
			}
			if meta.ImgURL != "" {
				c.add(meta.ImgURL)
			}
		})
	}

	return c.count + y.standard.Extract(doc, reg)
}
