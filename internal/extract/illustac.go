package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	illustIDParam      = regexp.MustCompile(`[?&]id=(\d+)`)
	illustScriptID     = regexp.MustCompile(`id\s*:\s*['"]?(\d+)['"]?`)
	illustSizeModifier = regexp.MustCompile(`_(s|m|t)(\.[a-zA-Z]+)$`)
	scriptDirectImage  = regexp.MustCompile(`"(https?://[^"]+\.(jpg|jpeg|png|gif))"`)
)

// IllustACStrategy mines illust-AC search and detail pages. Search
// result thumbnails link to detail pages whose numeric id also names
// the full-size asset, so both jpg and png variants are guessed from
// the id. The standard strategy runs only when nothing matched.
type IllustACStrategy struct {
	standard Strategy
}

func (s *IllustACStrategy) Name() string { return "illustac" }

func (s *IllustACStrategy) Extract(doc *Document, reg *Registry) int {
	c := &collector{reg: reg}

	doc.Find(".search_img_box a, .list_img_box a, .img_box a").Each(func(_ int, link *goquery.Selection) {
		img := link.Find("img").First()
		if img.Length() == 0 {
			return
		}
		src, ok := img.Attr("src")
		if !ok || src == "" {
			return
		}
		c.add(doc.Resolve(src))

		if href, ok := link.Attr("href"); ok {
			if match := illustIDParam.FindStringSubmatch(href); match != nil {
				addIllustVariants(c, match[1])
			}
		}

		// Guess the full-size asset from the thumbnail path as well.
		highRes := strings.Replace(src, "/data/", "/main/", 1)
		highRes = illustSizeModifier.ReplaceAllString(highRes, "$2")
		if highRes != src {
			c.add(doc.Resolve(highRes))
		}
	})

	doc.Find(".main_img img, .img_area img, #illust_img img").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok && src != "" {
			c.add(doc.Resolve(src))
		}
		if val, ok := sel.Attr("data-src"); ok && val != "" {
			c.add(doc.Resolve(val))
		}
	})

	if content, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok && content != "" {
		c.add(content)
	}

	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		content := sel.Text()
		if content == "" {
			return
		}
		if !strings.Contains(content, `"image"`) &&
			!strings.Contains(content, `"url"`) &&
			!strings.Contains(content, `"thumbnail"`) {
			return
		}
		if match := illustScriptID.FindStringSubmatch(content); match != nil {
			addIllustVariants(c, match[1])
		}
		for _, match := range scriptDirectImage.FindAllStringSubmatch(content, -1) {
			c.add(match[1])
		}
	})

	if c.count == 0 {
		return s.standard.Extract(doc, reg)
	}
	return c.count
}

func addIllustVariants(c *collector, illustID string) {
	c.add(fmt.Sprintf("https://ac-illust.com/main/img/%s.jpg", illustID))
	c.add(fmt.Sprintf("https://ac-illust.com/main/img/%s.png", illustID))
}
