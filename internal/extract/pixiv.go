package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	pixivCropDir      = regexp.MustCompile(`/c/\d+x\d+`)
	pixivMasterJPG    = regexp.MustCompile(`_master\d+\.jpg$`)
	pixivMasterPNG    = regexp.MustCompile(`_master\d+\.png$`)
	pixivJSONBlob     = regexp.MustCompile(`(?s)\{.+\}`)
	pixivURLValue     = regexp.MustCompile(`(?i)https?://.*\.(jpg|jpeg|png|gif)`)
	pixivMaxJSONDepth = 5
)

// PixivStrategy mines pixiv artwork and search pages. Master thumbnail
// URLs are rewritten to their img-original counterparts, and the
// preload JSON pixiv embeds in script tags is walked for any value that
// looks like an image URL. The standard strategy runs only when nothing
// matched.
type PixivStrategy struct {
	standard Strategy
}

func (p *PixivStrategy) Name() string { return "pixiv" }

func (p *PixivStrategy) Extract(doc *Document, reg *Registry) int {
	c := &collector{reg: reg}

	doc.Find(".work-main-image img, ._illust_image img, ._work-renderer img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || src == "" {
			return
		}
		c.add(doc.Resolve(src))

		master := pixivOriginalURL(src)
		if master != src {
			c.add(doc.Resolve(master))
			if png := strings.TrimSuffix(master, ".jpg") + ".png"; strings.HasSuffix(master, ".jpg") {
				c.add(doc.Resolve(png))
			}
		}
	})

	doc.Find("._thumbnail img, .image-item img, ._work-modal-image img").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok && src != "" {
			c.add(doc.Resolve(src))
		}
	})

	if content, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok && content != "" {
		c.add(content)
	}

	doc.Find(`script[id^="meta-preload-data"], script#js-mount-point-search-result-list, script:not([src])`).Each(func(_ int, sel *goquery.Selection) {
		content := sel.Text()
		if content == "" {
			return
		}
		if !strings.Contains(content, `"originalImageUrl"`) &&
			!strings.Contains(content, `"urls"`) &&
			!strings.Contains(content, `"image_urls"`) {
			return
		}

		if blob := pixivJSONBlob.FindString(content); blob != "" {
			var data any
			if err := json.Unmarshal([]byte(blob), &data); err == nil {
				walkPixivJSON(data, 0, c)
			}
		}
		for _, match := range scriptDirectImage.FindAllStringSubmatch(content, -1) {
			c.add(match[1])
		}
	})

	if c.count == 0 {
		return p.standard.Extract(doc, reg)
	}
	return c.count
}

// pixivOriginalURL rewrites a cropped master thumbnail URL to the
// img-original variant pixiv serves full resolution from.
func pixivOriginalURL(src string) string {
	out := pixivCropDir.ReplaceAllString(src, "/img-master")
	out = strings.Replace(out, "/img-master/img/", "/img-original/img/", 1)
	out = pixivMasterJPG.ReplaceAllString(out, ".jpg")
	return pixivMasterPNG.ReplaceAllString(out, ".png")
}

// walkPixivJSON recursively scans decoded preload JSON for string
// values under URL-ish keys that look like image URLs.
func walkPixivJSON(node any, depth int, c *collector) {
	if depth > pixivMaxJSONDepth {
		return
	}
	switch v := node.(type) {
	case map[string]any:
		for key, value := range v {
			if s, ok := value.(string); ok {
				urlKey := strings.Contains(key, "Url") || strings.Contains(key, "url") || key == "src"
				if urlKey && pixivURLValue.MatchString(s) {
					c.add(s)
				}
				continue
			}
			walkPixivJSON(value, depth+1, c)
		}
	case []any:
		for _, item := range v {
			walkPixivJSON(item, depth+1, c)
		}
	}
}
