package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	irasutoyaScaleDir  = regexp.MustCompile(`/s\d+/`)
	irasutoyaPNGSuffix = regexp.MustCompile(`_\d+\.png$`)
	irasutoyaJPGSuffix = regexp.MustCompile(`_\d+\.jpg$`)
)

// IrasutoyaStrategy mines irasutoya article and listing pages. Article
// images come in a sized variant and a full variant; both are added so
// the quality classifier can prefer the larger one. Small icon variants
// are skipped outright.
type IrasutoyaStrategy struct {
	standard Strategy
}

func (i *IrasutoyaStrategy) Name() string { return "irasutoya" }

func (i *IrasutoyaStrategy) Extract(doc *Document, reg *Registry) int {
	c := &collector{reg: reg}

	articleImages := doc.Find(".entry .separator img, .entry .asset-content img, .entry-content img")
	if articleImages.Length() > 0 {
		articleImages.Each(func(_ int, sel *goquery.Selection) {
			src, ok := sel.Attr("src")
			if !ok || src == "" || isIrasutoyaIcon(src) {
				return
			}
			c.add(doc.Resolve(stripIrasutoyaSizeSuffix(src)))
			c.add(doc.Resolve(src))
		})
		return c.count
	}

	doc.Find(".thumb img, .boxim img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || src == "" || isIrasutoyaIcon(src) {
			return
		}
		original := irasutoyaScaleDir.ReplaceAllString(src, "/s1600/")
		c.add(doc.Resolve(stripIrasutoyaSizeSuffix(original)))
		c.add(doc.Resolve(src))
	})

	return c.count + i.standard.Extract(doc, reg)
}

// isIrasutoyaIcon reports whether a source URL is one of the small
// thumbnail variants that never carry useful content.
func isIrasutoyaIcon(src string) bool {
	return strings.Contains(src, "_s.") ||
		strings.Contains(src, "_100.") ||
		irasutoyaScaleDir.MatchString(src) ||
		strings.Contains(src, "100x100")
}

// stripIrasutoyaSizeSuffix rewrites a sized file name like name_400.png
// to its full-size counterpart.
func stripIrasutoyaSizeSuffix(src string) string {
	out := irasutoyaPNGSuffix.ReplaceAllString(src, ".png")
	return irasutoyaJPGSuffix.ReplaceAllString(out, ".jpg")
}
