package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// DetectFormat infers the image format from the URL's trailing extension.
// An extension followed by a query string still counts.
func DetectFormat(rawURL string) Format {
	lower := strings.ToLower(rawURL)

	suffixes := []struct {
		ext    string
		format Format
	}{
		{".jpg", FormatJPG},
		{".jpeg", FormatJPG},
		{".png", FormatPNG},
		{".webp", FormatWebP},
		{".gif", FormatGIF},
		{".svg", FormatSVG},
		{".bmp", FormatBMP},
		{".tiff", FormatTIFF},
		{".tif", FormatTIFF},
	}
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.ext) {
			return s.format
		}
	}
	queried := []struct {
		marker string
		format Format
	}{
		{".jpg?", FormatJPG},
		{".jpeg?", FormatJPG},
		{".png?", FormatPNG},
		{".webp?", FormatWebP},
		{".gif?", FormatGIF},
		{".svg?", FormatSVG},
	}
	for _, q := range queried {
		if strings.Contains(lower, q.marker) {
			return q.format
		}
	}
	return FormatOther
}

// Size hint patterns, tried in order. The first pattern whose captured
// dimensions both fall inside the plausible range wins.
var sizeHintPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)x(\d+)`),               // 800x600
	regexp.MustCompile(`(?i)width=(\d+).*height=(\d+)`), // width=800&height=600
	regexp.MustCompile(`(?i)w=(\d+).*h=(\d+)`),          // w=800&h=600
	regexp.MustCompile(`(?i)w(\d+).*h(\d+)`),            // w800_h600
	regexp.MustCompile(`(?i)width_(\d+).*height_(\d+)`), // width_800_height_600
	regexp.MustCompile(`(?i)(\d+)px.*(\d+)px`),          // 800px_600px
}

const (
	minPlausibleDim = 10
	maxPlausibleDim = 10000
)

// SizeHint extracts an advisory width and height from dimension tokens
// embedded in the URL. Values outside (10, 10000) are rejected and the
// next pattern is tried; no match yields (0, 0).
func SizeHint(rawURL string) (int, int) {
	for _, pattern := range sizeHintPatterns {
		match := pattern.FindStringSubmatch(rawURL)
		if match == nil {
			continue
		}
		width, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		height, err := strconv.Atoi(match[2])
		if err != nil {
			continue
		}
		if width > minPlausibleDim && width < maxPlausibleDim &&
			height > minPlausibleDim && height < maxPlausibleDim {
			return width, height
		}
	}
	return 0, 0
}

var (
	thumbnailSubstrings = []string{"thumbnail", "thumb", "small", "icon", "preview", "tiny"}
	thumbnailPatterns   = []*regexp.Regexp{
		regexp.MustCompile(`/s\d+/`),
		regexp.MustCompile(`/w\d+(-h\d+)?/`),
		regexp.MustCompile(`size=s\d+`),
		regexp.MustCompile(`size=w\d+`),
		regexp.MustCompile(`_small\.`),
		regexp.MustCompile(`_thumb\.`),
		regexp.MustCompile(`_icon\.`),
		regexp.MustCompile(`_mini\.`),
		regexp.MustCompile(`\d+x\d+_q\d+`),
	}
	tinyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/s\d{1,2}/`),
		regexp.MustCompile(`/w\d{1,2}(-h\d{1,2})?/`),
		regexp.MustCompile(`size=s\d{1,2}`),
		regexp.MustCompile(`_\d{1,2}x\d{1,2}\.`),
	}

	originalSubstrings = []string{"original", "full", "large", "source", "high", "orig"}
	originalPatterns   = []*regexp.Regexp{
		regexp.MustCompile(`/s\d{3,}/`),
		regexp.MustCompile(`/w\d{3,}(-h\d{3,})?/`),
		regexp.MustCompile(`size=s\d{3,}`),
		regexp.MustCompile(`size=w\d{3,}`),
		regexp.MustCompile(`_large\.`),
		regexp.MustCompile(`_full\.`),
		regexp.MustCompile(`_original\.`),
		regexp.MustCompile(`_source\.`),
		regexp.MustCompile(`\d{3,}x\d{3,}`),
	}

	// The \b boundaries keep =s1600 from matching as a two-digit tiny
	// size via backtracking.
	googleTinyParam  = regexp.MustCompile(`=s\d{1,2}\b|=w\d{1,2}(-h\d{1,2})?\b`)
	googleLargeParam = regexp.MustCompile(`=s\d{3,}|=w\d{3,}(-h\d{3,})?`)
)

// ClassifyQuality applies the layered quality heuristics to a URL:
// generic thumbnail markers first, then generic original markers, then
// host-specific overrides. Later layers win, so the evaluation order
// must not change.
func ClassifyQuality(rawURL string) Quality {
	lower := strings.ToLower(rawURL)

	q := Quality{Original: true, HighRes: true, Thumbnail: false}

	if matchesThumbnail(lower) {
		q.Thumbnail = true
		q.Original = false
		if matchesTiny(lower) {
			q.HighRes = false
		}
	}

	if matchesOriginal(lower) {
		q = Quality{Original: true, HighRes: true, Thumbnail: false}
	}

	if strings.Contains(lower, "googleusercontent.com") {
		if googleTinyParam.MatchString(lower) {
			q = Quality{Original: false, HighRes: false, Thumbnail: true}
		} else if googleLargeParam.MatchString(lower) {
			q = Quality{Original: true, HighRes: true, Thumbnail: false}
		}
	}

	if strings.Contains(lower, "irasutoya") {
		if strings.Contains(lower, "_s.") {
			q = Quality{Original: false, HighRes: false, Thumbnail: true}
		} else {
			q = Quality{Original: true, HighRes: true, Thumbnail: false}
		}
	}

	return q
}

func matchesThumbnail(lower string) bool {
	for _, sub := range thumbnailSubstrings {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	for _, pattern := range thumbnailPatterns {
		if pattern.MatchString(lower) {
			return true
		}
	}
	return false
}

func matchesTiny(lower string) bool {
	for _, pattern := range tinyPatterns {
		if pattern.MatchString(lower) {
			return true
		}
	}
	return false
}

func matchesOriginal(lower string) bool {
	for _, sub := range originalSubstrings {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	for _, pattern := range originalPatterns {
		if pattern.MatchString(lower) {
			return true
		}
	}
	return false
}
