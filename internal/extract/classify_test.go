package extract

import "testing"

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		url  string
		want Format
	}{
		{"https://example.com/photo.jpg", FormatJPG},
		{"https://example.com/photo.JPEG", FormatJPG},
		{"https://example.com/icon.png", FormatPNG},
		{"https://example.com/anim.gif", FormatGIF},
		{"https://example.com/modern.webp", FormatWebP},
		{"https://example.com/logo.svg", FormatSVG},
		{"https://example.com/old.bmp", FormatBMP},
		{"https://example.com/scan.tif", FormatTIFF},
		{"https://example.com/pic.png?v=2", FormatPNG},
		{"https://example.com/pic.jpg?w=800&h=600", FormatJPG},
		{"https://example.com/document.pdf", FormatOther},
		{"https://example.com/no-extension", FormatOther},
	}
	for _, tc := range cases {
		if got := DetectFormat(tc.url); got != tc.want {
			t.Errorf("DetectFormat(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestSizeHint(t *testing.T) {
	cases := []struct {
		url        string
		wantWidth  int
		wantHeight int
	}{
		{"https://example.com/img_800x600.jpg", 800, 600},
		{"https://example.com/pic.jpg?width=1024&height=768", 1024, 768},
		{"https://example.com/pic.jpg?w=320&h=240", 320, 240},
		{"https://example.com/photos/width_640_height_480.png", 640, 480},
		{"https://example.com/photo.jpg", 0, 0},
		// Both dimensions must be plausible or the hint is discarded.
		{"https://example.com/3x4.png", 0, 0},
		{"https://example.com/99999x99999.png", 0, 0},
	}
	for _, tc := range cases {
		w, h := SizeHint(tc.url)
		if w != tc.wantWidth || h != tc.wantHeight {
			t.Errorf("SizeHint(%q) = (%d, %d), want (%d, %d)", tc.url, w, h, tc.wantWidth, tc.wantHeight)
		}
	}
}

func TestClassifyQuality(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want Quality
	}{
		{
			"plain url defaults to original",
			"https://cdn.example.com/photo.jpg",
			Quality{Original: true, HighRes: true, Thumbnail: false},
		},
		{
			"thumb marker",
			"https://cdn.example.com/photo_thumb.jpg",
			Quality{Original: false, HighRes: true, Thumbnail: true},
		},
		{
			"tiny scale directory",
			"https://cdn.example.com/s72/photo.jpg",
			Quality{Original: false, HighRes: false, Thumbnail: true},
		},
		{
			"original marker wins over thumbnail marker",
			"https://cdn.example.com/thumb/photo_original.jpg",
			Quality{Original: true, HighRes: true, Thumbnail: false},
		},
		{
			"googleusercontent tiny parameter",
			"https://lh3.googleusercontent.com/abcdef=s72",
			Quality{Original: false, HighRes: false, Thumbnail: true},
		},
		{
			"googleusercontent large parameter",
			"https://lh3.googleusercontent.com/abcdef=s1600",
			Quality{Original: true, HighRes: true, Thumbnail: false},
		},
		{
			"irasutoya small variant",
			"https://www.irasutoya.com/images/character_s.png",
			Quality{Original: false, HighRes: false, Thumbnail: true},
		},
		{
			"irasutoya full variant",
			"https://www.irasutoya.com/images/character.png",
			Quality{Original: true, HighRes: true, Thumbnail: false},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyQuality(tc.url); got != tc.want {
				t.Errorf("ClassifyQuality(%q) = %+v, want %+v", tc.url, got, tc.want)
			}
		})
	}
}

func TestEstimateBytes(t *testing.T) {
	cases := []struct {
		format Format
		want   int64
	}{
		{FormatJPG, 30000},
		{FormatPNG, 180000},
		{FormatWebP, 24000},
		{FormatGIF, 36000},
		{FormatSVG, 12000},
		{FormatOther, 480000},
	}
	for _, tc := range cases {
		if got := EstimateBytes(400, 300, tc.format); got != tc.want {
			t.Errorf("EstimateBytes(400, 300, %q) = %d, want %d", tc.format, got, tc.want)
		}
	}
	if got := EstimateBytes(0, 300, FormatJPG); got != 0 {
		t.Errorf("expected zero estimate for zero width, got %d", got)
	}
}
