package extract

import "math"

// Format identifies an image format inferred from a URL.
type Format string

const (
	FormatJPG   Format = "jpg"
	FormatPNG   Format = "png"
	FormatWebP  Format = "webp"
	FormatGIF   Format = "gif"
	FormatSVG   Format = "svg"
	FormatBMP   Format = "bmp"
	FormatTIFF  Format = "tiff"
	FormatOther Format = "other"
)

// Formats lists every known format, in a stable order.
func Formats() []Format {
	return []Format{FormatJPG, FormatPNG, FormatWebP, FormatGIF, FormatSVG, FormatBMP, FormatTIFF, FormatOther}
}

// Quality captures the heuristic quality classification of a candidate URL.
type Quality struct {
	Original  bool `json:"is_original"`
	HighRes   bool `json:"is_high_res"`
	Thumbnail bool `json:"is_thumbnail"`
}

// Record is one discovered image candidate. The URL is the unique key;
// Format is assigned once at insertion and never changes. Width and
// Height start from the URL size hint and become authoritative when a
// dimension probe marks the record loaded.
type Record struct {
	URL           string `json:"url"`
	Selected      bool   `json:"selected"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Loaded        bool   `json:"loaded"`
	Format        Format `json:"format"`
	EstimatedSize int64  `json:"estimated_size"`
	Quality
}

// Area returns the pixel area used for size ordering.
func (r Record) Area() int {
	return r.Width * r.Height
}

// EstimateBytes approximates the encoded byte size of an image from its
// dimensions, using per-format compression ratios.
func EstimateBytes(width, height int, format Format) int64 {
	if width <= 0 || height <= 0 {
		return 0
	}
	bytesPerPixel := 4.0
	switch format {
	case FormatJPG:
		bytesPerPixel = 0.25
	case FormatPNG:
		bytesPerPixel = 1.5
	case FormatWebP:
		bytesPerPixel = 0.2
	case FormatGIF:
		bytesPerPixel = 0.3
	case FormatSVG:
		bytesPerPixel = 0.1
	}
	return int64(math.Round(float64(width) * float64(height) * bytesPerPixel))
}
