// Package archive bundles downloaded images into ZIP files for bulk
// delivery.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"
)

// Item is one file destined for the archive.
type Item struct {
	Name string
	Data []byte
}

var contentTypeExtensions = map[string]string{
	"image/jpeg":    "jpg",
	"image/jpg":     "jpg",
	"image/png":     "png",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/svg+xml": "svg",
	"image/bmp":     "bmp",
	"image/tiff":    "tiff",
}

// Filename derives an archive member name from the image URL. When the
// URL path carries no extension, the upstream content type decides,
// then the classified format as a last resort.
func Filename(rawURL, contentType, format string) string {
	name := "image"
	if parsed, err := url.Parse(rawURL); err == nil {
		if base := path.Base(parsed.Path); base != "" && base != "/" && base != "." {
			name = base
		}
	}

	if strings.Contains(name, ".") {
		return name
	}

	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = strings.TrimSpace(ct[:idx])
	}
	if ext, ok := contentTypeExtensions[ct]; ok {
		return name + "." + ext
	}
	if format != "" && format != "other" {
		return name + "." + format
	}
	return name
}

// UniqueName disambiguates duplicate member names with a numeric
// suffix before the extension. The used set is updated in place.
func UniqueName(used map[string]struct{}, name string) string {
	if _, taken := used[name]; !taken {
		used[name] = struct{}{}
		return name
	}

	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if _, taken := used[candidate]; !taken {
			used[candidate] = struct{}{}
			return candidate
		}
	}
}

// ArchiveName names the ZIP after the page host and the current date,
// like example.com_images_20260830.zip.
func ArchiveName(pageURL string, now time.Time) string {
	domain := "images"
	if parsed, err := url.Parse(pageURL); err == nil && parsed.Hostname() != "" {
		domain = strings.TrimPrefix(parsed.Hostname(), "www.")
	}
	return fmt.Sprintf("%s_images_%s.zip", domain, now.Format("20060102"))
}

// Build writes the items into a ZIP stream.
func Build(w io.Writer, items []Item) error {
	zw := zip.NewWriter(w)
	for _, item := range items {
		f, err := zw.Create(item.Name)
		if err != nil {
			return fmt.Errorf("create zip entry %q: %w", item.Name, err)
		}
		if _, err := f.Write(item.Data); err != nil {
			return fmt.Errorf("write zip entry %q: %w", item.Name, err)
		}
	}
	return zw.Close()
}
