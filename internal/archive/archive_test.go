package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
	"time"
)

func TestFilename(t *testing.T) {
	cases := []struct {
		url         string
		contentType string
		format      string
		want        string
	}{
		{"https://example.com/images/photo.png?v=1", "", "", "photo.png"},
		{"https://example.com/img", "image/webp", "", "img.webp"},
		{"https://example.com/img", "image/svg+xml; charset=utf-8", "", "img.svg"},
		{"https://example.com/img", "", "jpg", "img.jpg"},
		{"https://example.com/", "", "", "image"},
		{"https://example.com/asset", "application/octet-stream", "other", "asset"},
	}
	for _, tc := range cases {
		if got := Filename(tc.url, tc.contentType, tc.format); got != tc.want {
			t.Errorf("Filename(%q, %q, %q) = %q, want %q", tc.url, tc.contentType, tc.format, got, tc.want)
		}
	}
}

func TestUniqueName(t *testing.T) {
	used := make(map[string]struct{})
	if got := UniqueName(used, "photo.png"); got != "photo.png" {
		t.Fatalf("first use should keep the name, got %q", got)
	}
	if got := UniqueName(used, "photo.png"); got != "photo_1.png" {
		t.Fatalf("second use should get suffix, got %q", got)
	}
	if got := UniqueName(used, "photo.png"); got != "photo_2.png" {
		t.Fatalf("third use should get next suffix, got %q", got)
	}
}

func TestArchiveName(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	if got := ArchiveName("https://www.example.com/gallery", now); got != "example.com_images_20260830.zip" {
		t.Fatalf("unexpected archive name %q", got)
	}
	if got := ArchiveName("::broken::", now); got != "images_images_20260830.zip" {
		t.Fatalf("unparseable page url should fall back, got %q", got)
	}
}

func TestBuild(t *testing.T) {
	var buf bytes.Buffer
	items := []Item{
		{Name: "a.jpg", Data: []byte("first")},
		{Name: "b.png", Data: []byte("second")},
	}
	if err := Build(&buf, items); err != nil {
		t.Fatalf("build: %v", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if len(reader.File) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(reader.File))
	}

	rc, err := reader.File[0].Open()
	if err != nil {
		t.Fatalf("open entry: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read entry: %v", err)
	}
	if string(data) != "first" {
		t.Fatalf("unexpected entry content %q", data)
	}
}
