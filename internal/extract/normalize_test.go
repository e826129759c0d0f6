package extract

import "testing"

func TestResolve(t *testing.T) {
	base := "https://example.com/gallery/page.html"
	cases := []struct {
		candidate string
		want      string
	}{
		{"", ""},
		{"data:image/png;base64,AAAA", "data:image/png;base64,AAAA"},
		{"photo.jpg", "https://example.com/gallery/photo.jpg"},
		{"/images/photo.jpg", "https://example.com/images/photo.jpg"},
		{"//cdn.example.com/photo.jpg", "https://cdn.example.com/photo.jpg"},
		{"https://other.example.com/photo.jpg", "https://other.example.com/photo.jpg"},
	}
	for _, tc := range cases {
		if got := Resolve(tc.candidate, base); got != tc.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tc.candidate, base, got, tc.want)
		}
	}
}

func TestResolveBadInput(t *testing.T) {
	// Unparseable candidates come back unchanged.
	bad := "http://%zz"
	if got := Resolve(bad, "https://example.com/"); got != bad {
		t.Errorf("Resolve(%q) = %q, want unchanged", bad, got)
	}
}

func TestDisplayURL(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{
			"https://example.com/%E7%8C%AB.jpg",
			"https://example.com/猫.jpg",
		},
		{
			"https://example.com/img.jpg?q=%E7%8C%AB&size=10",
			"https://example.com/img.jpg?q=猫&size=10",
		},
		{
			"https://example.com/a.png#top",
			"https://example.com/a.png#top",
		},
		{
			"not a url at all",
			"not a url at all",
		},
	}
	for _, tc := range cases {
		if got := DisplayURL(tc.raw); got != tc.want {
			t.Errorf("DisplayURL(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestIsImageURL(t *testing.T) {
	if !IsImageURL("https://example.com/photo.JPG") {
		t.Error("expected .JPG link to count as an image")
	}
	if IsImageURL("https://example.com/page.html") {
		t.Error("expected .html link to be rejected")
	}
}
