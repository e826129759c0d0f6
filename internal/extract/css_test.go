package extract

import "testing"

func TestExtractCSSURLs(t *testing.T) {
	css := `
	.hero { background-image: url('../images/hero.jpg'); }
	.logo { background: url("/assets/logo.png") no-repeat; }
	.icon { background: url(sprite.svg); }
	.inline { background: url(data:image/png;base64,AAAA); }
	.dup { background-image: url('../images/hero.jpg'); }
	`
	base := "https://example.com/css/site.css"

	urls := ExtractCSSURLs(css, base)
	want := []string{
		"https://example.com/images/hero.jpg",
		"https://example.com/assets/logo.png",
		"https://example.com/css/sprite.svg",
	}
	if len(urls) != len(want) {
		t.Fatalf("expected %d urls, got %d: %v", len(want), len(urls), urls)
	}
	for i, u := range want {
		if urls[i] != u {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], u)
		}
	}
}

func TestExtractCSSURLsEmpty(t *testing.T) {
	if got := ExtractCSSURLs("body { color: red; }", "https://example.com/a.css"); got != nil {
		t.Fatalf("expected nil for css without url(), got %v", got)
	}
}
