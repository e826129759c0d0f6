package extract

import (
	"net/url"
	"strings"
)

// Resolve turns a candidate reference into an absolute URL against base.
// It never fails: an empty candidate yields "", a data: URI passes through
// untouched, and anything unparseable comes back unchanged so a later
// fetch can surface the real error.
func Resolve(candidate, base string) string {
	if candidate == "" {
		return ""
	}
	if strings.HasPrefix(candidate, "data:") {
		return candidate
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return candidate
	}
	ref, err := url.Parse(candidate)
	if err != nil {
		return candidate
	}
	return baseURL.ResolveReference(ref).String()
}

// DisplayURL renders a URL with percent-encoded path segments and query
// parameters decoded for human display. Each component decodes
// independently; a component that fails keeps its encoded form. The
// original URL remains the canonical key.
func DisplayURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	path := u.EscapedPath()
	if decoded, derr := url.PathUnescape(path); derr == nil {
		path = decoded
	}

	var query string
	if u.RawQuery != "" {
		pairs := strings.Split(u.RawQuery, "&")
		decoded := make([]string, 0, len(pairs))
		for _, pair := range pairs {
			key, value, _ := strings.Cut(pair, "=")
			if dk, derr := url.QueryUnescape(key); derr == nil {
				key = dk
			}
			if dv, derr := url.QueryUnescape(value); derr == nil {
				value = dv
			}
			decoded = append(decoded, key+"="+value)
		}
		query = "?" + strings.Join(decoded, "&")
	}

	var fragment string
	if u.Fragment != "" {
		fragment = "#" + u.Fragment
	}

	return u.Scheme + "://" + u.Host + path + query + fragment
}

// IsImageURL reports whether a link target looks like a direct image.
func IsImageURL(raw string) bool {
	lower := strings.ToLower(raw)
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".bmp"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
