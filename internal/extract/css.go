package extract

import (
	"regexp"
	"strings"
)

var cssURLPattern = regexp.MustCompile(`(?i)url\(['"]?([^'")]+)['"]?\)`)

// ExtractCSSURLs pulls every url() reference out of stylesheet text,
// resolves each against the stylesheet's own URL, and de-duplicates the
// result. Inline data: URIs are skipped.
func ExtractCSSURLs(cssText, baseURL string) []string {
	matches := cssURLPattern.FindAllStringSubmatch(cssText, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, match := range matches {
		raw := strings.TrimSpace(match[1])
		if raw == "" || strings.HasPrefix(raw, "data:") {
			continue
		}
		resolved := Resolve(raw, baseURL)
		if resolved == "" {
			continue
		}
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		out = append(out, resolved)
	}
	return out
}
