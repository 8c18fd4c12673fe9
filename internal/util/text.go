package util

import (
	"strings"
	"unicode"
)

// Slugify turns a store name into a URL slug: lowercase, alphanumerics
// kept, runs of anything else collapsed to single hyphens, trimmed to 60
// characters on a hyphen boundary where possible.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen

	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.TrimSuffix(b.String(), "-")
	if len(slug) > 60 {
		slug = slug[:60]
		if i := strings.LastIndexByte(slug, '-'); i > 40 {
			slug = slug[:i]
		}
	}
	return slug
}

// TruncateText shortens s to max runes, appending an ellipsis when cut
func TruncateText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}
