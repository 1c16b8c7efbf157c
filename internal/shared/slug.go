package shared

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify normalizes a display name into a URL-safe slug: diacritics are
// stripped, everything outside [a-z0-9] collapses into single hyphens.
func Slugify(name string) string {
	stripped, _, err := transform.String(slugStripper, name)
	if err != nil {
		stripped = name
	}
	var b strings.Builder
	b.Grow(len(stripped))
	lastHyphen := true
	for _, r := range strings.ToLower(stripped) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
