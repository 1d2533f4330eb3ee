package app

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NameKey reduces a human name to a canonical comparison key: decompose,
// strip combining marks, lowercase, keep ASCII letters and digits only.
// Returns nil for nil/empty/whitespace input or when nothing survives the
// filter; a nil key never matches another nil key.
func NameKey(name *string) *string {
	if name == nil {
		return nil
	}
	// fresh chain per call; transformers carry state and are not safe to share
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, *name)
	if err != nil {
		s = *name
	}
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return nil
	}
	k := b.String()
	return &k
}
