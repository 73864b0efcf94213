package log

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ASCII forces s into plain ASCII so it is safe on any console. Characters are
// decomposed (NFKD) first and whatever is still not ASCII becomes '?'. If the
// result differs from s it is prefixed with '~' to show information was lost.
func ASCII(s string) string {
	decomposed := norm.NFKD.String(s)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r < utf8.RuneSelf {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('?')
	}

	out := b.String()
	if out != s {
		return "~" + out
	}
	return out
}
