package normalize

import (
	"strings"
	"unicode/utf8"
)

// Text removes characters that render as nothing but split a word for
// substring matching: zero-width and directional marks, bidi embeddings
// and isolates, tag characters, and C0/C1 controls other than tab, newline
// and carriage return. Invalid UTF-8 bytes are dropped. Visible characters
// are left untouched.
func Text(s string) string {
	if isPlain(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if r == utf8.RuneError && size == 1 {
			continue
		}
		if hidden(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isPlain reports whether s is printable ASCII plus tab, newline and CR.
func isPlain(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x80 || (c < 0x20 && c != '\t' && c != '\n' && c != '\r') || c == 0x7F {
			return false
		}
	}
	return true
}

func hidden(r rune) bool {
	switch r {
	case '\u200B', '\u200C', '\u200D', '\uFEFF', '\u2060', '\u180E', '\u200E', '\u200F':
		return true
	case '\u202A', '\u202B', '\u202C', '\u202D', '\u202E', '\u2066', '\u2067', '\u2068', '\u2069':
		return true
	case '\t', '\n', '\r':
		return false
	}
	if r >= 0xE0001 && r <= 0xE007F {
		return true
	}
	return r <= 0x1F || r == 0x7F || (r >= 0x80 && r <= 0x9F)
}
