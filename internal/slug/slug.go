// Package slug derives URL slugs from display names.
package slug

import "strings"

// Make lower-cases s, trims it, turns each run of whitespace into a single
// '-' and drops every byte outside [a-z0-9-]. Make(Make(s)) == Make(s).
//
// Whitespace is the ECMAScript set (\s and String.prototype.trim), so
// slugs match links built by the browser side.
func Make(s string) string {
	s = strings.TrimFunc(strings.ToLower(s), isSpace)

	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if isSpace(r) {
			if !inSpace {
				b.WriteByte('-')
				inSpace = true
			}
			continue
		}
		inSpace = false
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isSpace matches ECMAScript WhiteSpace and LineTerminator. Unlike
// unicode.IsSpace it excludes U+0085 and includes U+FEFF.
func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ',
		'\u00a0', '\u1680', '\u2028', '\u2029', '\u202f', '\u205f', '\u3000', '\ufeff':
		return true
	}
	return r >= '\u2000' && r <= '\u200a'
}
