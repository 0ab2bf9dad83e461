package proxy

import "strings"

const upperhex = "0123456789ABCDEF"

// Quote percent-encodes every byte of s except ASCII letters, digits,
// "_.-~" and "/". This is the encoding rewriting proxies of the
// https%3A//host/path form expect: the scheme colon is escaped while path
// separators stay readable.
//
// url.PathEscape keeps ":" and "@" and url.QueryEscape escapes "/", so
// neither produces this form.
func Quote(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !keep(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if keep(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func keep(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '_', c == '.', c == '-', c == '~', c == '/':
		return true
	default:
		return false
	}
}
