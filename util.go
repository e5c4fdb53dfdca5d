package dbus

import (
	"bytes"
	"fmt"
	"math"
)

func float64bits(v float64) uint64   { return math.Float64bits(v) }
func float64frombits(v uint64) float64 { return math.Float64frombits(v) }

// nextOffset returns the next byte position and the padding needed to
// reach it given the current offset and an alignment requirement.
func nextOffset(current, align int) (next, padding int) {
	if current%align == 0 {
		return current, 0
	}
	next = (current + align - 1) &^ (align - 1)
	return next, next - current
}

// hasNamespace reports whether x equals ns or starts with ns + ".", the
// relation arg0namespace match-rule keys use.
func hasNamespace(x, ns string) bool {
	if x == ns {
		return true
	}
	return len(x) > len(ns) && x[:len(ns)] == ns && x[len(ns)] == '.'
}

// isPathMatch reports whether a and b satisfy the path-match relation used
// by argNpath match-rule keys: the two strings are identical, or one of
// them ends with "/" and the other starts with it. Only the prefix needs
// the trailing "/": "/aa/bb/".isPathMatch("/aa/bb/cc") is true even though
// "/aa/bb/cc" does not end in "/". When neither string is a prefix of the
// other the result is false.
func isPathMatch(a, b string) bool {
	if a == b {
		return true
	}
	if hasSuffixSlash(a) && hasPrefix(b, a) {
		return true
	}
	if hasSuffixSlash(b) && hasPrefix(a, b) {
		return true
	}
	return false
}

func hasSuffixSlash(s string) bool {
	return len(s) > 0 && s[len(s)-1] == '/'
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// escapeBusLabel escapes s into a D-Bus bus-name-safe label: alphanumerics
// pass through unchanged, everything else (and a leading digit) is
// replaced by "_" followed by its two-digit lowercase hex code. An empty
// string escapes to "_".
func escapeBusLabel(s string, buf *bytes.Buffer) {
	if s == "" {
		buf.WriteByte('_')
		return
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			buf.WriteByte(c)
		case c >= '0' && c <= '9' && i > 0:
			buf.WriteByte(c)
		default:
			fmt.Fprintf(buf, "_%02x", c)
		}
	}
}
