// Package names detects and repairs file and directory names which the
// destination repository will not accept. Names must be between 1 and 255
// bytes, must not begin with a dash, and must not contain newlines, carriage
// returns, tabs, vertical tabs, or ASCII bells.
//
// The 255 limit is measured in bytes of the UTF-8 encoded name, matching the
// limit most filesystems enforce, not in characters.
package names

import (
	"path"
	"strings"
	"unicode/utf8"
)

// MaxNameBytes is the longest permitted name, including any extension.
const MaxNameBytes = 255

// Reason identifies why a name was flagged.
type Reason int

const (
	ReasonEmpty Reason = iota
	ReasonTooLong
	ReasonLeadingDash
	ReasonControlChar
)

func (r Reason) String() string {
	switch r {
	case ReasonEmpty:
		return "empty name"
	case ReasonTooLong:
		return "name exceeds 255 bytes"
	case ReasonLeadingDash:
		return "name begins with a dash"
	case ReasonControlChar:
		return "name contains a control character"
	}
	return "unknown"
}

// badChars are the characters the destination repository rejects outright:
// newline, carriage return, horizontal tab, vertical tab, and ASCII bell.
const badChars = "\n\r\t\v\a"

// Check evaluates a single file or directory name and returns the reasons it
// is impermissible, in a fixed order. A clean name yields nil.
func Check(name string) []Reason {
	var reasons []Reason
	if len(name) == 0 {
		return []Reason{ReasonEmpty}
	}
	if len(name) > MaxNameBytes {
		reasons = append(reasons, ReasonTooLong)
	}
	if name[0] == '-' {
		reasons = append(reasons, ReasonLeadingDash)
	}
	if strings.ContainsAny(name, badChars) {
		reasons = append(reasons, ReasonControlChar)
	}
	return reasons
}

// Clean computes a permissible replacement for name. Each impermissible
// character becomes an underscore, a leading dash becomes an underscore, an
// empty name becomes a single underscore, and names over the byte limit are
// truncated with the extension kept. Clean is idempotent: Check(Clean(x))
// is always nil.
func Clean(name string) string {
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(badChars, r) {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	result := b.String()
	if result == "" {
		return "_"
	}
	if result[0] == '-' {
		result = "_" + result[1:]
	}
	return truncate(result, MaxNameBytes)
}

// truncate shortens name to at most limit bytes, keeping the extension when
// possible and never splitting a multi-byte rune.
func truncate(name string, limit int) string {
	if len(name) <= limit {
		return name
	}
	ext := path.Ext(name)
	if len(ext) >= limit {
		return cutAtRune(name, limit)
	}
	stem := cutAtRune(name[:len(name)-len(ext)], limit-len(ext))
	return stem + ext
}

// cutAtRune cuts s to at most limit bytes on a rune boundary.
func cutAtRune(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	s = s[:limit]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
