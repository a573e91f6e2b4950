package download

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MaxFilenameLength is the maximum length of a sanitized name.
const MaxFilenameLength = 200

// SanitizeFilename replaces every character outside [A-Za-z0-9-_. ] with '_'
// and truncates the result to MaxFilenameLength characters. Input is NFC
// normalised first so a composed character becomes a single '_'.
func SanitizeFilename(name string) string {
	name = norm.NFC.String(name)

	var b strings.Builder
	b.Grow(len(name))
	n := 0
	for _, r := range name {
		if n == MaxFilenameLength {
			break
		}
		if allowed(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		n++
	}
	return b.String()
}

func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_', r == '.', r == ' ':
		return true
	}
	return false
}
