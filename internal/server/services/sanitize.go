package services

import "strings"

// SanitizeFilename restricts a display filename to characters safe for
// embedding in a storage path: alphanumerics, '.', '_' and '-'. Everything
// else becomes '_', and runs of replacements collapse to one. The result is
// used only for path construction; the original filename is kept as
// display metadata.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastReplaced := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			lastReplaced = false
		default:
			if !lastReplaced {
				b.WriteByte('_')
				lastReplaced = true
			}
		}
	}

	s := b.String()
	if s == "" {
		return "file"
	}
	return s
}
