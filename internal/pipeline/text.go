package pipeline

import "unicode/utf8"

// clipBody caps body text at limit bytes without splitting a multi-byte
// rune, so truncated Korean bodies stay valid UTF-8.
func clipBody(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
