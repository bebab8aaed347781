package utils

import (
	"strings"
	"unicode/utf8"
)

// RuneLen counts characters rather than bytes; complaint texts are mostly Arabic.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// StripCodeFence removes a surrounding markdown code fence such as ```json ... ```.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
