package cmd

import "strings"

// sanitizeTerminal replaces control characters (runes < 0x20, 0x7F and the C1
// range) with '?' so that text taken from converted documents cannot inject
// escape sequences into human-readable output.
func sanitizeTerminal(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || (r >= 0x7F && r < 0xA0) {
			return '?'
		}
		return r
	}, s)
}
