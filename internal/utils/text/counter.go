// Package text provides small text measurements used for logging and metrics
// around transcripts and generated articles.
package text

import "strings"

// CountRunes counts Unicode characters rather than bytes, so multi-byte
// scripts and emoji are measured the way a reader sees them.
//
// Examples:
//
//	CountRunes("hello")     // 5
//	CountRunes("日本語")     // 3
//	CountRunes("")          // 0
func CountRunes(text string) int {
	return len([]rune(text))
}

// CountWords counts whitespace-separated words.
// Transcripts arrive as one long line of segments, so this is the figure
// logged for transcript and article size.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Truncate shortens text to at most max runes, appending "..." when cut.
// Used to keep provider error bodies and stderr excerpts bounded in logs.
func Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
