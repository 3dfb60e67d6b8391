package model

import "strings"

// SplitSentences splits text on '.' and returns the trimmed non-empty parts.
func SplitSentences(text string) []string {
	parts := strings.Split(text, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ConciseText truncates text to at most max sentences, re-joined with ". "
// and terminated with a period. Empty input returns "".
func ConciseText(text string, max int) string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return ""
	}
	if len(sentences) > max {
		sentences = sentences[:max]
	}
	return strings.Join(sentences, ". ") + "."
}

// Snippet caps text at max bytes for metadata storage, never splitting a
// UTF-8 sequence.
func Snippet(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && text[cut]&0xC0 == 0x80 {
		cut--
	}
	return text[:cut]
}
