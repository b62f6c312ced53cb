package validators

import "strings"

// CleanText trims the input, collapses inner whitespace runs to single spaces
// and truncates to maxRunes characters (0 means unlimited).
func CleanText(input string, maxRunes int) string {
	cleaned := strings.Join(strings.Fields(input), " ")
	if maxRunes <= 0 {
		return cleaned
	}
	runes := []rune(cleaned)
	if len(runes) <= maxRunes {
		return cleaned
	}
	return strings.TrimSpace(string(runes[:maxRunes]))
}
