package validators

import "strings"

// LabelMaxLen caps free-text identity labels such as tipo, marca and modelo.
const LabelMaxLen = 120

// SanitizeString trims input, folds inner whitespace runs into one space and
// caps the result at maxLen runes. A non-positive maxLen disables the cap.
func SanitizeString(input string, maxLen int) string {
	folded := strings.Join(strings.Fields(input), " ")
	if maxLen <= 0 {
		return folded
	}
	if runes := []rune(folded); len(runes) > maxLen {
		return strings.TrimSpace(string(runes[:maxLen]))
	}
	return folded
}

// SanitizeList trims each entry and drops blanks. Nil stays nil.
func SanitizeList(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
