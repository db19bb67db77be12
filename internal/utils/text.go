package utils

import (
	"strings"
	"unicode/utf8"
)

// CleanUTF8 removes or replaces invalid UTF8 characters from a string
// Returns the cleaned string and a boolean indicating if cleaning was needed
func CleanUTF8(input string) (string, bool) {
	needsCleaning := strings.Contains(input, "\x00") || !utf8.ValidString(input)

	if !needsCleaning {
		return input, false
	}

	cleaned := strings.ToValidUTF8(input, "")
	cleaned = strings.ReplaceAll(cleaned, "\x00", "")

	return cleaned, true
}

// CleanText prepares optional free text for storage. Blank input becomes nil
// and text longer than maxRunes is cut at a rune boundary.
func CleanText(input *string, maxRunes int) *string {
	if input == nil {
		return nil
	}

	cleaned, _ := CleanUTF8(*input)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil
	}

	if maxRunes > 0 && utf8.RuneCountInString(cleaned) > maxRunes {
		cleaned = strings.TrimSpace(string([]rune(cleaned)[:maxRunes]))
	}
	return &cleaned
}
