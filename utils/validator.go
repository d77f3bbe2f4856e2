package utils

import "strings"

// SanitizeInput trims surrounding whitespace and strips null bytes from
// user-supplied query values before they reach a LIKE filter.
func SanitizeInput(input string) string {
	input = strings.TrimSpace(input)
	return strings.ReplaceAll(input, "\x00", "")
}
