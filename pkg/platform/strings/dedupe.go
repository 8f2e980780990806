// Package strings provides string helpers shared by input validation.
package strings

import (
	"strings"
	"unicode/utf8"
)

// DedupeAndTrim trims each value and drops blanks and repeats, keeping the
// first occurrence. Comparison is exact after trimming.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

// AllDistinct reports whether every value is non-blank and no two values
// are equal after trimming.
func AllDistinct(values []string) bool {
	return len(DedupeAndTrim(values)) == len(values)
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
