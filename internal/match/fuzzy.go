package match

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// FuzzyRatio returns a 0–1 similarity score between two strings, replacing
// the reference implementation's rapidfuzz-style ratio with a normalized
// Levenshtein distance: 1 - (edit distance / max length). Comparison is
// case-insensitive.
func FuzzyRatio(a, b string) float64 {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

// BestRatio returns the highest FuzzyRatio between name and any of candidates.
func BestRatio(name string, candidates []string) float64 {
	best := 0.0
	for _, c := range candidates {
		if r := FuzzyRatio(name, c); r > best {
			best = r
		}
	}
	return best
}
