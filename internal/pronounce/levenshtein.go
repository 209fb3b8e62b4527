package pronounce

import (
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// Levenshtein returns the edit distance between a and b counted in runes,
// with insertion, deletion and substitution each costing 1 and no
// transpositions.
func Levenshtein(a, b string) int {
	return matchr.Levenshtein(a, b)
}

// Similarity returns 100 * (maxLen - distance) / maxLen for two tokens, where
// maxLen is the longer token's rune count. Two empty tokens are identical
// (100).
func Similarity(a, b string) float64 {
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 100
	}
	return 100 * float64(maxLen-Levenshtein(a, b)) / float64(maxLen)
}
