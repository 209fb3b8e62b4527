// Package textnorm tokenises and case-folds user-facing strings so that
// transcripts, target phrases, vocabulary terms and category names can be
// compared without regard to case, surrounding whitespace or Unicode
// composition form.
package textnorm

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns s in NFC form, lowercased and trimmed. Interior
// whitespace is left untouched.
func Normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(norm.NFC.String(s)))
}

// Tokens normalises s and splits it on runs of whitespace. An empty or
// whitespace-only input yields a nil slice.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// Key is the identity form used for case-insensitive lookups: the normalised
// string with interior whitespace runs collapsed to a single space.
func Key(s string) string {
	return strings.Join(Tokens(s), " ")
}

// Equal reports whether a and b have the same [Key].
func Equal(a, b string) bool {
	return Key(a) == Key(b)
}
