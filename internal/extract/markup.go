package extract

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

const highlightOpen = `<span style="color: red; font-weight: bold;">`

// highlighted lists grammar vocabulary, advice verbs and mistake words.
// Multi-word terms come first so leftmost-first matching prefers them.
var highlighted = regexp.MustCompile(`(?i)\b(` + strings.Join([]string{
	"sentence structure",
	"subject", "verb", "object", "predicate", "noun", "adjective", "adverb",
	"preposition", "conjunction", "pronoun", "article", "tense", "mood",
	"grammar", "syntax", "punctuation", "capitalization",
	"should", "could", "must", "recommend", "suggest", "consider", "try", "avoid",
	"incorrect", "wrong", "error", "mistake", "problem", "issue",
}, "|") + `)\b`)

// leadingHeading matches an echoed section title at the very start of the
// feedback: "## Grammar Analysis", "**Feedback:**", "Grammar Feedback:" and
// similar.
var leadingHeading = regexp.MustCompile(
	`(?i)^\s*(?:#{1,6}[ \t]*)?(?:\*\*)?(?:grammar analysis|grammar feedback|feedback)[ \t]*(?:\*\*[ \t]*)?(?::[ \t]*(?:\*\*)?[ \t]*|\r?\n|$)`)

// StripHeading removes one leading section heading from s and trims the
// remainder. Text without such a heading is only trimmed.
func StripHeading(s string) string {
	if loc := leadingHeading.FindStringIndex(s); loc != nil {
		s = s[loc[1]:]
	}
	return strings.TrimSpace(s)
}

// Markup builds the grammar fallback message: the raw model text, HTML
// escaped, with grammar terms, advice verbs and mistake words highlighted.
func Markup(rawText, input string) string {
	marked := highlighted.ReplaceAllString(html.EscapeString(rawText), highlightOpen+"$1</span>")
	return fmt.Sprintf(`I analyzed your sentence: "%s". Here are my thoughts: %s`,
		html.EscapeString(input), marked)
}
