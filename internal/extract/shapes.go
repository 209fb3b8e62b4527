package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Shape names used as log and metric labels.
const (
	ShapeExplanation = "explanation"
	ShapeGrammar     = "grammar"
	ShapePhrase      = "phrase"
	ShapeCategory    = "category"
	ShapeTopicWords  = "topic_words"
)

// DefaultCategory is suggested when the model gives nothing usable.
const DefaultCategory = "General"

// maxCategoryLen bounds a category name recovered from prose.
const maxCategoryLen = 40

// Explanation is a learner-friendly explanation of a word.
type Explanation struct {
	// Definition holds "- meaning; - meaning" style bullet definitions.
	Definition string `json:"definition"`

	// Examples holds one example sentence per meaning in the same style.
	Examples string `json:"examples"`
}

// ExplanationSchema expects {"definition", "examples"}. The fallback keeps the
// raw text as the definition.
func ExplanationSchema() Schema[Explanation] {
	return Schema[Explanation]{
		Name: ShapeExplanation,
		Form: Object,
		Decode: func(candidate []byte) (Explanation, error) {
			m, err := members(candidate)
			if err != nil {
				return Explanation{}, err
			}
			if err := require(m, "definition"); err != nil {
				return Explanation{}, err
			}
			return Explanation{
				Definition: strings.TrimSpace(text(m["definition"])),
				Examples:   strings.TrimSpace(text(m["examples"])),
			}, nil
		},
		Fallback: func(raw string) Explanation {
			return Explanation{Definition: strings.TrimSpace(raw)}
		},
	}
}

// GrammarFeedback is the verdict on a learner's sentence.
type GrammarFeedback struct {
	IsCorrect   bool     `json:"isCorrect"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
}

// GrammarSchema expects {"isCorrect", "feedback", "suggestions"}.
//
// Decoded feedback that is itself serialised grammar JSON is unwrapped once
// and its feedback and suggestions replace the outer ones. A leading echoed
// section heading is stripped from the feedback in both the decoded and the
// fallback path. The fallback marks the sentence incorrect and wraps the
// highlighted raw text, see [Markup].
func GrammarSchema(input string) Schema[GrammarFeedback] {
	return Schema[GrammarFeedback]{
		Name: ShapeGrammar,
		Form: Object,
		Decode: func(candidate []byte) (GrammarFeedback, error) {
			g, err := decodeGrammar(candidate)
			if err != nil {
				return GrammarFeedback{}, err
			}
			if strings.Contains(g.Feedback, `"isCorrect"`) {
				if inner, err := decode(g.Feedback, Schema[GrammarFeedback]{
					Name:   ShapeGrammar,
					Form:   Object,
					Decode: decodeGrammar,
				}); err == nil {
					g.Feedback = inner.Feedback
					g.Suggestions = inner.Suggestions
				}
			}
			g.Feedback = StripHeading(g.Feedback)
			return g, nil
		},
		Fallback: func(raw string) GrammarFeedback {
			return GrammarFeedback{
				IsCorrect:   false,
				Feedback:    Markup(StripHeading(raw), input),
				Suggestions: []string{},
			}
		},
	}
}

func decodeGrammar(candidate []byte) (GrammarFeedback, error) {
	m, err := members(candidate)
	if err != nil {
		return GrammarFeedback{}, err
	}
	if err := require(m, "isCorrect"); err != nil {
		return GrammarFeedback{}, err
	}
	return GrammarFeedback{
		IsCorrect:   boolean(m["isCorrect"]),
		Feedback:    strings.TrimSpace(text(m["feedback"])),
		Suggestions: list(m["suggestions"]),
	}, nil
}

// PracticePhrase is a sentence for the learner to practise.
type PracticePhrase struct {
	Phrase       string `json:"phrase"`
	Translation  string `json:"translation"`
	GrammarFocus string `json:"grammarFocus"`
}

// FallbackGrammarFocus labels phrases recovered from prose.
const FallbackGrammarFocus = "General practice"

// PracticePhraseSchema expects {"phrase", "translation", "grammarFocus"}. The
// fallback embeds the raw text in a phrase about topic.
func PracticePhraseSchema(topic string) Schema[PracticePhrase] {
	return Schema[PracticePhrase]{
		Name: ShapePhrase,
		Form: Object,
		Decode: func(candidate []byte) (PracticePhrase, error) {
			m, err := members(candidate)
			if err != nil {
				return PracticePhrase{}, err
			}
			if err := require(m, "phrase"); err != nil {
				return PracticePhrase{}, err
			}
			return PracticePhrase{
				Phrase:       strings.TrimSpace(text(m["phrase"])),
				Translation:  strings.TrimSpace(text(m["translation"])),
				GrammarFocus: strings.TrimSpace(text(m["grammarFocus"])),
			}, nil
		},
		Fallback: func(raw string) PracticePhrase {
			return PracticePhrase{
				Phrase:       fmt.Sprintf("Practice phrase for %s: %s", topic, raw),
				GrammarFocus: FallbackGrammarFocus,
			}
		},
	}
}

// CategorySuggestion names the category a word most likely belongs to.
type CategorySuggestion struct {
	Category string `json:"category"`
}

// CategorySchema expects {"category"} with a non-empty name. The fallback
// takes the first non-empty line of prose if it is short enough to be a
// name, otherwise [DefaultCategory]. Fence markers and lines carrying JSON
// syntax are never taken as a name.
func CategorySchema() Schema[CategorySuggestion] {
	return Schema[CategorySuggestion]{
		Name: ShapeCategory,
		Form: Object,
		Decode: func(candidate []byte) (CategorySuggestion, error) {
			m, err := members(candidate)
			if err != nil {
				return CategorySuggestion{}, err
			}
			name := cleanCategory(text(m["category"]))
			if name == "" {
				return CategorySuggestion{}, fmt.Errorf("%w: empty category", ErrShape)
			}
			return CategorySuggestion{Category: name}, nil
		},
		Fallback: func(raw string) CategorySuggestion {
			for line := range strings.Lines(raw) {
				if strings.HasPrefix(strings.TrimSpace(line), "```") || strings.ContainsAny(line, jsonSyntax) {
					continue
				}
				name := cleanCategory(line)
				if name == "" || strings.Contains(name, `"`) {
					continue
				}
				if utf8.RuneCountInString(name) > maxCategoryLen {
					break
				}
				return CategorySuggestion{Category: name}
			}
			return CategorySuggestion{Category: DefaultCategory}
		},
	}
}

// jsonSyntax are the characters that mark a line as a JSON fragment rather
// than a category name.
const jsonSyntax = "{}[]:"

// cleanCategory trims whitespace, quotes, markdown emphasis and trailing
// punctuation from a category name.
func cleanCategory(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '`' || (unicode.IsPunct(r) && r != '&' && r != '+')
	})
}

// TopicWord is one generated vocabulary item.
type TopicWord struct {
	Term     string `json:"term"`
	Meanings string `json:"meanings"`
	Examples string `json:"examples"`
}

// TopicWordsSchema expects a JSON array of {"term", "meanings", "examples"}
// objects, each with all three members non-empty. One bad item rejects the
// whole list. The fallback is an empty list.
func TopicWordsSchema() Schema[[]TopicWord] {
	return Schema[[]TopicWord]{
		Name: ShapeTopicWords,
		Form: Array,
		Decode: func(candidate []byte) ([]TopicWord, error) {
			var items []json.RawMessage
			if err := json.Unmarshal(candidate, &items); err != nil || items == nil {
				return nil, fmt.Errorf("%w: want a JSON array", ErrShape)
			}
			words := make([]TopicWord, 0, len(items))
			for i, it := range items {
				m, err := members(it)
				if err != nil {
					return nil, fmt.Errorf("item %d: %w", i, err)
				}
				w := TopicWord{
					Term:     strings.TrimSpace(text(m["term"])),
					Meanings: strings.TrimSpace(text(m["meanings"])),
					Examples: strings.TrimSpace(text(m["examples"])),
				}
				if w.Term == "" || w.Meanings == "" || w.Examples == "" {
					return nil, fmt.Errorf("%w: item %d needs term, meanings and examples", ErrShape, i)
				}
				words = append(words, w)
			}
			return words, nil
		},
		Fallback: func(string) []TopicWord {
			return []TopicWord{}
		},
	}
}
