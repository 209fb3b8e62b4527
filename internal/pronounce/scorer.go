// Package pronounce scores a speech transcript against the phrase the learner
// was asked to say.
//
// Each target word is matched against every transcript word and keeps its
// best edit-distance similarity; the phrase score is the mean over target
// words. The comparison ignores word order, extra transcript words and reuse
// of one transcript word for several target words. It is a tolerance score,
// not a sequence alignment.
package pronounce

import (
	"fmt"
	"math"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/wordwise/internal/textnorm"
)

// PassThreshold is the minimum rounded score for an attempt to count as
// correct.
const PassThreshold = 80

// WordMatch records how one target word was matched.
type WordMatch struct {
	// Target is the normalised target word.
	Target string `json:"target"`

	// Heard is the transcript word that matched best. Empty when the
	// transcript had no words.
	Heard string `json:"heard"`

	// Similarity is the best similarity in [0, 100].
	Similarity float64 `json:"similarity"`

	// SoundsAlike reports whether Target and Heard share a Double Metaphone
	// code. It is informational and does not affect the score.
	SoundsAlike bool `json:"soundsAlike"`
}

// Result is the outcome of [Score].
type Result struct {
	// Score is the mean best-match similarity rounded to the nearest integer.
	Score int `json:"score"`

	// IsCorrect is Score >= [PassThreshold].
	IsCorrect bool `json:"isCorrect"`

	// Words holds one entry per target word, in target order. Nil for the
	// degenerate empty cases.
	Words []WordMatch `json:"words,omitempty"`
}

// Score compares transcript against target.
//
// Both empty scores 100; exactly one empty scores 0.
func Score(transcript, target string) Result {
	heard := textnorm.Tokens(transcript)
	want := textnorm.Tokens(target)

	switch {
	case len(heard) == 0 && len(want) == 0:
		return newResult(100, nil)
	case len(heard) == 0 || len(want) == 0:
		return newResult(0, nil)
	}

	words := make([]WordMatch, 0, len(want))
	var total float64
	for _, w := range want {
		m := WordMatch{Target: w}
		for _, h := range heard {
			if s := Similarity(w, h); s > m.Similarity || m.Heard == "" {
				m.Similarity = s
				m.Heard = h
			}
		}
		m.SoundsAlike = soundsAlike(m.Target, m.Heard)
		words = append(words, m)
		total += m.Similarity
	}
	return newResult(total/float64(len(want)), words)
}

func newResult(raw float64, words []WordMatch) Result {
	score := int(math.Round(raw))
	return Result{
		Score:     score,
		IsCorrect: score >= PassThreshold,
		Words:     words,
	}
}

// soundsAlike compares Double Metaphone codes, ignoring empty codes.
func soundsAlike(a, b string) bool {
	ap, as := matchr.DoubleMetaphone(a)
	bp, bs := matchr.DoubleMetaphone(b)
	for _, x := range []string{ap, as} {
		if x == "" {
			continue
		}
		if x == bp || x == bs {
			return true
		}
	}
	return false
}

// Feedback renders a short learner-facing message for r.
func Feedback(r Result) string {
	if r.IsCorrect {
		if r.Score == 100 {
			return "Perfect! Every word matched."
		}
		return fmt.Sprintf("Great job! You scored %d%%.", r.Score)
	}
	if len(r.Words) == 0 {
		return "We could not hear any words. Please try again."
	}

	var practise, nearly []string
	for _, w := range r.Words {
		if w.Similarity >= PassThreshold {
			continue
		}
		if w.SoundsAlike {
			nearly = append(nearly, w.Target)
		} else {
			practise = append(practise, w.Target)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You scored %d%%.", r.Score)
	if len(practise) > 0 {
		fmt.Fprintf(&sb, " Practise these words: %s.", strings.Join(practise, ", "))
	}
	if len(nearly) > 0 {
		fmt.Fprintf(&sb, " Almost there with: %s.", strings.Join(nearly, ", "))
	}
	return sb.String()
}
