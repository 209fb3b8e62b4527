package tutor

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/wordwise/internal/extract"
)

// Difficulty of a generated practice phrase.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty accepts easy, medium or hard in any case. A blank value
// means [Medium].
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return Medium, nil
	case Easy, Medium, Hard:
		return d, nil
	default:
		return "", fmt.Errorf("%w: difficulty %q", ErrInvalidInput, s)
	}
}

// Explanation is the result of [Service.Explain].
type Explanation struct {
	Word string `json:"word"`
	extract.Explanation

	// Kind tells whether the definition was decoded or is the raw reply.
	Kind extract.Kind `json:"kind"`

	// SuggestedCategory is empty when the suggestion was skipped.
	SuggestedCategory string `json:"suggestedCategory,omitempty"`
}

// Explain asks the model for the meanings of word. Unless skipCategory is
// set, a category suggestion is requested concurrently; either call failing
// fails the whole explanation.
func (s *Service) Explain(ctx context.Context, word string, skipCategory bool) (Explanation, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return Explanation{}, fmt.Errorf("%w: word", ErrEmptyInput)
	}

	var (
		out      = Explanation{Word: word}
		category string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := s.complete(gctx, "explain", ExplanationPrompt(word))
		if err != nil {
			return err
		}
		r := decode(gctx, s.metrics, raw, extract.ExplanationSchema())
		out.Explanation = r.Value
		out.Kind = r.Kind
		return nil
	})
	if !skipCategory {
		g.Go(func() error {
			raw, err := s.complete(gctx, "suggest category", CategoryPrompt(word))
			if err != nil {
				return err
			}
			category = decode(gctx, s.metrics, raw, extract.CategorySchema()).Value.Category
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Explanation{}, err
	}
	out.SuggestedCategory = category
	return out, nil
}

// CheckGrammar asks the model to judge input in the context of topic.
func (s *Service) CheckGrammar(ctx context.Context, input, topic string) (extract.Result[extract.GrammarFeedback], error) {
	switch {
	case blank(input):
		return extract.Result[extract.GrammarFeedback]{}, fmt.Errorf("%w: input", ErrEmptyInput)
	case blank(topic):
		return extract.Result[extract.GrammarFeedback]{}, fmt.Errorf("%w: topic", ErrEmptyInput)
	}
	raw, err := s.complete(ctx, "check grammar", GrammarPrompt(input, topic))
	if err != nil {
		return extract.Result[extract.GrammarFeedback]{}, err
	}
	return decode(ctx, s.metrics, raw, extract.GrammarSchema(input)), nil
}

// PracticePhrase asks the model for a sentence about topic, which may also be
// a single vocabulary word.
func (s *Service) PracticePhrase(ctx context.Context, topic string, d Difficulty) (extract.Result[extract.PracticePhrase], error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return extract.Result[extract.PracticePhrase]{}, fmt.Errorf("%w: topic", ErrEmptyInput)
	}
	if d == "" {
		d = Medium
	}
	raw, err := s.complete(ctx, "practice phrase", PhrasePrompt(topic, d))
	if err != nil {
		return extract.Result[extract.PracticePhrase]{}, err
	}
	return decode(ctx, s.metrics, raw, extract.PracticePhraseSchema(topic)), nil
}
