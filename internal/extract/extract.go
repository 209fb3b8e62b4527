// Package extract turns free-form language model completions into validated,
// typed values.
//
// Models are asked for JSON but routinely wrap it in markdown fences, surround
// it with prose, omit required keys or return plain text. [Extract] locates a
// JSON candidate, hands it to a per-shape decoder and, when any stage fails,
// returns a deterministic fallback value of the same type instead of an error.
// Callers can tell the two apart through [Result.Kind].
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Kind reports whether a [Result] was decoded from the model output or
// synthesised by a fallback.
type Kind string

const (
	// KindOK means the value was decoded from a JSON candidate and passed
	// validation.
	KindOK Kind = "ok"

	// KindFallback means no valid candidate was found and the value was built
	// from the raw text by the schema's fallback.
	KindFallback Kind = "fallback"
)

// Form is the top-level JSON form a [Schema] expects.
type Form int

const (
	// Object expects a JSON object, located with a greedy {...} search.
	Object Form = iota

	// Array expects a JSON array, located with a greedy [...] search.
	Array
)

// String returns "object" or "array".
func (f Form) String() string {
	if f == Array {
		return "array"
	}
	return "object"
}

// Sentinel reasons attached to fallback results.
var (
	// ErrNoCandidate is reported when the text contains neither a JSON fence
	// nor a bracketed span of the expected form.
	ErrNoCandidate = errors.New("extract: no JSON candidate found")

	// ErrInvalidJSON is reported when the candidate does not parse.
	ErrInvalidJSON = errors.New("extract: candidate is not valid JSON")

	// ErrShape is wrapped by decoders when parsed JSON lacks a required key
	// or has the wrong form.
	ErrShape = errors.New("extract: unexpected shape")
)

// Schema describes one expected shape: how to find it, how to decode it and
// what to return when that fails.
type Schema[T any] struct {
	// Name labels the shape in logs and metrics.
	Name string

	// Form selects the bracket search used when there is no JSON fence.
	Form Form

	// Decode validates a syntactically valid JSON candidate and converts it
	// to T. Rejections should wrap [ErrShape].
	Decode func(candidate []byte) (T, error)

	// Fallback builds a best-effort value from the raw text. It must not
	// fail.
	Fallback func(rawText string) T
}

// Result is the outcome of [Extract].
type Result[T any] struct {
	// Kind is [KindOK] or [KindFallback].
	Kind Kind `json:"kind"`

	// Value is always populated with a value of the expected shape.
	Value T `json:"value"`

	// RawText holds the original model output for fallback results.
	RawText string `json:"rawText,omitempty"`

	// Err explains why a fallback was taken. Nil for [KindOK].
	Err error `json:"-"`
}

// OK reports whether the value was decoded from the model output.
func (r Result[T]) OK() bool { return r.Kind == KindOK }

var (
	fencedJSON = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")
	objectSpan = regexp.MustCompile(`(?s)\{.*\}`)
	arraySpan  = regexp.MustCompile(`(?s)\[.*\]`)
)

// Candidate returns the JSON candidate in rawText for the given form. A
// ```json fence wins over a bracketed span; the span search is greedy, from
// the first opening bracket to the last closing one.
func Candidate(rawText string, form Form) (string, bool) {
	if m := fencedJSON.FindStringSubmatch(rawText); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	span := objectSpan
	if form == Array {
		span = arraySpan
	}
	if loc := span.FindStringIndex(rawText); loc != nil {
		return rawText[loc[0]:loc[1]], true
	}
	return "", false
}

// Extract decodes rawText according to s. It never panics on malformed input
// and never returns an error: every failure produces a [KindFallback] result
// carrying s.Fallback(rawText).
func Extract[T any](rawText string, s Schema[T]) Result[T] {
	v, err := decode(rawText, s)
	if err != nil {
		return Result[T]{
			Kind:    KindFallback,
			Value:   s.Fallback(rawText),
			RawText: rawText,
			Err:     err,
		}
	}
	return Result[T]{Kind: KindOK, Value: v}
}

func decode[T any](rawText string, s Schema[T]) (T, error) {
	var zero T
	candidate, ok := Candidate(rawText, s.Form)
	if !ok {
		return zero, ErrNoCandidate
	}
	if !json.Valid([]byte(candidate)) {
		return zero, ErrInvalidJSON
	}
	v, err := s.Decode([]byte(candidate))
	if err != nil {
		return zero, fmt.Errorf("%s: %w", s.Name, err)
	}
	return v, nil
}
