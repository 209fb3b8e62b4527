package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/wordwise/internal/observe"
	"github.com/MrWong99/wordwise/internal/pronounce"
	"github.com/MrWong99/wordwise/pkg/provider/stt"
)

// Attempt is one scored pronunciation attempt. It is not persisted.
type Attempt struct {
	Transcript string                `json:"transcript"`
	Target     string                `json:"target"`
	Score      int                   `json:"score"`
	IsCorrect  bool                  `json:"isCorrect"`
	Feedback   string                `json:"feedback"`
	Words      []pronounce.WordMatch `json:"words,omitempty"`
}

// EvaluatePronunciation transcribes the recording and scores it against
// target.
func (s *Service) EvaluatePronunciation(ctx context.Context, target string, audio stt.Request) (Attempt, error) {
	switch {
	case len(audio.Audio) == 0:
		return Attempt{}, fmt.Errorf("%w: audio", ErrEmptyInput)
	case blank(target):
		return Attempt{}, fmt.Errorf("%w: target", ErrEmptyInput)
	case s.stt == nil:
		return Attempt{}, fmt.Errorf("%w: pronunciation needs a transcriber", ErrNotConfigured)
	}

	transcript, err := s.stt.Transcribe(ctx, audio)
	switch {
	case errors.Is(err, stt.ErrEmptyAudio):
		return Attempt{}, fmt.Errorf("%w: %w", ErrEmptyInput, err)
	case err != nil:
		observe.Logger(ctx).Warn("transcription failed", "err", err)
		return Attempt{}, fmt.Errorf("%w: transcribe: %w", ErrServiceUnavailable, err)
	}
	return s.ScoreTranscript(ctx, transcript, target)
}

// ScoreTranscript scores an already transcribed attempt and records the
// score. A blank transcript or target is [ErrEmptyInput] rather than a zero
// score.
func (s *Service) ScoreTranscript(ctx context.Context, transcript, target string) (Attempt, error) {
	a, err := Evaluate(transcript, target)
	if err != nil {
		return Attempt{}, err
	}
	s.metrics.RecordPronunciation(ctx, a.Score)
	observe.Logger(ctx).Debug("pronunciation scored",
		"score", a.Score, "correct", a.IsCorrect, "target_words", len(a.Words))
	return a, nil
}

// Evaluate scores transcript against target without a Service. It needs no
// store, model or transcriber.
func Evaluate(transcript, target string) (Attempt, error) {
	switch {
	case blank(transcript):
		return Attempt{}, fmt.Errorf("%w: nothing was heard", ErrEmptyInput)
	case blank(target):
		return Attempt{}, fmt.Errorf("%w: target", ErrEmptyInput)
	}
	r := pronounce.Score(transcript, target)
	return Attempt{
		Transcript: strings.TrimSpace(transcript),
		Target:     strings.TrimSpace(target),
		Score:      r.Score,
		IsCorrect:  r.IsCorrect,
		Feedback:   pronounce.Feedback(r),
		Words:      r.Words,
	}, nil
}
