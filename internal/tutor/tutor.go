// Package tutor implements the learner-facing operations: explanations,
// grammar checks, practice phrases, pronunciation evaluation and the
// vocabulary, category and topic collections.
//
// A [Service] holds explicit handles to its collaborators. Any of them may be
// absent, in which case the operations that need it fail with
// [ErrNotConfigured] and the rest keep working. Failed model and
// transcription calls are reported as [ErrServiceUnavailable] and are never
// retried.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/wordwise/internal/extract"
	"github.com/MrWong99/wordwise/internal/observe"
	"github.com/MrWong99/wordwise/internal/resolve"
	"github.com/MrWong99/wordwise/pkg/docstore"
	"github.com/MrWong99/wordwise/pkg/provider/llm"
	"github.com/MrWong99/wordwise/pkg/provider/stt"
)

var (
	// ErrEmptyInput is returned when a required argument is blank or the
	// recording is empty.
	ErrEmptyInput = errors.New("tutor: empty input")

	// ErrInvalidInput is returned for arguments outside their allowed
	// values.
	ErrInvalidInput = errors.New("tutor: invalid input")

	// ErrServiceUnavailable wraps failures of the language model or the
	// transcription backend.
	ErrServiceUnavailable = errors.New("tutor: service unavailable")

	// ErrNotConfigured is returned by operations whose collaborator was not
	// supplied.
	ErrNotConfigured = errors.New("tutor: not configured")

	// ErrNoWordsGenerated is returned by [Service.CreateTopicWords] when the
	// model produced no usable word list.
	ErrNoWordsGenerated = errors.New("tutor: no words generated")
)

// DefaultUser owns the collections when no user id is given.
const DefaultUser = docstore.DefaultUser

// Service runs tutor operations for any number of users. It is safe for
// concurrent use; concurrent writes to the same user's collection race as
// described in package resolve.
type Service struct {
	llm         llm.Provider
	stt         stt.Transcriber
	metrics     *observe.Metrics
	temperature float64
	defaultUser string

	words      *resolve.Repo[resolve.VocabularyEntry]
	categories *resolve.Repo[resolve.Category]
	topics     *resolve.Repo[resolve.Topic]
}

// Option configures a [Service].
type Option func(*Service)

// WithLLM sets the language model used for explanations, grammar checks,
// practice phrases and topic word lists.
func WithLLM(p llm.Provider) Option {
	return func(s *Service) { s.llm = p }
}

// WithTranscriber sets the speech-to-text backend used by
// [Service.EvaluatePronunciation].
func WithTranscriber(t stt.Transcriber) Option {
	return func(s *Service) { s.stt = t }
}

// WithMetrics overrides [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTemperature sets the sampling temperature of every completion. Zero
// keeps the provider default.
func WithTemperature(t float64) Option {
	return func(s *Service) { s.temperature = t }
}

// WithDefaultUser replaces [DefaultUser].
func WithDefaultUser(id string) Option {
	return func(s *Service) {
		if id = strings.TrimSpace(id); id != "" {
			s.defaultUser = id
		}
	}
}

// New returns a Service storing collections through res.
func New(res *resolve.Resolver, opts ...Option) (*Service, error) {
	if res == nil {
		return nil, errors.New("tutor: resolver is required")
	}
	s := &Service{
		defaultUser: DefaultUser,
		words:       resolve.For(res, resolve.Vocabulary()),
		categories:  resolve.For(res, resolve.Categories()),
		topics:      resolve.For(res, resolve.Topics()),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s, nil
}

// user maps a blank user id to the default user.
func (s *Service) user(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return s.defaultUser
}

// complete sends prompt to the model and returns its trimmed reply.
func (s *Service) complete(ctx context.Context, op, prompt string) (string, error) {
	if s.llm == nil {
		return "", fmt.Errorf("%w: %s needs a language model", ErrNotConfigured, op)
	}
	req := llm.Prompt(prompt)
	req.Temperature = s.temperature
	text, err := llm.Text(ctx, s.llm, req)
	if err != nil {
		observe.Logger(ctx).Warn("completion failed", "op", op, "err", err)
		return "", fmt.Errorf("%w: %s: %w", ErrServiceUnavailable, op, err)
	}
	return text, nil
}

// decode extracts a value of the given shape from raw and records the
// outcome.
func decode[T any](ctx context.Context, m *observe.Metrics, raw string, schema extract.Schema[T]) extract.Result[T] {
	r := extract.Extract(raw, schema)
	m.RecordExtraction(ctx, schema.Name, string(r.Kind))
	if !r.OK() {
		observe.Logger(ctx).Warn("model output did not match the expected shape",
			"shape", schema.Name, "reason", r.Err, "raw_len", len(raw))
	}
	return r
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
