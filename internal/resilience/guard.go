package resilience

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/MrWong99/wordwise/internal/observe"
	"github.com/MrWong99/wordwise/pkg/docstore"
	"github.com/MrWong99/wordwise/pkg/provider/llm"
	"github.com/MrWong99/wordwise/pkg/provider/stt"
)

// Guard pairs a breaker with the metrics and name of the backend it
// protects. Every guarded call is traced, timed and counted.
type Guard struct {
	Breaker  *CircuitBreaker
	Metrics  *observe.Metrics
	Provider string
}

// NewGuard creates a guard for the named backend. cfg.Name defaults to
// kind/provider and cfg.IsFailure to the classifier for kind.
func NewGuard(kind, provider string, cfg CircuitBreakerConfig, m *observe.Metrics) *Guard {
	if cfg.Name == "" {
		cfg.Name = kind + "/" + provider
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = failureClassifier(kind)
	}
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &Guard{Breaker: NewCircuitBreaker(cfg), Metrics: m, Provider: provider}
}

func (g *Guard) run(ctx context.Context, kind, op string, fn func(context.Context) error) error {
	call := observe.Call{Kind: kind, Provider: g.Provider, Op: op, IsFailure: g.Breaker.isFailure}
	return g.Breaker.Execute(ctx, func(ctx context.Context) error {
		return g.Metrics.Track(ctx, call, fn)
	})
}

// failureClassifier returns which errors from kind count as backend
// failures. Errors caused by the request itself never open the breaker.
func failureClassifier(kind string) func(error) bool {
	var callerErrs []error
	switch kind {
	case observe.KindStore:
		callerErrs = []error{docstore.ErrNotFound, docstore.ErrConflict, docstore.ErrInvalidPath}
	case observe.KindSTT:
		callerErrs = []error{stt.ErrEmptyAudio}
	case observe.KindLLM:
		callerErrs = []error{llm.ErrEmptyCompletion}
	}
	return func(err error) bool {
		if !defaultIsFailure(err) {
			return false
		}
		for _, ce := range callerErrs {
			if errors.Is(err, ce) {
				return false
			}
		}
		return true
	}
}

// LLM guards an llm.Provider.
type LLM struct {
	inner llm.Provider
	guard *Guard
}

var _ llm.Provider = (*LLM)(nil)

// GuardLLM wraps p with g.
func GuardLLM(p llm.Provider, g *Guard) *LLM {
	return &LLM{inner: p, guard: g}
}

// Complete implements llm.Provider.
func (l *LLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	var resp *llm.CompletionResponse
	err := l.guard.run(ctx, observe.KindLLM, "complete", func(ctx context.Context) error {
		var err error
		resp, err = l.inner.Complete(ctx, req)
		return err
	})
	return resp, err
}

// Transcriber guards an stt.Transcriber.
type Transcriber struct {
	inner stt.Transcriber
	guard *Guard
}

var _ stt.Transcriber = (*Transcriber)(nil)

// GuardTranscriber wraps t with g.
func GuardTranscriber(t stt.Transcriber, g *Guard) *Transcriber {
	return &Transcriber{inner: t, guard: g}
}

// Transcribe implements stt.Transcriber.
func (t *Transcriber) Transcribe(ctx context.Context, req stt.Request) (string, error) {
	var text string
	err := t.guard.run(ctx, observe.KindSTT, "transcribe", func(ctx context.Context) error {
		var err error
		text, err = t.inner.Transcribe(ctx, req)
		return err
	})
	return text, err
}

// Store guards a docstore.Store. When the wrapped store implements
// docstore.Versioned so does the guard; calling the versioned methods on a
// plain store returns an error.
type Store struct {
	inner docstore.Store
	guard *Guard
}

var (
	_ docstore.Versioned = (*Store)(nil)
	_ docstore.Pinger    = (*Store)(nil)
)

// errNotVersioned is returned by the versioned methods of a guard around a
// store without conditional writes.
var errNotVersioned = errors.New("resilience: store does not support versioned writes")

// GuardStore wraps s with g.
func GuardStore(s docstore.Store, g *Guard) *Store {
	return &Store{inner: s, guard: g}
}

// Versioned reports whether the wrapped store supports conditional writes.
func (s *Store) Versioned() bool {
	_, ok := s.inner.(docstore.Versioned)
	return ok
}

// ReadCollection implements docstore.Store.
func (s *Store) ReadCollection(ctx context.Context, path string) (json.RawMessage, error) {
	var doc json.RawMessage
	err := s.guard.run(ctx, observe.KindStore, "read", func(ctx context.Context) error {
		var err error
		doc, err = s.inner.ReadCollection(ctx, path)
		return err
	})
	return doc, err
}

// WriteCollection implements docstore.Store.
func (s *Store) WriteCollection(ctx context.Context, path string, doc json.RawMessage) error {
	return s.guard.run(ctx, observe.KindStore, "write", func(ctx context.Context) error {
		return s.inner.WriteCollection(ctx, path, doc)
	})
}

// ReadVersioned implements docstore.Versioned.
func (s *Store) ReadVersioned(ctx context.Context, path string) (json.RawMessage, docstore.Version, error) {
	vs, ok := s.inner.(docstore.Versioned)
	if !ok {
		return nil, "", errNotVersioned
	}
	var (
		doc json.RawMessage
		ver docstore.Version
	)
	err := s.guard.run(ctx, observe.KindStore, "read", func(ctx context.Context) error {
		var err error
		doc, ver, err = vs.ReadVersioned(ctx, path)
		return err
	})
	return doc, ver, err
}

// WriteIfVersion implements docstore.Versioned.
func (s *Store) WriteIfVersion(ctx context.Context, path string, doc json.RawMessage, expected docstore.Version) error {
	vs, ok := s.inner.(docstore.Versioned)
	if !ok {
		return errNotVersioned
	}
	return s.guard.run(ctx, observe.KindStore, "write", func(ctx context.Context) error {
		return vs.WriteIfVersion(ctx, path, doc, expected)
	})
}

// Ping implements docstore.Pinger. It bypasses the breaker so that
// readiness reflects the backend itself; stores without a Ping are assumed
// reachable.
func (s *Store) Ping(ctx context.Context) error {
	p, ok := s.inner.(docstore.Pinger)
	if !ok {
		return nil
	}
	return p.Ping(ctx)
}
