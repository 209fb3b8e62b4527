package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Collaborator kinds used as the "kind" attribute on provider metrics.
const (
	KindLLM   = "llm"
	KindSTT   = "stt"
	KindStore = "store"
)

// Call describes one round trip to an external collaborator.
type Call struct {
	// Kind is one of KindLLM, KindSTT or KindStore.
	Kind string

	// Provider names the backend, e.g. "gemini" or "firebase".
	Provider string

	// Op names the operation, e.g. "complete" or "read".
	Op string

	// IsFailure decides whether an error counts against the provider. Nil
	// treats every non-nil error as a failure.
	IsFailure func(error) bool
}

// Track runs fn inside a client span named "<kind>.<op>", records its
// latency on the histogram for c.Kind and counts the request outcome.
// The error from fn is returned unchanged.
func (m *Metrics) Track(ctx context.Context, c Call, fn func(context.Context) error) error {
	ctx, span := StartSpan(ctx, c.Kind+"."+c.Op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("wordwise.provider", c.Provider),
			attribute.String("wordwise.op", c.Op),
		),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	if h := m.durationFor(c.Kind); h != nil {
		h.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
			attribute.String("provider", c.Provider),
			attribute.String("op", c.Op),
		))
	}

	status := "ok"
	failed := err != nil && (c.IsFailure == nil || c.IsFailure(err))
	switch {
	case failed:
		status = "error"
		m.RecordProviderError(ctx, c.Provider, c.Kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		Logger(ctx).Warn("collaborator call failed",
			"kind", c.Kind,
			"provider", c.Provider,
			"op", c.Op,
			"duration", elapsed,
			"err", err,
		)
	case err != nil:
		status = "rejected"
	}
	m.RecordProviderRequest(ctx, c.Provider, c.Kind, status)
	return err
}

func (m *Metrics) durationFor(kind string) metric.Float64Histogram {
	switch kind {
	case KindLLM:
		return m.LLMDuration
	case KindSTT:
		return m.STTDuration
	case KindStore:
		return m.StoreDuration
	default:
		return nil
	}
}
