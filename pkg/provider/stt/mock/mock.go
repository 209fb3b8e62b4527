// Package mock provides a test double for the stt.Transcriber interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/wordwise/pkg/provider/stt"
)

var _ stt.Transcriber = (*Transcriber)(nil)

// Call records a single invocation of Transcribe.
type Call struct {
	Ctx context.Context
	Req stt.Request
}

// Transcriber is a mock implementation of stt.Transcriber. Like the real
// backends it rejects empty audio with stt.ErrEmptyAudio.
type Transcriber struct {
	mu sync.Mutex

	// Text is returned by Transcribe.
	Text string

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// Calls records every invocation of Transcribe in order.
	Calls []Call
}

// Transcribe implements stt.Transcriber.
func (m *Transcriber) Transcribe(ctx context.Context, req stt.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, Call{Ctx: ctx, Req: req})
	if len(req.Audio) == 0 {
		return "", stt.ErrEmptyAudio
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}

// CallCount returns the number of Transcribe calls.
func (m *Transcriber) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Reset clears all recorded calls.
func (m *Transcriber) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}
