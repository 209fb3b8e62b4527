// Package llm defines the Provider interface for Large Language Model backends.
//
// An LLM provider wraps a remote or local model API (Gemini, OpenAI, Mistral,
// a local Ollama instance, ...) and exposes a single completion call. Callers
// treat the returned text as untrusted: it may contain prose around the JSON
// they asked for, or no JSON at all. Reducing it to typed data is the job of
// package extract, not of the provider.
//
// Implementors must be safe for concurrent use and must not retry failed
// requests on their own; a failed call is reported once to the caller.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyCompletion is returned by [Text] when the model answered with no
// text at all.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// Message is a single turn in a conversation.
type Message struct {
	// Role is one of RoleSystem, RoleUser or RoleAssistant.
	Role string

	// Content is the text of the message.
	Content string
}

// CompletionRequest carries everything the LLM needs to produce a response.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// SystemPrompt is an optional instruction sent before Messages.
	SystemPrompt string

	// Messages is the ordered conversation. The last message is usually the
	// user's prompt.
	Messages []Message

	// Temperature controls output randomness in the range [0.0, 2.0]. Zero
	// means the provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero means the provider default.
	MaxTokens int
}

// Usage holds token accounting information returned by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionResponse is the full reply of a completion.
type CompletionResponse struct {
	// Content is the text of the assistant's reply.
	Content string

	// Usage contains token accounting for this request.
	Usage Usage
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// It returns an error if the request fails or ctx is cancelled first.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// Prompt builds a single-turn request from a user prompt.
func Prompt(prompt string) CompletionRequest {
	return CompletionRequest{Messages: []Message{{Role: RoleUser, Content: prompt}}}
}

// Text runs req through p and returns the trimmed reply. A reply that is
// empty after trimming is reported as [ErrEmptyCompletion].
func Text(ctx context.Context, p Provider, req CompletionRequest) (string, error) {
	resp, err := p.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// ValidateRequest reports whether req can be sent to a backend.
func ValidateRequest(req CompletionRequest) error {
	if len(req.Messages) == 0 {
		return fmt.Errorf("llm: request has no messages")
	}
	for i, m := range req.Messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("llm: message %d: unknown role %q", i, m.Role)
		}
	}
	return nil
}
