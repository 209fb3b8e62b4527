// Package openai provides an STT transcriber backed by the hosted Whisper
// API, using github.com/sashabaranov/go-openai. Any server that implements
// the /audio/transcriptions endpoint works via [WithBaseURL].
package openai

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/MrWong99/wordwise/pkg/provider/stt"
)

var _ stt.Transcriber = (*Provider)(nil)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithModel sets the transcription model. Defaults to whisper-1.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the default language hint.
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithBaseURL overrides the API base URL, e.g. "http://localhost:8000/v1".
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = url
	}
}

// Provider implements stt.Transcriber using the OpenAI transcription API.
type Provider struct {
	client   *goopenai.Client
	model    string
	language string
	baseURL  string
}

// New creates a Provider authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai stt: apiKey must not be empty")
	}
	p := &Provider{model: goopenai.Whisper1}
	for _, o := range opts {
		o(p)
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if p.baseURL != "" {
		cfg.BaseURL = strings.TrimRight(p.baseURL, "/")
	}
	p.client = goopenai.NewClientWithConfig(cfg)
	return p, nil
}

// Transcribe implements stt.Transcriber.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (string, error) {
	if len(req.Audio) == 0 {
		return "", stt.ErrEmptyAudio
	}
	lang := req.Language
	if lang == "" {
		lang = p.language
	}

	resp, err := p.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    p.model,
		FilePath: stt.Filename(req),
		Reader:   bytes.NewReader(req.Audio),
		Language: lang,
		Format:   goopenai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("openai stt: transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
