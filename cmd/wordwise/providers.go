package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/wordwise/internal/app"
	"github.com/MrWong99/wordwise/internal/config"
	"github.com/MrWong99/wordwise/pkg/docstore"
	"github.com/MrWong99/wordwise/pkg/docstore/firebase"
	"github.com/MrWong99/wordwise/pkg/docstore/postgres"
	"github.com/MrWong99/wordwise/pkg/docstore/sqlite"
	"github.com/MrWong99/wordwise/pkg/provider/llm"
	"github.com/MrWong99/wordwise/pkg/provider/llm/anyllm"
	oaillm "github.com/MrWong99/wordwise/pkg/provider/llm/openai"
	"github.com/MrWong99/wordwise/pkg/provider/stt"
	oaistt "github.com/MrWong99/wordwise/pkg/provider/stt/openai"
	"github.com/MrWong99/wordwise/pkg/provider/stt/whisper"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"

	// connectTimeout bounds opening a database connection pool.
	connectTimeout = 10 * time.Second
)

// registerBuiltinProviders wires every built-in factory into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	// anthropic, gemini, deepseek, mistral, groq, llamacpp and llamafile go
	// through any-llm with an optional API key and base URL.
	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// openai and openrouter speak the same chat-completions API.
	for _, providerName := range []string{"openai", "openrouter"} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			base := entry.BaseURL
			if base == "" && providerName == "openrouter" {
				base = openRouterBaseURL
			}
			var opts []oaillm.Option
			if base != "" {
				opts = append(opts, oaillm.WithBaseURL(base))
			}
			if org := entry.Option("organization"); org != "" {
				opts = append(opts, oaillm.WithOrganization(org))
			}
			if d, err := time.ParseDuration(entry.Option("timeout")); err == nil {
				opts = append(opts, oaillm.WithTimeout(d))
			}
			return oaillm.New(entry.APIKey, entry.Model, opts...)
		})
	}

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := entry.Option("language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []oaistt.Option
		if entry.Model != "" {
			opts = append(opts, oaistt.WithModel(entry.Model))
		}
		if lang := entry.Option("language"); lang != "" {
			opts = append(opts, oaistt.WithLanguage(lang))
		}
		if entry.BaseURL != "" {
			opts = append(opts, oaistt.WithBaseURL(entry.BaseURL))
		}
		return oaistt.New(entry.APIKey, opts...)
	})

	// ── Stores ────────────────────────────────────────────────────────────────

	reg.RegisterStore(config.StoreFirebase, func(sc config.StoreConfig) (docstore.Store, error) {
		opts := []firebase.Option{firebase.WithAuth(sc.Auth)}
		if sc.Timeout > 0 {
			opts = append(opts, firebase.WithHTTPClient(&http.Client{Timeout: sc.Timeout}))
		}
		return firebase.New(sc.URL, opts...)
	})

	reg.RegisterStore(config.StorePostgres, func(sc config.StoreConfig) (docstore.Store, error) {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return postgres.New(ctx, sc.DSN)
	})

	reg.RegisterStore(config.StoreSQLite, func(sc config.StoreConfig) (docstore.Store, error) {
		return sqlite.Open(sc.Path)
	})

	reg.RegisterStore(config.StoreMemory, func(config.StoreConfig) (docstore.Store, error) {
		return docstore.NewMemory(), nil
	})
}

// buildProviders instantiates the providers and the store named in cfg. The
// returned closers release the store's connections.
func buildProviders(_ context.Context, cfg *config.Config) (*app.Providers, []func() error, error) {
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)
	return createProviders(cfg, reg)
}

// createProviders is buildProviders over an explicit registry.
func createProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, []func() error, error) {
	ps := &app.Providers{}

	if name := cfg.Providers.LLM.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.LLM)
		switch {
		case errors.Is(err, config.ErrProviderNotRegistered):
			slog.Warn("unknown provider; skipping", "kind", "llm", "name", name)
		case err != nil:
			return nil, nil, fmt.Errorf("create llm provider %q: %w", name, err)
		default:
			ps.LLM = p
			slog.Debug("provider created", "kind", "llm", "name", name)
		}
	}

	if name := cfg.Providers.STT.Name; name != "" {
		t, err := reg.CreateSTT(cfg.Providers.STT)
		switch {
		case errors.Is(err, config.ErrProviderNotRegistered):
			slog.Warn("unknown provider; skipping", "kind", "stt", "name", name)
		case err != nil:
			return nil, nil, fmt.Errorf("create stt provider %q: %w", name, err)
		default:
			ps.STT = t
			slog.Debug("provider created", "kind", "stt", "name", name)
		}
	}

	store, err := reg.CreateStore(cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s store: %w", cfg.Store.Backend, err)
	}
	ps.Store = store
	slog.Debug("store opened", "backend", cfg.Store.Backend)

	var closers []func() error
	switch s := store.(type) {
	case interface{ Close() error }:
		closers = append(closers, s.Close)
	case interface{ Close() }:
		closers = append(closers, func() error { s.Close(); return nil })
	}
	return ps, closers, nil
}
