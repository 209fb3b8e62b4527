package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/wordwise/internal/config"
	"github.com/MrWong99/wordwise/pkg/docstore"
	"github.com/MrWong99/wordwise/pkg/provider/llm"
	llmmock "github.com/MrWong99/wordwise/pkg/provider/llm/mock"
	"github.com/MrWong99/wordwise/pkg/provider/stt"
	sttmock "github.com/MrWong99/wordwise/pkg/provider/stt/mock"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleYAML = `
server:
  log_level: debug
  ops_addr: ":9090"

providers:
  llm:
    name: gemini
    api_key: gm-test
    model: gemini-2.0-flash
  stt:
    name: whisper
    base_url: http://localhost:8081
    options:
      language: de

store:
  backend: firebase
  url: https://wordwise-test.firebaseio.com
  auth: secret
  timeout: 10s
  optimistic: true

resilience:
  max_failures: 3
  reset_timeout: 1m

tutor:
  default_user: demo
  temperature: 0.4
`

// ── YAML loading ──────────────────────────────────────────────────────────────

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("log_level: got %q", cfg.Server.LogLevel)
	}
	if cfg.Server.OpsAddr != ":9090" {
		t.Errorf("ops_addr: got %q", cfg.Server.OpsAddr)
	}
	if cfg.Providers.LLM.Name != "gemini" || cfg.Providers.LLM.Model != "gemini-2.0-flash" {
		t.Errorf("providers.llm: got %+v", cfg.Providers.LLM)
	}
	if got := cfg.Providers.STT.Option("language"); got != "de" {
		t.Errorf("providers.stt.options.language: got %q", got)
	}
	if cfg.Store.Backend != config.StoreFirebase || !cfg.Store.Optimistic {
		t.Errorf("store: got %+v", cfg.Store)
	}
	if cfg.Store.Timeout != 10*time.Second {
		t.Errorf("store.timeout: got %s", cfg.Store.Timeout)
	}
	if cfg.Resilience.MaxFailures != 3 || cfg.Resilience.ResetTimeout != time.Minute {
		t.Errorf("resilience: got %+v", cfg.Resilience)
	}
	if cfg.Tutor.DefaultUser != "demo" || cfg.Tutor.Temperature != 0.4 {
		t.Errorf("tutor: got %+v", cfg.Tutor)
	}
}

func TestLoadFromReader_EmptyAppliesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error for empty config: %v", err)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level default: got %q", cfg.Server.LogLevel)
	}
	if cfg.Store.Backend != config.StoreMemory {
		t.Errorf("store.backend default: got %q", cfg.Store.Backend)
	}
	if cfg.Resilience.MaxFailures != 5 || cfg.Resilience.ResetTimeout != 30*time.Second {
		t.Errorf("resilience defaults: got %+v", cfg.Resilience)
	}
	if cfg.Tutor.DefaultUser != "anonymous" {
		t.Errorf("tutor.default_user default: got %q", cfg.Tutor.DefaultUser)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("store:\n  backnd: sqlite\n"))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
	if !strings.Contains(err.Error(), "backnd") {
		t.Errorf("error should name the field, got: %v", err)
	}
}

func TestLoadFromReader_ExpandsEnv(t *testing.T) {
	t.Setenv("WORDWISE_TEST_KEY", "sk-from-env")
	cfg, err := config.LoadFromReader(strings.NewReader(`
providers:
  llm:
    name: openai
    api_key: ${WORDWISE_TEST_KEY}
store:
  backend: memory
  auth: pa$$word
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Providers.LLM.APIKey != "sk-from-env" {
		t.Errorf("api_key: got %q, want %q", cfg.Providers.LLM.APIKey, "sk-from-env")
	}
	if cfg.Store.Auth != "pa$$word" {
		t.Errorf("bare dollar signs must survive, got %q", cfg.Store.Auth)
	}
}

func TestExpandEnv_UnsetIsEmpty(t *testing.T) {
	t.Parallel()
	got := string(config.ExpandEnv([]byte("key: ${WORDWISE_SURELY_UNSET_VAR}")))
	if got != "key: " {
		t.Errorf("ExpandEnv = %q", got)
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "wordwise.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.URL != "https://wordwise-test.firebaseio.com" {
		t.Errorf("store.url: got %q", cfg.Store.URL)
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("WORDWISE_DOTENV_A=from-file\nWORDWISE_DOTENV_B=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WORDWISE_DOTENV_B", "from-env")
	t.Cleanup(func() { os.Unsetenv("WORDWISE_DOTENV_A") })

	if err := config.LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("WORDWISE_DOTENV_A"); got != "from-file" {
		t.Errorf("A = %q, want from-file", got)
	}
	if got := os.Getenv("WORDWISE_DOTENV_B"); got != "from-env" {
		t.Errorf("B = %q, existing variables must win", got)
	}
}

// ── Registry ──────────────────────────────────────────────────────────────────

func TestRegistry_Unknown(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()

	if _, err := reg.CreateLLM(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateLLM: expected ErrProviderNotRegistered, got %v", err)
	}
	if _, err := reg.CreateSTT(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateSTT: expected ErrProviderNotRegistered, got %v", err)
	}
	if _, err := reg.CreateStore(config.StoreConfig{Backend: config.StoreSQLite}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateStore: expected ErrProviderNotRegistered, got %v", err)
	}
}

func TestRegistry_Registered(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()

	wantLLM := &llmmock.Provider{}
	reg.RegisterLLM("stub", func(config.ProviderEntry) (llm.Provider, error) { return wantLLM, nil })
	wantSTT := &sttmock.Transcriber{}
	reg.RegisterSTT("stub", func(config.ProviderEntry) (stt.Transcriber, error) { return wantSTT, nil })
	wantStore := docstore.NewMemory()
	var gotCfg config.StoreConfig
	reg.RegisterStore(config.StoreMemory, func(c config.StoreConfig) (docstore.Store, error) {
		gotCfg = c
		return wantStore, nil
	})

	if got, err := reg.CreateLLM(config.ProviderEntry{Name: "stub"}); err != nil || got != wantLLM {
		t.Errorf("CreateLLM = %v, %v", got, err)
	}
	if got, err := reg.CreateSTT(config.ProviderEntry{Name: "stub"}); err != nil || got != wantSTT {
		t.Errorf("CreateSTT = %v, %v", got, err)
	}
	got, err := reg.CreateStore(config.StoreConfig{Backend: config.StoreMemory, Optimistic: true})
	if err != nil || got != wantStore {
		t.Errorf("CreateStore = %v, %v", got, err)
	}
	if !gotCfg.Optimistic {
		t.Error("store factory did not receive the config")
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	wantErr := errors.New("factory boom")
	reg.RegisterLLM("broken", func(e config.ProviderEntry) (llm.Provider, error) {
		return nil, wantErr
	})
	_, err := reg.CreateLLM(config.ProviderEntry{Name: "broken"})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected factory error %v, got %v", wantErr, err)
	}
}

func TestProviderEntry_Option(t *testing.T) {
	t.Parallel()
	e := config.ProviderEntry{Options: map[string]any{"language": "fr", "beam": 5}}
	if got := e.Option("language"); got != "fr" {
		t.Errorf("Option(language) = %q", got)
	}
	if got := e.Option("beam"); got != "" {
		t.Errorf("Option(beam) = %q, want empty for non-string", got)
	}
	if got := e.Option("missing"); got != "" {
		t.Errorf("Option(missing) = %q", got)
	}
}
