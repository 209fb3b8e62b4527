// Package config provides the configuration schema, loader, and provider registry
// for wordwise.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// StoreBackend selects the document store implementation.
type StoreBackend string

const (
	// StoreFirebase talks to a Firebase Realtime Database over REST.
	StoreFirebase StoreBackend = "firebase"

	// StorePostgres keeps documents in a PostgreSQL table.
	StorePostgres StoreBackend = "postgres"

	// StoreSQLite keeps documents in a local SQLite file.
	StoreSQLite StoreBackend = "sqlite"

	// StoreMemory keeps documents in process memory. Nothing survives a
	// restart.
	StoreMemory StoreBackend = "memory"
)

// IsValid reports whether b is a recognised backend.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreFirebase, StorePostgres, StoreSQLite, StoreMemory:
		return true
	}
	return false
}

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Store      StoreConfig      `yaml:"store"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Tutor      TutorConfig      `yaml:"tutor"`
}

// ServerConfig holds logging and operations listener settings.
type ServerConfig struct {
	// LogLevel controls verbosity. Defaults to info.
	LogLevel LogLevel `yaml:"log_level"`

	// OpsAddr is the TCP address of the health and metrics listener
	// (e.g., ":9090"). Empty disables the listener.
	OpsAddr string `yaml:"ops_addr"`
}

// ProvidersConfig declares which provider implementation to use for each
// external service. Each field selects a named provider registered in the [Registry].
type ProvidersConfig struct {
	LLM ProviderEntry `yaml:"llm"`
	STT ProviderEntry `yaml:"stt"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "gemini", "whisper").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gemini-2.0-flash", "whisper-1").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	// Backend defaults to memory.
	Backend StoreBackend `yaml:"backend"`

	// URL is the Firebase database URL.
	URL string `yaml:"url"`

	// Auth is the Firebase auth token appended to every request.
	Auth string `yaml:"auth"`

	// DSN is the PostgreSQL connection string.
	DSN string `yaml:"dsn"`

	// Path is the SQLite database file.
	Path string `yaml:"path"`

	// Timeout bounds each store request. Zero keeps the backend default.
	Timeout time.Duration `yaml:"timeout"`

	// Optimistic makes every write conditional on the revision that was
	// read, so a concurrent overwrite fails instead of being lost.
	Optimistic bool `yaml:"optimistic"`
}

// ResilienceConfig tunes the circuit breakers around every external service.
type ResilienceConfig struct {
	// MaxFailures is the number of consecutive failures that open a
	// breaker. Defaults to 5.
	MaxFailures int `yaml:"max_failures"`

	// ResetTimeout is how long an open breaker waits before letting a probe
	// through. Defaults to 30s.
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// TutorConfig holds defaults for the learning services.
type TutorConfig struct {
	// DefaultUser owns documents when a command names no user. Defaults to
	// "anonymous".
	DefaultUser string `yaml:"default_user"`

	// Temperature is passed to every completion request. Zero keeps the
	// provider default.
	Temperature float64 `yaml:"temperature"`
}
