package config_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/wordwise/internal/config"
)

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "log level",
			yaml: "server:\n  log_level: verbose\n",
			want: "server.log_level",
		},
		{
			name: "unknown backend",
			yaml: "store:\n  backend: mongo\n",
			want: "store.backend",
		},
		{
			name: "firebase needs url",
			yaml: "store:\n  backend: firebase\n",
			want: "store.url",
		},
		{
			name: "postgres needs dsn",
			yaml: "store:\n  backend: postgres\n",
			want: "store.dsn",
		},
		{
			name: "sqlite needs path",
			yaml: "store:\n  backend: sqlite\n",
			want: "store.path",
		},
		{
			name: "negative max failures",
			yaml: "resilience:\n  max_failures: -1\n",
			want: "resilience.max_failures",
		},
		{
			name: "negative reset timeout",
			yaml: "resilience:\n  reset_timeout: -5s\n",
			want: "resilience.reset_timeout",
		},
		{
			name: "temperature range",
			yaml: "tutor:\n  temperature: 3\n",
			want: "tutor.temperature",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error should mention %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
store:
  backend: sqlite
tutor:
  temperature: -1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	for _, want := range []string{"server.log_level", "store.path", "tutor.temperature"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error should mention %q, got: %v", want, err)
		}
	}
}

func TestValidate_BackendsWithSettingsAreValid(t *testing.T) {
	t.Parallel()
	for _, yaml := range []string{
		"store:\n  backend: memory\n",
		"store:\n  backend: sqlite\n  path: /tmp/wordwise.db\n",
		"store:\n  backend: postgres\n  dsn: postgres://localhost/wordwise\n",
		"store:\n  backend: firebase\n  url: https://x.firebaseio.com\n",
	} {
		if _, err := config.LoadFromReader(strings.NewReader(yaml)); err != nil {
			t.Errorf("LoadFromReader(%q): %v", yaml, err)
		}
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	for _, kind := range []string{"llm", "stt"} {
		if len(config.ValidProviderNames[kind]) == 0 {
			t.Errorf("ValidProviderNames[%q] is empty", kind)
		}
	}
}
