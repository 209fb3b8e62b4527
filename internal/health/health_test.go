package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrWong99/wordwise/internal/resilience"
	docmock "github.com/MrWong99/wordwise/pkg/docstore/mock"
)

func ok(context.Context) error { return nil }

func TestHealthz(t *testing.T) {
	h := New(Checker{Name: "store", Check: func(context.Context) error { return errors.New("down") }})
	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 even with failing checks", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		checkers   []Checker
		cancelled  bool
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "no checks",
			wantStatus: http.StatusOK,
		},
		{
			name: "all pass",
			checkers: []Checker{
				{Name: "store", Check: ok},
				{Name: "breaker/llm/gemini", Check: ok},
			},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"store": "ok", "breaker/llm/gemini": "ok"},
		},
		{
			name: "one fails",
			checkers: []Checker{
				{Name: "store", Check: func(context.Context) error { return errors.New("firebase 503") }},
				{Name: "breaker/stt/whisper", Check: ok},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"store": "fail: firebase 503", "breaker/stt/whisper": "ok"},
		},
		{
			name: "request cancelled",
			checkers: []Checker{{Name: "store", Check: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			}}},
			cancelled:  true,
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/readyz", nil)
			if tt.cancelled {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				req = req.WithContext(ctx)
			}
			rec := httptest.NewRecorder()
			New(tt.checkers...).Readyz(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body result
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode JSON: %v", err)
			}
			for name, want := range tt.wantChecks {
				if body.Checks[name] != want {
					t.Errorf("check %q = %q, want %q", name, body.Checks[name], want)
				}
			}
		})
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	New(Checker{Name: "store", Check: ok}).Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestPing_UsesPinger(t *testing.T) {
	store := docmock.New()
	store.PingErr = errors.New("store down")
	h := New(Ping("store", store))

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Checks["store"] != "fail: store down" {
		t.Errorf("store check = %q", body.Checks["store"])
	}
	if store.CallCount("Ping") != 1 {
		t.Errorf("Ping calls = %d, want 1", store.CallCount("Ping"))
	}
}

func TestBreakers_OpenBreakerFailsReadiness(t *testing.T) {
	open := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "llm/gemini", MaxFailures: 1})
	_ = open.Execute(context.Background(), func(context.Context) error { return errors.New("boom") })
	closed := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "stt/whisper"})

	h := New(Breakers(open, closed)...)
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if !strings.HasPrefix(body.Checks["breaker/llm/gemini"], "fail: ") {
		t.Errorf("open breaker check = %q", body.Checks["breaker/llm/gemini"])
	}
	if body.Checks["breaker/stt/whisper"] != "ok" {
		t.Errorf("closed breaker check = %q", body.Checks["breaker/stt/whisper"])
	}
}
