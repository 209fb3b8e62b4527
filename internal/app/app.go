// Package app wires the wordwise subsystems into a running application.
//
// New wraps every external collaborator in a circuit breaker, builds the
// resolver and the tutor service on top of them and collects the readiness
// checks. Run serves the operations endpoints until its context ends, and
// Shutdown releases everything in order.
//
// Collaborators are passed in through [Providers]; main.go builds them from
// the config registry and tests inject mocks.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/MrWong99/wordwise/internal/config"
	"github.com/MrWong99/wordwise/internal/health"
	"github.com/MrWong99/wordwise/internal/observe"
	"github.com/MrWong99/wordwise/internal/resilience"
	"github.com/MrWong99/wordwise/internal/resolve"
	"github.com/MrWong99/wordwise/internal/tutor"
	"github.com/MrWong99/wordwise/pkg/docstore"
	"github.com/MrWong99/wordwise/pkg/provider/llm"
	"github.com/MrWong99/wordwise/pkg/provider/stt"
)

// shutdownTimeout bounds the graceful stop of the ops listener.
const shutdownTimeout = 5 * time.Second

// Providers holds one value per collaborator. A nil LLM or STT leaves the
// operations that need it unavailable; a nil Store falls back to an
// in-memory store.
type Providers struct {
	LLM   llm.Provider
	STT   stt.Transcriber
	Store docstore.Store
}

// App owns the subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers

	metrics   *observe.Metrics
	telemetry *observe.Telemetry

	breakers []*resilience.CircuitBreaker
	store    *resilience.Store
	resolver *resolve.Resolver
	tutor    *tutor.Service
	health   *health.Handler

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithTelemetry serves t's metrics on /metrics and records every instrument
// through it. Shutdown flushes t.
func WithTelemetry(t *observe.Telemetry) Option {
	return func(a *App) { a.telemetry = t }
}

// WithMetrics records instruments through m instead of
// [observe.DefaultMetrics]. Ignored when [WithTelemetry] is given.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithCloser registers fn to run during Shutdown, after the closers
// registered before it.
func WithCloser(fn func() error) Option {
	return func(a *App) { a.closers = append(a.closers, fn) }
}

// New creates an App from cfg and providers.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{cfg: cfg, providers: providers}
	for _, o := range opts {
		o(a)
	}
	switch {
	case a.telemetry != nil:
		a.metrics = a.telemetry.Metrics
		a.closers = append(a.closers, func() error {
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return a.telemetry.Shutdown(sctx)
		})
	case a.metrics == nil:
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initStore(); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}
	if err := a.initTutor(); err != nil {
		return nil, fmt.Errorf("app: init tutor: %w", err)
	}

	checkers := []health.Checker{health.Ping("store", a.store)}
	bs := make([]health.Breaker, 0, len(a.breakers))
	for _, b := range a.breakers {
		bs = append(bs, b)
	}
	a.health = health.New(append(checkers, health.Breakers(bs...)...)...)

	slog.Info("application initialised",
		"store", a.cfg.Store.Backend,
		"optimistic", a.resolver.Optimistic(),
		"llm", providerName(cfg.Providers.LLM, providers.LLM != nil),
		"stt", providerName(cfg.Providers.STT, providers.STT != nil),
	)
	return a, nil
}

// guard creates a circuit breaker for one backend.
func (a *App) guard(kind, name string) *resilience.Guard {
	g := resilience.NewGuard(kind, name, resilience.CircuitBreakerConfig{
		MaxFailures:  a.cfg.Resilience.MaxFailures,
		ResetTimeout: a.cfg.Resilience.ResetTimeout,
	}, a.metrics)
	a.breakers = append(a.breakers, g.Breaker)
	return g
}

// initStore guards the document store and builds the resolver over it.
func (a *App) initStore() error {
	store := a.providers.Store
	backend := string(a.cfg.Store.Backend)
	if store == nil {
		store = docstore.NewMemory()
		backend = string(config.StoreMemory)
		slog.Warn("no document store configured; using process memory")
	}
	a.store = resilience.GuardStore(store, a.guard(observe.KindStore, backend))

	opts := []resolve.Option{resolve.WithMetrics(a.metrics)}
	if a.cfg.Store.Optimistic {
		opts = append(opts, resolve.WithOptimistic())
	}
	res, err := resolve.New(a.store, opts...)
	if err != nil {
		return err
	}
	a.resolver = res
	return nil
}

// initTutor guards the model and the transcriber and builds the service.
func (a *App) initTutor() error {
	opts := []tutor.Option{
		tutor.WithMetrics(a.metrics),
		tutor.WithTemperature(a.cfg.Tutor.Temperature),
		tutor.WithDefaultUser(a.cfg.Tutor.DefaultUser),
	}
	if p := a.providers.LLM; p != nil {
		g := a.guard(observe.KindLLM, a.cfg.Providers.LLM.Name)
		opts = append(opts, tutor.WithLLM(resilience.GuardLLM(p, g)))
	}
	if t := a.providers.STT; t != nil {
		g := a.guard(observe.KindSTT, a.cfg.Providers.STT.Name)
		opts = append(opts, tutor.WithTranscriber(resilience.GuardTranscriber(t, g)))
	}
	svc, err := tutor.New(a.resolver, opts...)
	if err != nil {
		return err
	}
	a.tutor = svc
	return nil
}

// Tutor returns the learning service.
func (a *App) Tutor() *tutor.Service { return a.tutor }

// Resolver returns the resolver over the guarded store.
func (a *App) Resolver() *resolve.Resolver { return a.resolver }

// Breakers returns the circuit breakers in creation order: store, then LLM
// and STT when configured.
func (a *App) Breakers() []*resilience.CircuitBreaker { return a.breakers }

// Handler returns the operations mux: /healthz, /readyz and, with telemetry,
// /metrics.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	a.health.Register(mux)
	if a.telemetry != nil {
		mux.Handle("GET /metrics", a.telemetry.MetricsHandler())
	}
	return observe.Middleware(a.metrics,
		observe.WithQuietPaths("/healthz", "/readyz", "/metrics"))(mux)
}

// Run serves the operations endpoints on cfg.Server.OpsAddr until ctx is
// cancelled. With no address configured it only waits for ctx.
func (a *App) Run(ctx context.Context) error {
	addr := a.cfg.Server.OpsAddr
	if addr == "" {
		slog.Info("ops listener disabled")
		<-ctx.Done()
		return nil
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("app: listen %s: %w", addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener. It closes ln.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	slog.Info("ops listener ready", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("app: stop ops listener: %w", err)
	}
	return nil
}

// Shutdown runs the registered closers in order. It respects the context
// deadline: if ctx expires first, the remaining closers are skipped and the
// context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))
		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// providerName labels a provider slot for the startup log.
func providerName(e config.ProviderEntry, present bool) string {
	switch {
	case !present:
		return "(not configured)"
	case e.Model != "":
		return e.Name + "/" + e.Model
	default:
		return e.Name
	}
}
