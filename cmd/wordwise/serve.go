package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrWong99/wordwise/internal/app"
	"github.com/MrWong99/wordwise/internal/config"
	"github.com/MrWong99/wordwise/internal/observe"
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve health and metrics endpoints until interrupted",
		Long: `serve builds every configured collaborator, then serves /healthz, /readyz
and /metrics on server.ops_addr until SIGINT or SIGTERM. Changes to
server.log_level in the config file apply without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx)
		},
	}
}

func (c *cli) serve(ctx context.Context) error {
	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		return err
	}
	a, err := c.application(ctx, app.WithTelemetry(tel))
	if err != nil {
		_ = tel.Shutdown(context.WithoutCancel(ctx))
		return err
	}

	if c.configFile {
		w, err := config.NewWatcher(c.configPath, c.applyChanges)
		if err != nil {
			return err
		}
		go w.Run(ctx)
	}

	slog.Info("wordwise ready; press Ctrl+C to stop",
		"version", version,
		"ops_addr", c.cfg.Server.OpsAddr,
	)
	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("shutdown signal received, stopping")
	return nil
}

// applyChanges is the config watcher callback.
func (c *cli) applyChanges(_, _ *config.Config, ch config.Changes) {
	if ch.LogLevelChanged {
		c.level.Set(slogLevel(ch.NewLogLevel))
		slog.Info("log level changed", "level", ch.NewLogLevel)
	}
	if len(ch.RestartRequired) > 0 {
		slog.Warn("config changes take effect after a restart", "sections", ch.RestartRequired)
	}
}
