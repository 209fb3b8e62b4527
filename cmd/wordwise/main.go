// Command wordwise is the command-line front end of the wordwise vocabulary
// trainer. Every subcommand prints its result as JSON on stdout; logs go to
// stderr.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/MrWong99/wordwise/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	level := new(slog.LevelVar)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	c := newCLI(os.Stdin, os.Stdout, level)
	err := c.rootCmd().ExecuteContext(context.Background())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if cerr := c.close(shutdownCtx); cerr != nil {
		slog.Error("shutdown error", "err", cerr)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "wordwise: %v\n", err)
		return 1
	}
	return 0
}

// slogLevel maps a config level onto slog.
func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
