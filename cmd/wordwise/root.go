package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/wordwise/internal/app"
	"github.com/MrWong99/wordwise/internal/config"
	"github.com/MrWong99/wordwise/internal/observe"
	"github.com/MrWong99/wordwise/internal/tutor"
)

// offline marks commands that need neither configuration nor collaborators.
const offline = "offline"

// providerFunc builds the collaborators named in cfg. The returned closers
// run when the command finishes.
type providerFunc func(ctx context.Context, cfg *config.Config) (*app.Providers, []func() error, error)

// cli holds the state shared by one invocation of the command tree.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	level  *slog.LevelVar

	configPath string
	configFile bool
	user       string

	providers providerFunc
	appOpts   []app.Option

	cfg *config.Config
	app *app.App
}

func newCLI(stdin io.Reader, stdout io.Writer, level *slog.LevelVar) *cli {
	return &cli{
		stdin:     stdin,
		stdout:    stdout,
		level:     level,
		providers: buildProviders,
	}
}

// rootCmd assembles a fresh command tree bound to c.
func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wordwise",
		Short: "Vocabulary trainer backed by a language model",
		Long: `wordwise explains words, checks grammar, scores pronunciation and keeps a
per-user vocabulary of words, categories and topics.

Results are printed as JSON on stdout.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.loadConfig,
	}
	root.SetIn(c.stdin)
	root.SetOut(c.stdout)

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "config.yaml", "path to the YAML configuration file")
	pf.StringVar(&c.user, "user", "", "user whose data is read and written (default from tutor.default_user)")

	root.AddCommand(
		c.serveCmd(),
		c.explainCmd(),
		c.grammarCmd(),
		c.phraseCmd(),
		c.topicWordsCmd(),
		c.pronounceCmd(),
		c.scoreCmd(),
		c.extractCmd(),
		c.vocabCmd(),
		c.categoryCmd(),
		c.topicCmd(),
	)
	return root
}

// loadConfig reads .env and the config file. A missing file at the default
// path falls back to built-in defaults; a missing file the user named is an
// error.
func (c *cli) loadConfig(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[offline] != "" {
		return nil
	}
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(c.configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config"):
		slog.Debug("no config file; using defaults", "path", c.configPath)
		cfg, err = config.LoadFromReader(strings.NewReader(""))
	case err == nil:
		c.configFile = true
	}
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.level.Set(slogLevel(cfg.Server.LogLevel))

	user := c.user
	if user == "" {
		user = cfg.Tutor.DefaultUser
	}
	cmd.SetContext(observe.WithUser(cmd.Context(), user))
	return nil
}

// application builds the App on first use.
func (c *cli) application(ctx context.Context, extra ...app.Option) (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	ps, closers, err := c.providers(ctx, c.cfg)
	if err != nil {
		return nil, err
	}
	opts := append([]app.Option{}, c.appOpts...)
	opts = append(opts, extra...)
	for _, fn := range closers {
		opts = append(opts, app.WithCloser(fn))
	}
	a, err := app.New(ctx, c.cfg, ps, opts...)
	if err != nil {
		for _, fn := range closers {
			_ = fn()
		}
		return nil, err
	}
	c.app = a
	return a, nil
}

// tutor returns the learning service of the lazily built App.
func (c *cli) tutor(cmd *cobra.Command) (*tutor.Service, error) {
	a, err := c.application(cmd.Context())
	if err != nil {
		return nil, err
	}
	return a.Tutor(), nil
}

// close shuts the App down if one was built.
func (c *cli) close(ctx context.Context) error {
	if c.app == nil {
		return nil
	}
	return c.app.Shutdown(ctx)
}

// print writes v as indented JSON.
func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
