// Package cli implements the chromascribe command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/chromascribe/pkg/buildinfo"
	"github.com/matzehuels/chromascribe/pkg/config"
	"github.com/matzehuels/chromascribe/pkg/observability"
	"github.com/matzehuels/chromascribe/pkg/scene"
	"github.com/matzehuels/chromascribe/pkg/session"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "chromascribe"

	// defaultConfigName is looked up in the config directory when --config
	// is not given.
	defaultConfigName = "config.toml"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger     *log.Logger
	configPath string
}

// New creates a new CLI instance with a default logger. Pipeline events
// are logged at debug level, so they show with --verbose.
func New(w io.Writer, level log.Level) *CLI {
	logger := newLogger(w, level)
	observability.UseLogger(logger)
	return &CLI{Logger: logger}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Chroma Scribe paints 3D strokes from hand gestures and sound",
		Long:         `Chroma Scribe turns a tracked hand into a 3D brush. Hand position steers the stroke, an open hand draws and a fist lifts the brush, and microphone volume and pitch set stroke size and color.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (.toml or .yaml)")

	root.AddCommand(c.drawCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.evolveCommand())
	root.AddCommand(c.snapshotsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Session Factory
// =============================================================================

// loadConfig reads the --config file, or the default one when present.
func (c *CLI) loadConfig() (*config.Config, error) {
	path := c.configPath
	if path == "" {
		if dir, err := configDir(); err == nil {
			path = filepath.Join(dir, defaultConfigName)
		}
	}
	return config.Load(path)
}

// newSession builds a canvas and a session over the given feeds.
func (c *CLI) newSession(cfg *config.Config, gesture session.GestureFeed, audio session.AudioFeed, opts ...session.Option) (*session.Controller, error) {
	tuning, err := session.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	canvasOpts, err := session.CanvasOptions(cfg, c.Logger)
	if err != nil {
		return nil, err
	}
	canvas, err := scene.New(canvasOpts...)
	if err != nil {
		return nil, err
	}
	opts = append([]session.Option{session.WithLogger(c.Logger)}, opts...)
	return session.New(canvas, gesture, audio, tuning, opts...), nil
}

// watchTuning hot-reloads tuning into ctrl while ctx is live. It is a no-op
// without an explicit --config file.
func (c *CLI) watchTuning(ctx context.Context, ctrl *session.Controller) {
	if c.configPath == "" {
		return
	}
	go func() {
		err := config.Watch(ctx, c.configPath, c.Logger, func(cfg *config.Config) {
			tuning, err := session.FromConfig(cfg)
			if err != nil {
				c.Logger.Warn("config reload rejected", "err", err)
				return
			}
			ctrl.SetTuning(tuning)
			c.Logger.Info("tuning reloaded", "path", c.configPath)
		})
		if err != nil && ctx.Err() == nil {
			c.Logger.Warn("config watcher stopped", "err", err)
		}
	}()
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/chromascribe/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// configDir returns the config directory using XDG standard (~/.config/chromascribe/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}
