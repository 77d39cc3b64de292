// Command livehooks runs the hook sync server and replays interaction
// scenarios against the hook bundle.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/livehooks/internal/config"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// cli carries state shared by subcommands.
type cli struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "livehooks",
		Short: "Headless LiveView hook runtime and sync server",
		Long: `livehooks runs server-driven page hooks without a browser.

It ships the standard hook bundle (drag reorder, cascading region
selects, message inputs, sidebar, form submit, condition editor and
file drop), a WebSocket sync server answering hook events, and a
scenario replayer for scripted interactions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Config file (default ./"+config.FileName+" if present)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&c.logFormat, "log-format", "", "Override log.format (text, json)")

	root.AddCommand(
		serveCmd(c),
		replayCmd(c),
		hooksCmd(c),
		configCmd(c),
		versionCmd(),
	)
	return root
}

// load reads and validates configuration, applying flag overrides.
func (c *cli) load() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.Load(c.configPath)
	} else {
		cfg, err = config.LoadDefault(".")
	}
	if err != nil {
		return nil, err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// logger builds the process logger and installs it as the default.
func (c *cli) logger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// success prints a success message.
func success(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an indented line.
func info(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", fmt.Sprintf(format, args...))
}
