// Package cmd implements the rv CLI commands.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/eykd/redvelvet-go/internal/config"
	"github.com/eykd/redvelvet-go/internal/logging"
)

// settings carries the resolved configuration shared by every subcommand.
type settings struct {
	cfg        config.Config
	configPath string

	// global flag values; they win over cfg only when set on the command line
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
	flagColor     string
}

func newSettings() *settings {
	return &settings{cfg: config.Default()}
}

// NewRootCmd creates the root rv command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newRootCmd(newDefaultFileIO())
}

func newRootCmd(fio FileIO) *cobra.Command {
	s := newSettings()
	root := &cobra.Command{
		Use:           "rv",
		Short:         "rv - convert post content between NPF JSON and block markup",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.resolve(cmd)
		},
		RunE: rootRunE,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&s.flagConfig, "config", "", "Config file (default: search for .redvelvet.yaml or .redvelvet.toml)")
	pf.StringVar(&s.flagLogLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	pf.StringVar(&s.flagLogFormat, "log-format", "auto", "Log format: auto, text, json")
	pf.StringVar(&s.flagColor, "color", "auto", "Colored output: auto, always, never")

	root.AddCommand(NewToMarkupCmd(fio, s))
	root.AddCommand(NewToNPFCmd(fio, s))
	root.AddCommand(NewFromMarkdownCmd(fio, s))
	root.AddCommand(NewCheckCmd(fio, s))
	return root
}

func rootRunE(cmd *cobra.Command, _ []string) error {
	return cmd.Help()
}

// resolve merges defaults, the config file and command-line flags, in rising
// order of precedence, and installs the logger.
func (s *settings) resolve(cmd *cobra.Command) error {
	var (
		cfg  config.Config
		path string
		err  error
	)
	if s.flagConfig != "" {
		cfg, err = config.Load(s.flagConfig)
		path = s.flagConfig
	} else {
		cfg, path, err = config.Discover(".")
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = s.flagLogLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = s.flagLogFormat
	}
	if flags.Changed("color") {
		cfg.Color = s.flagColor
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	s.cfg = cfg
	s.configPath = path
	if path != "" {
		logger.Debug("config loaded", "path", path)
	}
	return nil
}

// jobs returns the --jobs flag when set, else the configured value.
func (s *settings) jobs(cmd *cobra.Command, flagValue int) int {
	if cmd.Flags().Changed("jobs") {
		return flagValue
	}
	return s.cfg.Jobs
}

// strict returns the --strict flag when set, else the configured value.
func (s *settings) strict(cmd *cobra.Command, flagValue bool) bool {
	if cmd.Flags().Changed("strict") {
		return flagValue
	}
	return s.cfg.Strict
}

// color reports whether output written to w should carry ANSI colors.
func (s *settings) color(w io.Writer) bool {
	switch s.cfg.Color {
	case "always":
		return true
	case "never":
		return false
	}
	return os.Getenv("NO_COLOR") == "" && logging.IsTerminal(w)
}
