package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stackgen-cli/compose-edit/internal/config"
)

var (
	version    = "1.0.0"
	colorMode  string
	logLevel   string
	configFile string
	endpoint   string
	serverID   string
	stackName  string
	timeout    time.Duration

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "compose-edit",
	Short: "Structured editor for remote Docker Compose stacks",
	Long: color.New(color.FgCyan).Sprint(`
compose-edit - Structured Docker Compose Editor

`) + `Fetch a compose stack from a mutation service, edit services and
top-level resources as typed values, preview the result and submit
sparse change-sets.

` + color.New(color.FgYellow).Sprint(`Only the compose file is changed. No Docker commands executed.
`),
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&colorMode, "color", "auto", "Color output: auto, always, never")
	flags.StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	flags.StringVar(&configFile, "config", "", "Path to config file (default: .compose-edit.yaml)")
	flags.StringVar(&endpoint, "endpoint", "", "Mutation service URL")
	flags.StringVar(&serverID, "server", "", "Server id of the stack")
	flags.StringVar(&stackName, "stack", "", "Stack name")
	flags.DurationVar(&timeout, "timeout", 0, "Request timeout")
}

// setup applies the color mode, builds the logger and loads the config.
// Flags given on the command line win over the config file.
func setup(cmd *cobra.Command, args []string) error {
	switch colorMode {
	case "never":
		color.NoColor = true
	case "always":
		color.NoColor = false
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q", logLevel)
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var err error
	if configFile != "" {
		cfg, err = config.Load(configFile)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return err
	}
	if cfg.Path != "" {
		logger.Debug("config loaded", "path", cfg.Path)
	}

	flags := cmd.Flags()
	if flags.Changed("endpoint") {
		cfg.Endpoint = endpoint
	}
	if flags.Changed("server") {
		cfg.Server = serverID
	}
	if flags.Changed("stack") {
		cfg.Stack = stackName
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	return nil
}
