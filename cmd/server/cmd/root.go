package cmd

import (
	"fmt"
	"os"

	"github.com/courserate-sg/server/internal/config"
	"github.com/spf13/cobra"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

// loadConfig reads configuration and applies the logging flag overrides.
func (o *globalOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	return cfg, nil
}

// NewRootCommand builds the courserate command tree. Running it without a subcommand serves the API.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	serve := newServeCommand(opts)

	root := &cobra.Command{
		Use:   "courserate",
		Short: "CourseRate SG server - course and professor reviews for Singapore universities",
		Long: `CourseRate SG serves student reviews of university courses and professors.

The server provides:
- Review submission, editing and deletion for signed-in students
- Course, professor and university listings with rating statistics
- Professor and course search
- An MCP tool server over the same read-side data`,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file path (optional, uses env vars by default)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (json, console) (default: json)")

	root.AddCommand(
		serve,
		newMigrateCommand(opts),
		newSeedCommand(opts),
		newTokenCommand(opts),
		newHealthcheckCommand(),
		newMCPCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
