// Package cli defines the cardfile command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cardfile/cardfile/internal/config"
	"github.com/cardfile/cardfile/internal/logging"
)

const version = "0.1.0"

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "cardfile",
	Short: "Contact store with bulk tabular import",
	Long: `cardfile keeps contacts in Postgres as vCards and imports them in
bulk from loosely-structured CSV or tab-separated exports.

An import is a two-step flow: preview parses the file, flags suspect
fields, and matches rows against existing contacts; execute applies
per-row create/update/skip decisions in a single transaction that
rolls back entirely if any row fails.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cardfile v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, text); overrides LOG_FORMAT")

	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the environment configuration, applies the logging
// flag overrides, and installs the process logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}
