// Package main provides the taskmatch CLI: the triage HTTP server plus one-shot
// issue, commit and requisition commands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/taskmatch/internal/config"
	"github.com/jonathan/taskmatch/internal/logging"
)

var (
	configPath   string
	verbose      bool
	outputFormat string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "taskmatch",
	Short: "Issue triage and developer matching",
	Long: `taskmatch extracts required skills from incoming issues, folds duplicates into
their parent, ranks developers and either assigns the best one or drafts a
hiring requisition. Commits are linked back to tasks and evolve author profiles.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat != "json" && outputFormat != "text" {
			return fmt.Errorf("invalid --output %q: must be json or text", outputFormat)
		}

		loaded, err := config.Load(configPath, os.LookupEnv)
		if err != nil {
			return err
		}
		cfg = loaded

		logger, err = logging.New(cfg.Log, verbose)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a JSON or YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "Output format: json or text")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
