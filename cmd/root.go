// Package cmd implements the CLI commands for PageAudit using Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	log          = logrus.New()
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "pageaudit",
	Short: "PageAudit: audit web pages against SEO checks",
	Long: `PageAudit fetches a set of pages, evaluates element, page and site
checks against them and writes a JSON, Markdown or PDF report.

Usage:
  pageaudit audit --url <url> [--url <url>...] [flags]`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(flagLogLevel)
		if err != nil {
			return fmt.Errorf("invalid --log-level: %w", err)
		}
		log.SetLevel(level)
		log.SetOutput(os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
