// Package cmd defines the CLI for the crawl config service.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "btrixconfigs",
		Short: "Crawl configuration service for browser-based web archiving.",
		Long: `btrixconfigs owns the authoritative crawl configuration records and keeps
the external crawl orchestrator in lockstep with them: every create, schedule
change, delete and manual run is driven through both sides or reported as a
typed, retryable failure.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is environment only)")
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
