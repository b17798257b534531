// Package main provides the entry point for the waybackcrawl CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for waybackcrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "waybackcrawl",
		Short: "Retrieve historical web page snapshots from the Wayback Machine",
		Long: `Waybackcrawl retrieves and saves snapshots of web pages from the
Wayback Machine for temporal analysis. It queries the CDX index for captures
in a date range, deduplicates them by content digest per time bucket, and
saves one HTML file per unique capture. It can also collect rate-of-change
statistics counting how often each page changed per interval.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
