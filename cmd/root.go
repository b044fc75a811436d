package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rodoku/config"
)

var rootCmd = &cobra.Command{
	Use:   "rodoku",
	Short: "Resilient chapter acquisition for web novel sources",
	Long: `rodoku resolves a novel's catalog page, lists its chapters through the
cheapest endpoint the source offers, and decodes chapter bodies to clean
HTML - including sources that serve encrypted content envelopes.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rodoku %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildTime)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
