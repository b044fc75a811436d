package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"rodoku/config"
	"rodoku/models"
	"rodoku/sources"
)

var listCmd = &cobra.Command{
	Use:   "list <catalog-url>",
	Short: "List a novel's chapters without downloading content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogURL := args[0]

		sourceName := sources.DetectSource(catalogURL)
		if sourceName == "" {
			return fmt.Errorf("no registered source for %s (known: %v)", catalogURL, config.RegisteredSources())
		}

		req := &config.AcquireRequest{
			URL:      catalogURL,
			ListOnly: true,
			OnList: func(chapters []models.Chapter) {
				for _, ch := range chapters {
					fmt.Printf("%5d  %-50s  %s\n", ch.Order, ch.Title, ch.URL)
				}
				fmt.Printf("\n%d chapters\n", len(chapters))
			},
		}

		return config.ExecuteSourceFetch(cmd.Context(), sourceName, req, nil)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
