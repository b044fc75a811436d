package cmd

import (
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/cobra"

	"rodoku/config"
	"rodoku/sources"
)

var (
	fetchOutputDir   string
	fetchConcurrency int
)

// unsafeFilenameChars strips everything a filesystem might object to
var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

var fetchCmd = &cobra.Command{
	Use:   "fetch <catalog-url>",
	Short: "Download and decode every chapter of a novel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogURL := args[0]

		sourceName := sources.DetectSource(catalogURL)
		if sourceName == "" {
			return fmt.Errorf("no registered source for %s (known: %v)", catalogURL, config.RegisteredSources())
		}

		if err := os.MkdirAll(fetchOutputDir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}

		req := &config.AcquireRequest{
			URL:         catalogURL,
			Concurrency: fetchConcurrency,
			Sink:        fileSink(fetchOutputDir),
		}

		progress := func(status string, _ float64, done, total int) {
			if total > 0 {
				fmt.Printf("\r%s (%d/%d)        ", status, done, total)
			} else {
				fmt.Printf("\r%s        ", status)
			}
		}

		err := config.ExecuteSourceFetch(cmd.Context(), sourceName, req, progress)
		fmt.Println()
		return err
	},
}

func sanitizeFilename(name string) string {
	cleaned := unsafeFilenameChars.ReplaceAllString(name, "-")
	if cleaned == "" {
		cleaned = "chapter"
	}
	return cleaned
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchOutputDir, "output", "o", "chapters", "directory for decoded chapter HTML")
	fetchCmd.Flags().IntVarP(&fetchConcurrency, "concurrency", "c", 0, "parallel chapter decodes (0 = configured default)")
	rootCmd.AddCommand(fetchCmd)
}
