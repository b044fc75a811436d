package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"rodoku/config"
	"rodoku/models"
	"rodoku/sources"
)

var batchOutputDir string

var batchCmd = &cobra.Command{
	Use:   "batch <catalog-url>...",
	Short: "Queue several novels and acquire them one after another",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(batchOutputDir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}

		queue := config.GetAcquireQueue()

		done := make(chan struct{})
		queue.SetCallbacks(
			nil,
			func(task *config.AcquireTask) {
				if task.ChaptersTotal > 0 {
					fmt.Printf("\r[%s] %s (%d/%d)        ", task.Source, task.StatusMessage, task.ChaptersDone, task.ChaptersTotal)
				} else {
					fmt.Printf("\r[%s] %s        ", task.Source, task.StatusMessage)
				}
			},
			nil,
			func() { close(done) },
		)

		queued := 0
		for _, catalogURL := range args {
			sourceName := sources.DetectSource(catalogURL)
			if sourceName == "" {
				fmt.Fprintf(os.Stderr, "skipping %s: no registered source\n", catalogURL)
				continue
			}

			outDir := filepath.Join(batchOutputDir, sanitizeFilename(filepath.Base(catalogURL)))
			if err := os.MkdirAll(outDir, 0755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}

			req := &config.AcquireRequest{
				URL:  catalogURL,
				Sink: fileSink(outDir),
			}
			if _, err := queue.AddTask(sourceName, req); err != nil {
				fmt.Fprintf(os.Stderr, "skipping %s: %v\n", catalogURL, err)
				continue
			}
			queued++
		}

		if queued == 0 {
			return fmt.Errorf("nothing queued")
		}

		<-done
		fmt.Println()

		failed := 0
		for _, task := range queue.GetTasks() {
			if task.Status == "failed" {
				failed++
				fmt.Fprintf(os.Stderr, "%s: %v\n", task.Request.URL, task.Error)
			}
		}
		queue.RemoveCompletedTasks()

		if failed > 0 {
			return fmt.Errorf("%d of %d jobs failed", failed, queued)
		}
		return nil
	},
}

// fileSink writes each decoded chapter under dir, one HTML file per chapter
func fileSink(dir string) config.ChapterSink {
	return func(chapter models.Chapter, html string) error {
		name := fmt.Sprintf("%04d-%s.html", chapter.Order, sanitizeFilename(chapter.Title))
		return os.WriteFile(filepath.Join(dir, name), []byte(html), 0644)
	}
}

func init() {
	batchCmd.Flags().StringVarP(&batchOutputDir, "output", "o", "chapters", "base directory for decoded chapter HTML")
	rootCmd.AddCommand(batchCmd)
}
