// internal/cli/batch.go
package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/law-makers/harvest/internal/batch"
	"github.com/law-makers/harvest/internal/orchestrator"
	urlutil "github.com/law-makers/harvest/internal/utils/url"
	"github.com/law-makers/harvest/pkg/models"
	"github.com/rs/zerolog/log"
	progressbar "github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	batchFile        string
	batchConcurrency int
	batchOut         string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [urls...]",
	Short: "Run an extraction task across many URLs concurrently",
	Long: `Runs the same extraction task against a list of URLs, grouped by domain
for connection reuse. URLs come from arguments or from a file with one URL
per line; lines starting with # are ignored.`,
	Example: `  # Extract from several pages at once
  harvest batch https://a.example/items https://b.example/items --task=products

  # Read URLs from a file and save everything to one JSON file
  harvest batch --file=urls.txt --task=products --output=all.json

  # Bound the per-domain concurrency
  harvest batch --file=urls.txt --task=products --concurrency=4`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&batchFile, "file", "F", "", "File with one URL per line")
	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "c", 0, "Concurrent extractions per domain (0 = auto)")
	batchCmd.Flags().StringVarP(&batchOut, "output", "o", "", "JSON file collecting every result")
	batchCmd.Flags().StringVarP(&task, "task", "t", "items", "Task label for recipes and the knowledge base")
	batchCmd.Flags().StringVarP(&instruction, "filter", "f", "", "Natural-language filter instruction")
	batchCmd.Flags().StringSliceVar(&fieldList, "fields", nil, "Fields to extract per record")
	batchCmd.Flags().StringVarP(&mode, "mode", "m", "auto", "Snapshot mode: auto, static, or spa")
}

func collectURLs(args []string) ([]string, error) {
	urls := append([]string{}, args...)

	if batchFile != "" {
		file, err := os.Open(batchFile)
		if err != nil {
			return nil, fmt.Errorf("opening URL file: %w", err)
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			urls = append(urls, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading URL file: %w", err)
		}
	}

	for _, u := range urls {
		if err := urlutil.ValidateURL(u); err != nil {
			return nil, err
		}
	}
	return urls, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	urls, err := collectURLs(args)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs given: pass them as arguments or with --file")
	}

	scraperMode, err := parseMode(mode)
	if err != nil {
		return err
	}

	appCtx := GetAppFromCmd(cmd)
	if appCtx == nil {
		return fmt.Errorf("application not initialized")
	}

	if scraperMode == models.ModeSPA {
		if err := appCtx.EnsureBrowserPool(cmd.Context()); err != nil {
			log.Warn().Err(err).Msg("Browser pool unavailable, using one-off browser contexts")
		}
	}

	requests := make([]orchestrator.Request, 0, len(urls))
	for _, u := range urls {
		requests = append(requests, orchestrator.Request{
			URL:         u,
			Task:        task,
			Instruction: instruction,
			Fields:      fieldList,
			Options: models.RequestOptions{
				URL:     u,
				Mode:    scraperMode,
				Timeout: appCtx.Config.HTTPTimeout,
				Proxy:   appCtx.NextProxy(),
			},
		})
	}

	bar := progressbar.NewOptions(len(requests),
		progressbar.OptionSetDescription("extracting"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	runner := batch.NewRunner(appCtx.Orchestrator, batchConcurrency)

	type batchEntry struct {
		URL      string                   `json:"url"`
		Error    string                   `json:"error,omitempty"`
		Result   *models.ExtractionResult `json:"result,omitempty"`
		Entities int                      `json:"entities"`
	}

	var collected []batchEntry
	failures := 0
	total := 0

	for res := range runner.Run(cmd.Context(), requests) {
		_ = bar.Add(1)

		entry := batchEntry{URL: res.Request.URL}
		if res.Error != nil {
			entry.Error = res.Error.Error()
			failures++
		}
		if res.Result != nil {
			entry.Result = res.Result
			entry.Entities = len(res.Result.Entities)
			total += entry.Entities
		}
		collected = append(collected, entry)
	}
	_ = bar.Finish()

	fmt.Printf("\n%d URLs processed, %d records extracted, %d failures\n",
		len(collected), total, failures)

	if batchOut != "" {
		content, err := json.MarshalIndent(collected, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		if err := os.WriteFile(batchOut, content, 0644); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
		fmt.Printf("Saved to %s\n", batchOut)
	}

	if failures == len(collected) && failures > 0 {
		return fmt.Errorf("every URL in the batch failed")
	}
	return nil
}
