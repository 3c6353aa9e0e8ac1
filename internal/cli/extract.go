// internal/cli/extract.go
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/law-makers/harvest/internal/orchestrator"
	"github.com/law-makers/harvest/internal/utils/output"
	urlutil "github.com/law-makers/harvest/internal/utils/url"
	"github.com/law-makers/harvest/pkg/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	mode        string
	task        string
	instruction string
	fieldList   []string
	outFile     string
	headers     []string
	sessionName string
	showTrace   bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <url>",
	Short: "Extract structured records from a page",
	Long: `Detects repeating data containers statistically, extracts one record per
container and filters them against a natural-language instruction.

Successful strategies are saved as recipes and replayed on later runs
against the same site; every attempt feeds the knowledge base so the
strategy order improves over time.`,
	Example: `  # Extract products from a listing page
  harvest extract https://example.com/laptops --task=products

  # Filter the records with a natural-language instruction
  harvest extract https://example.com/laptops --task=products --filter="laptops under $2000"

  # Choose the fields to extract
  harvest extract https://example.com/news --task=articles --fields=name,url,description

  # Save output (format follows the extension: .json, .csv, .md, .html)
  harvest extract https://example.com/laptops --task=products --output=laptops.json

  # Force rendering in headless Chrome
  harvest extract https://spa-site.com/catalog --task=products --mode=spa`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&mode, "mode", "m", "auto", "Snapshot mode: auto, static, or spa")
	extractCmd.Flags().StringVarP(&task, "task", "t", "items", "Task label for recipes and the knowledge base")
	extractCmd.Flags().StringVarP(&instruction, "filter", "f", "", "Natural-language filter instruction")
	extractCmd.Flags().StringSliceVar(&fieldList, "fields", nil, "Fields to extract per record (default name,price,url,image)")
	extractCmd.Flags().StringVarP(&outFile, "output", "o", "", "File path to save output (supports .json, .csv, .md, .html)")
	extractCmd.Flags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (e.g., -H \"User-Agent: Bot\")")
	extractCmd.Flags().StringVar(&sessionName, "session", "", "Name of a saved auth session to use")
	extractCmd.Flags().BoolVar(&showTrace, "trace", false, "Print the per-strategy attempt trace")
}

func parseMode(raw string) (models.ScraperMode, error) {
	switch strings.ToLower(raw) {
	case "auto":
		return models.ModeAuto, nil
	case "static":
		return models.ModeStatic, nil
	case "spa":
		return models.ModeSPA, nil
	default:
		return "", fmt.Errorf("invalid mode: %s (must be auto, static, or spa)", raw)
	}
}

func runExtract(cmd *cobra.Command, args []string) error {
	url := args[0]

	if err := urlutil.ValidateURL(url); err != nil {
		return err
	}

	scraperMode, err := parseMode(mode)
	if err != nil {
		return err
	}

	// Parse custom headers
	headerMap := make(map[string]string)
	for _, h := range headers {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) == 2 {
			headerMap[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}

	appCtx := GetAppFromCmd(cmd)
	if appCtx == nil {
		return fmt.Errorf("application not initialized")
	}

	// Forced browser rendering warms the pool up front; without it the
	// dynamic provider falls back to one-off browser contexts.
	if scraperMode == models.ModeSPA {
		if err := appCtx.EnsureBrowserPool(cmd.Context()); err != nil {
			log.Warn().Err(err).Msg("Browser pool unavailable, using one-off browser contexts")
		}
	}

	req := orchestrator.Request{
		URL:         url,
		Task:        task,
		Instruction: instruction,
		Fields:      fieldList,
		Options: models.RequestOptions{
			URL:         url,
			Mode:        scraperMode,
			Headers:     headerMap,
			SessionName: sessionName,
			Timeout:     appCtx.Config.HTTPTimeout,
			Proxy:       appCtx.NextProxy(),
		},
	}

	// Parse timeout from global flag
	if timeout != "" {
		if duration, err := time.ParseDuration(timeout); err == nil {
			req.Options.Timeout = duration
		} else {
			log.Warn().Str("timeout", timeout).Msg("Invalid timeout format, using default")
		}
	}

	log.Info().
		Str("url", url).
		Str("task", task).
		Str("mode", string(scraperMode)).
		Msg("Starting extraction")

	result, err := appCtx.Orchestrator.Extract(cmd.Context(), req)
	if err != nil {
		if result != nil && result.Exhausted {
			printTrace(result)
			return fmt.Errorf("no strategy could extract %q from %s", task, url)
		}
		return err
	}

	if showTrace {
		printTrace(result)
	}

	if outFile != "" {
		return saveResult(url, result, outFile)
	}
	return printResult(result)
}

func saveResult(pageURL string, result *models.ExtractionResult, filepath string) error {
	var err error
	switch {
	case strings.HasSuffix(filepath, ".csv"):
		err = output.SaveCSV(result.Entities, filepath)
	case strings.HasSuffix(filepath, ".md"):
		err = output.SaveMarkdown(result.Entities, filepath)
	case strings.HasSuffix(filepath, ".html"):
		err = output.SaveHTML(result.Entities, pageURL, filepath)
	default:
		err = output.SaveJSON(pageURL, result, filepath)
	}
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	log.Info().Str("file", filepath).Msg("Output saved")
	fmt.Printf("Saved %d records to %s\n", len(result.Entities), filepath)
	return nil
}

func printResult(result *models.ExtractionResult) error {
	if jsonOutput {
		content, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(content))
		return nil
	}

	if result.StrategyUsed != nil {
		fmt.Printf("\nStrategy:  %s (%s)\n", result.StrategyUsed.Algorithm, result.StrategyUsed.Selector)
	}
	fmt.Printf("Records:   %d\n", len(result.Entities))
	if result.FilterReport != nil {
		fmt.Printf("Filter:    %s\n", result.FilterReport.Summary)
		for _, stage := range result.FilterReport.Stages {
			fmt.Printf("  %-24s %d -> %d\n", stage.Stage, stage.Input, stage.Output)
		}
		for _, w := range result.FilterReport.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}
	}
	fmt.Println()

	for i := range result.Entities {
		e := &result.Entities[i]
		fmt.Printf("%d. %s\n", i+1, e.Field("name"))
		for name, value := range e.Fields {
			if name == "name" {
				continue
			}
			fmt.Printf("   %-12s %s\n", name+":", value)
		}
	}
	return nil
}

func printTrace(result *models.ExtractionResult) {
	fmt.Println("\nAttempts:")
	for _, rec := range result.Trace {
		status := "ok"
		if !rec.Success {
			status = rec.FailureKind
		}
		fmt.Printf("  %-24s %-22s %4dms  %d items\n", rec.Algorithm, status, rec.ElapsedMs, rec.Items)
	}
}

// saveOutput writes arbitrary data as indented JSON; shared by the stats and
// rankings commands.
func saveOutput(data interface{}, filepath string) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}
	if err := os.WriteFile(filepath, content, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	log.Info().Str("file", filepath).Msg("Output saved")
	return nil
}
