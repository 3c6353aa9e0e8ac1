// internal/cli/stats.go
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/law-makers/harvest/internal/ui"
	"github.com/spf13/cobra"
)

var statsOut string

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the knowledge base",
	Long: `Prints how many extraction attempts have been recorded, the overall
success rate and the best-performing algorithms across all domains.`,
	Example: `  # Human-readable summary
  harvest stats

  # Machine-readable
  harvest stats --json`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVarP(&statsOut, "output", "o", "", "File path to save the summary as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	appCtx := GetAppFromCmd(cmd)
	if appCtx == nil {
		return fmt.Errorf("application not initialized")
	}

	stats, err := appCtx.Knowledge.Statistics(cmd.Context())
	if err != nil {
		return fmt.Errorf("querying knowledge base: %w", err)
	}

	recipes, err := appCtx.Recipes.List()
	if err == nil {
		stats.TotalStrategies = len(recipes)
	}

	if statsOut != "" {
		return saveOutput(stats, statsOut)
	}

	if jsonOutput {
		content, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(content))
		return nil
	}

	fmt.Printf("\n%sKnowledge base%s\n", ui.ColorBold+ui.ColorWhite, ui.ColorReset)
	fmt.Printf("  Recordings:   %d\n", stats.TotalExecutions)
	fmt.Printf("  Recipes:      %d\n", stats.TotalStrategies)
	fmt.Printf("  Success rate: %.0f%%\n", stats.OverallSuccessRate*100)

	if len(stats.TopAlgorithms) > 0 {
		fmt.Printf("\n%sTop algorithms%s\n", ui.ColorBold+ui.ColorWhite, ui.ColorReset)
		for _, r := range stats.TopAlgorithms {
			fmt.Printf("  %-24s %5.0f%%  (%d samples)\n", r.Algorithm, r.SuccessRate*100, r.Samples)
		}
	}
	fmt.Println()
	return nil
}
