// internal/cli/rankings.go
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/law-makers/harvest/internal/knowledge"
	"github.com/law-makers/harvest/internal/ui"
	"github.com/spf13/cobra"
)

var (
	rankDomain string
	rankTask   string
	rankOut    string
)

// rankingsCmd represents the rankings command
var rankingsCmd = &cobra.Command{
	Use:   "rankings",
	Short: "Show algorithm performance for a domain or task",
	Long: `Derives per-algorithm success rates from the execution log. Narrow the
view with --domain and --task; either may be omitted to widen the grouping.`,
	Example: `  # Everything the engine has learned about one site
  harvest rankings --domain=example.com

  # How algorithms compare for one task across all sites
  harvest rankings --task=products`,
	Args: cobra.NoArgs,
	RunE: runRankings,
}

func init() {
	rootCmd.AddCommand(rankingsCmd)

	rankingsCmd.Flags().StringVarP(&rankDomain, "domain", "d", "", "Restrict to one domain (accepts a full URL)")
	rankingsCmd.Flags().StringVarP(&rankTask, "task", "t", "", "Restrict to one task label")
	rankingsCmd.Flags().StringVarP(&rankOut, "output", "o", "", "File path to save the rankings as JSON")
}

func runRankings(cmd *cobra.Command, args []string) error {
	appCtx := GetAppFromCmd(cmd)
	if appCtx == nil {
		return fmt.Errorf("application not initialized")
	}

	domain := rankDomain
	if domain != "" {
		domain = knowledge.Domain(domain)
	}

	rankings, err := appCtx.Knowledge.Rankings(cmd.Context(), domain, rankTask)
	if err != nil {
		return fmt.Errorf("querying rankings: %w", err)
	}

	if rankOut != "" {
		return saveOutput(rankings, rankOut)
	}

	if jsonOutput {
		content, err := json.MarshalIndent(rankings, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(content))
		return nil
	}

	if len(rankings) == 0 {
		fmt.Println("No recorded attempts match.")
		return nil
	}

	scope := "all domains"
	if domain != "" {
		scope = domain
	}
	if rankTask != "" {
		scope += " / " + rankTask
	}

	fmt.Printf("\n%sRankings%s (%s)\n", ui.ColorBold+ui.ColorWhite, ui.ColorReset, scope)
	for _, r := range rankings {
		fmt.Printf("  %-24s %5.0f%%  (%d samples)\n", r.Algorithm, r.SuccessRate*100, r.Samples)
	}
	if best, ok, err := appCtx.Knowledge.BestAlgorithm(cmd.Context(), domain, rankTask); err == nil && ok {
		fmt.Printf("  best: %s%s%s\n", ui.ColorGreen, best, ui.ColorReset)
	}
	fmt.Println()
	return nil
}
