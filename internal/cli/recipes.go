// internal/cli/recipes.go
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/law-makers/harvest/internal/knowledge"
	"github.com/law-makers/harvest/internal/ui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// recipesCmd represents the recipes command group
var recipesCmd = &cobra.Command{
	Use:   "recipes",
	Short: "Inspect the saved extraction recipes",
	Long: `Recipes are the YAML files the engine writes after a successful
extraction, one per site and task. They are meant to be read and edited by
hand; this command lists and shows them.`,
	Example: `  # Everything the engine has learned
  $ harvest recipes list

  # One recipe in full
  $ harvest recipes show example.com products`,
}

var recipesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved recipes",
	Args:  cobra.NoArgs,
	RunE:  runRecipesList,
}

var recipesShowCmd = &cobra.Command{
	Use:   "show <url-pattern> <task>",
	Short: "Print one recipe as YAML",
	Args:  cobra.ExactArgs(2),
	RunE:  runRecipesShow,
}

func init() {
	rootCmd.AddCommand(recipesCmd)
	recipesCmd.AddCommand(recipesListCmd)
	recipesCmd.AddCommand(recipesShowCmd)
}

func runRecipesList(cmd *cobra.Command, args []string) error {
	appCtx := GetAppFromCmd(cmd)
	if appCtx == nil {
		return fmt.Errorf("application not initialized")
	}

	recipes, err := appCtx.Recipes.List()
	if err != nil {
		return err
	}

	if jsonOutput {
		content, err := json.MarshalIndent(recipes, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(content))
		return nil
	}

	if len(recipes) == 0 {
		fmt.Printf("No recipes saved yet in %s\n", appCtx.Recipes.Dir())
		fmt.Println("  harvest extract <url> --task=<task>")
		return nil
	}

	fmt.Printf("\n%sRecipes%s (%s)\n", ui.ColorBold+ui.ColorWhite, ui.ColorReset, appCtx.Recipes.Dir())
	for _, r := range recipes {
		fmt.Printf("  %-32s %-16s %-22s %4.0f%% over %d uses\n",
			r.URLPattern, r.Task, r.Algorithm,
			r.Metadata.SuccessRate*100, r.Metadata.UseCount)
	}
	fmt.Println()
	return nil
}

func runRecipesShow(cmd *cobra.Command, args []string) error {
	appCtx := GetAppFromCmd(cmd)
	if appCtx == nil {
		return fmt.Errorf("application not initialized")
	}

	pattern := knowledge.Domain(args[0])
	recipe, err := appCtx.Recipes.Find(pattern, args[1])
	if err != nil {
		return fmt.Errorf("recipe for %s / %s: %w", pattern, args[1], err)
	}

	if jsonOutput {
		content, err := json.MarshalIndent(recipe, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(content))
		return nil
	}

	content, err := yaml.Marshal(recipe)
	if err != nil {
		return err
	}
	os.Stdout.Write(content)
	return nil
}
