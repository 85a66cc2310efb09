package cli

import (
	"fmt"

	"taur/internal/aur"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <expression>",
	Short: "Search for packages in the AUR",
	Long: `Search the AUR by package name and description and print the matching
package names, one per line, sorted by name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := aur.NewClient(aur.WithBaseURL(cfg.AUR.BaseURL), aur.WithTimeout(cfg.Runtime.RepoTimeout))
		pkgs, err := client.Search(cmd.Context(), args[0])
		if err != nil {
			return fatalf("searching the AUR: %w", err)
		}
		out := cmd.OutOrStdout()
		for _, p := range pkgs {
			fmt.Fprintln(out, p.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
