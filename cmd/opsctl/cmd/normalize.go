package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"opsboard/api/internal/match"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <name> [name...]",
	Short: "Show the normalized form of one or more names",
	Long: `Normalize prints the canonical lower-cased form used for matching,
plus the abbreviation derived from the first two words.

With two names it also reports whether the matching cascade considers
them the same entity.

Examples:
  opsctl normalize "Makati Medical Center (branch)"
  opsctl normalize "CyberBattalion" "Cyber Battalion Inc."`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range args {
			fmt.Printf("%-40q normalized=%q abbreviation=%q\n",
				name, match.Normalize(name), match.Abbreviation(name))
		}
		if len(args) == 2 {
			fmt.Printf("match: %v\n", matcher.NamesMatch(args[0], args[1]))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}
