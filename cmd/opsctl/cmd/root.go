package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"opsboard/api/internal/match"
)

var (
	synonymsPath string
	matcher      *match.Matcher
)

var rootCmd = &cobra.Command{
	Use:   "opsctl",
	Short: "Offline tooling for the opsboard reconciliation service",
	Long: `opsctl runs the opsboard matching and reconciliation logic against
local files, without a running API server or database.

It is meant for spot-checking name normalization and for dry-running a
reconciliation over exported CSV files before wiring a new platform feed.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		groups, err := match.LoadSynonymGroups(synonymsPath)
		if err != nil {
			return fmt.Errorf("load synonyms: %w", err)
		}
		matcher = match.New(groups)
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&synonymsPath, "synonyms", "s", "", "path to a YAML synonym table (default: built-in groups)")
}
