package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sibyllinesoft/valknut-sub001/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "valknut",
	Short: "Rank refactoring candidates from extracted code features",
	Long: `valknut scores code entities for refactoring priority.

It consumes per-entity features produced by language front ends and combines:
  • Robust normalization of complexity and style metrics
  • Dependency graph centrality and cycle detection
  • Clone detection with MinHash/LSH and tree edit distance

into a ranked list of candidates with priority tiers and reasons.`,
	Version:       version.Short(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewAnalyzeCmd())
	rootCmd.AddCommand(NewInitCmd())
	rootCmd.AddCommand(NewVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		reportError(rootCmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}
