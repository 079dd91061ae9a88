package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
	dbPath  string
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "planr",
		Short: "planr - bitmask action planner",
		Long: `planr compiles textual domain descriptions into bitmask domains and
searches for action sequences that reach a goal from a start state.

Features:
  - Ternary bitmask world states (true / false / unknown per bit)
  - Constraint propagation and pairwise action mutex at compile time
  - Best-first regression search with deterministic tie-breaking
  - Variable-binding substitution for parameterized domains
  - SQLite-backed solve run history`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "run-history database path (empty disables recording)")

	rootCmd.AddCommand(newSolveCommand())
	rootCmd.AddCommand(newShowCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newRunsCommand())

	return rootCmd
}
