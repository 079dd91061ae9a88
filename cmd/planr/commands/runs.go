package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openplan/openplan/pkg/stores"
)

func newRunsCommand() *cobra.Command {
	var (
		domainFilter string
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Inspect solve-run history",
		Long: `List recorded solve runs, or show the plan of a single run.

Without arguments the most recent runs are listed. With a run ID the
run's statistics and plan steps are printed. The --db flag selects the
history database.`,
		Example: `  # List the last 20 runs
  planr runs --db runs.db

  # List runs for one domain
  planr runs --db runs.db --domain errands

  # Show one run's plan
  planr runs --db runs.db 4f2c9a1e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				return fmt.Errorf("--db is required")
			}
			store, err := openStore(cmd.Context(), dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				return showRun(cmd, store, args[0])
			}

			var runs []*stores.SolveRun
			if domainFilter != "" {
				rs, err := store.ListRunsByDomain(cmd.Context(), domainFilter, limit, 0)
				if err != nil {
					return err
				}
				runs = rs
			} else {
				rs, err := store.ListRuns(cmd.Context(), limit, 0)
				if err != nil {
					return err
				}
				runs = rs
			}

			if len(runs) == 0 {
				fmt.Println("No runs recorded.")
				return nil
			}

			fmt.Printf("%-36s  %-12s  %-12s  %6s  %8s  %s\n",
				"ID", "DOMAIN", "STATUS", "PLAN", "TRIED", "STARTED")
			for _, run := range runs {
				fmt.Printf("%-36s  %-12s  %-12s  %6d  %8d  %s\n",
					run.ID, run.Domain, run.Status, run.PlanLength, run.Tried,
					run.StartedAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&domainFilter, "domain", "", "only list runs for this domain")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")

	return cmd
}

// showRun prints one run's statistics and plan steps.
func showRun(cmd *cobra.Command, store *stores.SQLiteStore, id string) error {
	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s\n", run.ID)
	fmt.Printf("  Domain:  %s\n", run.Domain)
	fmt.Printf("  Status:  %s\n", run.Status)
	fmt.Printf("  Start:   %s\n", run.StartMask)
	fmt.Printf("  Goal:    %s\n", run.GoalMask)
	fmt.Printf("  Tried %d, skipped %d, explored %d, %d expansions, %d goal tests\n",
		run.Tried, run.Skipped, run.Explored, run.Expansions, run.GoalTests)
	fmt.Printf("  Elapsed: %dms\n", run.ElapsedMS)
	if run.Error != nil {
		fmt.Printf("  Error:   %s\n", *run.Error)
	}

	steps, err := store.ListPlanSteps(cmd.Context(), id)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		return nil
	}

	fmt.Printf("  Plan (%d steps):\n", len(steps))
	for _, step := range steps {
		var names []string
		if err := json.Unmarshal([]byte(step.Actions), &names); err != nil {
			names = []string{step.Actions}
		}
		fmt.Printf("    %d. %s\n", step.Position+1, strings.Join(names, ", "))
	}
	return nil
}
