package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openplan/openplan/pkg/domainfile"
	"github.com/openplan/openplan/pkg/planner"
	"github.com/openplan/openplan/pkg/stores"
	"github.com/openplan/openplan/pkg/telemetry"
)

func newSolveCommand() *cobra.Command {
	var (
		problemPath  string
		startSpecs   []string
		goalSpecs    []string
		bindingsPath string
		showTrace    bool
		watch        bool
		metricsAddr  string
		otlpEndpoint string
	)

	cmd := &cobra.Command{
		Use:   "solve <domain-file>",
		Short: "Solve a planning problem",
		Long: `Solve a planning problem against a domain description.

The start and goal come either from a YAML problem file (--problem) or
from repeated --start/--goal flags. Variable bindings come from the
problem file or from a bindings file in "type: value value" format.`,
		Example: `  # Solve with a problem file
  planr solve logistics.dom --problem delivery.yaml

  # Solve with inline start and goal
  planr solve errands.dom --start at_home --start "not have_milk" --goal have_milk

  # Re-solve whenever the domain or problem file changes
  planr solve logistics.dom --problem delivery.yaml --watch

  # Record the run in a history database
  planr solve errands.dom --problem p.yaml --db runs.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domainPath := args[0]
			ctx := cmd.Context()

			if metricsAddr != "" || otlpEndpoint != "" {
				tel, err := newSolveTelemetry(metricsAddr, otlpEndpoint)
				if err != nil {
					return err
				}
				ctx = tel.WithContext(ctx)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := tel.Shutdown(shutdownCtx); err != nil {
						log.Warn().Err(err).Msg("Telemetry shutdown failed")
					}
				}()
			}

			run := func(ctx context.Context) error {
				return solveOnce(ctx, domainPath, problemPath, startSpecs, goalSpecs, bindingsPath, showTrace)
			}

			if !watch {
				return run(ctx)
			}
			return watchAndSolve(ctx, run, domainPath, problemPath, bindingsPath)
		},
	}

	cmd.Flags().StringVarP(&problemPath, "problem", "p", "", "YAML problem file")
	cmd.Flags().StringArrayVar(&startSpecs, "start", nil, "start state entry (repeatable)")
	cmd.Flags().StringArrayVar(&goalSpecs, "goal", nil, "goal state entry (repeatable)")
	cmd.Flags().StringVar(&bindingsPath, "bindings", "", "bindings file for parameterized domains")
	cmd.Flags().BoolVar(&showTrace, "trace", false, "print the full search trace")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-solve when input files change")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&otlpEndpoint, "otlp-endpoint", "", "export traces to this OTLP gRPC endpoint")

	return cmd
}

// newSolveTelemetry builds a telemetry instance for the solve command.
func newSolveTelemetry(metricsAddr, otlpEndpoint string) (*telemetry.Telemetry, error) {
	cfg := telemetry.DefaultConfig()
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.ListenAddress = metricsAddr
	}
	if otlpEndpoint != "" {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Exporter = "otlp"
		cfg.Tracing.Endpoint = otlpEndpoint
	}

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		return nil, err
	}
	if err := tel.StartMetricsServer(); err != nil {
		return nil, fmt.Errorf("failed to start metrics server: %w", err)
	}
	return tel, nil
}

// solveOnce loads, compiles, and solves one problem, optionally recording
// the run in the history database.
func solveOnce(ctx context.Context, domainPath, problemPath string, startSpecs, goalSpecs []string, bindingsPath string, showTrace bool) error {
	doc, err := domainfile.ParseFile(domainPath)
	if err != nil {
		return err
	}

	bindings := map[string][]string{}
	var pf *domainfile.ProblemFile
	if problemPath != "" {
		pf, err = domainfile.LoadProblemFile(problemPath)
		if err != nil {
			return err
		}
		startSpecs = pf.StartSpecs()
		goalSpecs = pf.Goal
		if pf.Bindings != nil {
			bindings = pf.Bindings
		}
	}
	if bindingsPath != "" {
		data, err := readFile(bindingsPath)
		if err != nil {
			return err
		}
		bindings, err = domainfile.ParseBindings(data)
		if err != nil {
			return err
		}
	}
	if len(startSpecs) == 0 || len(goalSpecs) == 0 {
		return fmt.Errorf("a problem file or --start and --goal flags are required")
	}

	def, err := doc.Substitute(bindings)
	if err != nil {
		return err
	}

	tel := telemetry.FromTelemetryContext(ctx)

	compileStart := time.Now()
	domain, err := planner.Compile(def)
	if err != nil {
		if tel != nil {
			tel.Metrics.RecordCompile(def.Name, "error", time.Since(compileStart))
		}
		return err
	}
	if tel != nil {
		tel.Metrics.RecordCompile(def.Name, "ok", time.Since(compileStart))
	}
	log.Debug().
		Str("domain", def.Name).
		Int("states", domain.Width()).
		Int("actions", len(domain.Actions)).
		Dur("elapsed", time.Since(compileStart)).
		Msg("Domain compiled")

	problem, err := domain.Problem(startSpecs, goalSpecs)
	if err != nil {
		return err
	}
	problem.RecordEvents = showTrace
	if verbose {
		problem.Logger = &log.Logger
	}
	if tel != nil {
		problem.Observer = func(_ int, _ *planner.ActionSequence, frontierSize int) {
			tel.Metrics.SetFrontierSize(frontierSize)
		}
	}

	var store *stores.SQLiteStore
	var run *stores.SolveRun
	if dbPath != "" {
		store, err = openStore(ctx, dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		run = stores.NewSolveRun(def.Name, problem.Start.MaskString(), problem.Goal.MaskString())
		if err := store.CreateRun(ctx, run); err != nil {
			return err
		}
	}

	runID := uuid.NewString()
	if run != nil {
		runID = run.ID
	}
	solveCtx := telemetry.WithSolveContext(ctx, runID, def.Name)

	result, err := problem.Solve(solveCtx)
	if err != nil {
		telemetry.EndSolveContext(solveCtx, def.Name, string(stores.RunStatusAborted), err)
		if store != nil {
			msg := err.Error()
			_ = store.FinishRun(ctx, run.ID, stores.RunOutcome{
				Status: stores.RunStatusAborted,
				Error:  &msg,
			})
		}
		return err
	}

	status := stores.RunStatusNoSolution
	if result.Solved {
		status = stores.RunStatusSolved
	}
	telemetry.EndSolveContext(solveCtx, def.Name, string(status), nil)
	if tel != nil {
		tel.Metrics.RecordSearch(def.Name, result.Trace.Stats.Tried, result.Trace.Stats.Expansions)
		if result.Solved {
			tel.Metrics.RecordPlanLength(def.Name, result.Sequence.ActionCount())
		}
	}

	if store != nil {
		if err := recordResult(ctx, store, run, result); err != nil {
			log.Warn().Err(err).Msg("Failed to record solve run")
		}
	}

	printResult(result, showTrace)
	return nil
}

// recordResult writes the outcome and winning plan of a finished search.
func recordResult(ctx context.Context, store *stores.SQLiteStore, run *stores.SolveRun, result *planner.Result) error {
	status := stores.RunStatusNoSolution
	planLength := 0
	if result.Solved {
		status = stores.RunStatusSolved
		planLength = result.Sequence.ActionCount()
	}

	stats := result.Trace.Stats
	outcome := stores.RunOutcome{
		Status:     status,
		PlanLength: planLength,
		Tried:      stats.Tried,
		Skipped:    stats.Skipped,
		Explored:   stats.Explored,
		Expansions: stats.Expansions,
		GoalTests:  stats.GoalTests,
		NewNodes:   stats.NewNodes,
		ElapsedMS:  stats.Elapsed.Milliseconds(),
	}
	if err := store.FinishRun(ctx, run.ID, outcome); err != nil {
		return err
	}

	if !result.Solved {
		return nil
	}

	now := time.Now().UTC()
	var steps []*stores.PlanStep
	position := 0
	for _, pool := range result.Sequence.Pools() {
		actions := pool.Actions()
		if len(actions) == 0 {
			continue
		}
		names := make([]string, len(actions))
		for i, a := range actions {
			names[i] = a.Name
		}
		encoded, err := json.Marshal(names)
		if err != nil {
			return err
		}
		steps = append(steps, &stores.PlanStep{
			ID:        fmt.Sprintf("%s-%d", run.ID, position),
			Position:  position,
			Actions:   string(encoded),
			MustMask:  pool.MustBits().MaskString(),
			ThenMask:  pool.ThenBits().MaskString(),
			CreatedAt: now,
		})
		position++
	}
	return store.CreatePlanSteps(ctx, run.ID, steps)
}

// printResult writes the plan or failure to stdout.
func printResult(result *planner.Result, showTrace bool) {
	if showTrace {
		fmt.Println(result.Trace.String())
		return
	}

	if !result.Solved {
		fmt.Println("No solution found.")
		fmt.Println(result.Trace.Summary())
		return
	}

	fmt.Printf("Plan (%d actions):\n", result.Sequence.ActionCount())
	step := 1
	for _, pool := range result.Sequence.Pools() {
		actions := pool.Actions()
		if len(actions) == 0 {
			continue
		}
		for _, a := range actions {
			fmt.Printf("  %d. %s\n", step, a.Name)
		}
		step++
	}
	fmt.Println(result.Trace.Summary())
}

// watchAndSolve re-runs the solver whenever an input file changes.
func watchAndSolve(ctx context.Context, run func(context.Context) error, paths ...string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	watched := map[string]struct{}{}
	for _, path := range paths {
		if path == "" {
			continue
		}
		// Watch the directory: editors replace files on save
		dir := filepath.Dir(path)
		if _, ok := watched[dir]; ok {
			continue
		}
		watched[dir] = struct{}{}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("Solve failed")
	}

	log.Info().Msg("Watching for changes (Ctrl-C to stop)")
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce bursts of events from a single save
			pending = time.After(200 * time.Millisecond)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Watcher error")
		case <-pending:
			pending = nil
			log.Info().Msg("Input changed, re-solving")
			if err := run(ctx); err != nil {
				log.Error().Err(err).Msg("Solve failed")
			}
		}
	}
}
