package planner

import (
	"context"
	"errors"
	"testing"
)

func mustProblem(t *testing.T, d *Domain, start, goal []string) *Problem {
	t.Helper()
	p, err := d.Problem(start, goal)
	if err != nil {
		t.Fatalf("Problem failed: %v", err)
	}
	return p
}

// planActionNames flattens the non-goal pools of a plan into ordered
// action name groups.
func planActionNames(seq *ActionSequence) [][]string {
	var groups [][]string
	for _, pool := range seq.Pools() {
		actions := pool.Actions()
		if len(actions) == 0 {
			continue
		}
		names := make([]string, len(actions))
		for i, a := range actions {
			names[i] = a.Name
		}
		groups = append(groups, names)
	}
	return groups
}

func TestSolve_OneActionPlan(t *testing.T) {
	d := mustCompile(t, twoStateDefinition())
	p := mustProblem(t, d, []string{"p", "not q"}, []string{"q"})

	result, err := p.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if !result.Solved {
		t.Fatal("Expected a solution")
	}

	groups := planActionNames(result.Sequence)
	if len(groups) != 1 || len(groups[0]) != 1 || groups[0][0] != "go" {
		t.Fatalf("Expected plan [go], got %v", groups)
	}
	if got := result.Sequence.Must().MaskString(); got != "A-" {
		t.Errorf("Expected plan must 'A-', got %q", got)
	}
	if got := result.Sequence.Then().MaskString(); got != "aB" {
		t.Errorf("Expected plan then 'aB', got %q", got)
	}
}

func TestSolve_NoSolution(t *testing.T) {
	d := mustCompile(t, twoStateDefinition())
	// p and q simultaneously is unreachable: the only action trades one
	// for the other.
	p := mustProblem(t, d, []string{"p", "not q"}, []string{"p", "q"})

	result, err := p.Solve(context.Background())
	if err != nil {
		t.Fatalf("Expected a clean negative result, got error: %v", err)
	}
	if result.Solved {
		t.Fatalf("Expected no solution, got %v", result.Sequence)
	}
	if result.Sequence != nil {
		t.Error("Expected nil sequence for a failed search")
	}
	if result.Trace.Stats.Tried == 0 {
		t.Error("Expected the search to have tried at least one sequence")
	}
}

func TestSolve_OrdersDependentActions(t *testing.T) {
	d := mustCompile(t, errandsDefinition())
	p := mustProblem(t, d,
		[]string{"at_home", "not at_store", "not have_milk"},
		[]string{"at_home", "have_milk"})

	result, err := p.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if !result.Solved {
		t.Fatal("Expected a solution")
	}

	groups := planActionNames(result.Sequence)
	want := [][]string{{"drive_to_store"}, {"buy_milk"}, {"drive_home"}}
	if len(groups) != len(want) {
		t.Fatalf("Expected plan %v, got %v", want, groups)
	}
	for i := range want {
		if len(groups[i]) != 1 || groups[i][0] != want[i][0] {
			t.Fatalf("Expected plan %v, got %v", want, groups)
		}
	}
}

func TestSolve_Deterministic(t *testing.T) {
	d := mustCompile(t, errandsDefinition())
	start := []string{"at_home", "not at_store", "not have_milk"}
	goal := []string{"at_home", "have_milk"}

	first, err := mustProblem(t, d, start, goal).Solve(context.Background())
	if err != nil {
		t.Fatalf("First solve failed: %v", err)
	}
	second, err := mustProblem(t, d, start, goal).Solve(context.Background())
	if err != nil {
		t.Fatalf("Second solve failed: %v", err)
	}

	if first.Sequence.Must() != second.Sequence.Must() {
		t.Errorf("Expected identical must bitmasks, got %s vs %s",
			first.Sequence.Must().MaskString(), second.Sequence.Must().MaskString())
	}
	if first.Sequence.Then() != second.Sequence.Then() {
		t.Errorf("Expected identical then bitmasks, got %s vs %s",
			first.Sequence.Then().MaskString(), second.Sequence.Then().MaskString())
	}
	if first.Trace.Stats.Tried != second.Trace.Stats.Tried {
		t.Errorf("Expected identical iteration counts, got %d vs %d",
			first.Trace.Stats.Tried, second.Trace.Stats.Tried)
	}
}

func TestSolve_AbortIsDistinctFromNoSolution(t *testing.T) {
	d := mustCompile(t, twoStateDefinition())
	p := mustProblem(t, d, []string{"p", "not q"}, []string{"q"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := p.Solve(ctx)
	if err == nil {
		t.Fatalf("Expected abort error, got result %+v", result)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled in the chain, got: %v", err)
	}
	if result != nil {
		t.Error("Expected nil result for an aborted search")
	}
}

func TestSolve_ObserverSeesEveryIteration(t *testing.T) {
	d := mustCompile(t, errandsDefinition())
	p := mustProblem(t, d,
		[]string{"at_home", "not at_store", "not have_milk"},
		[]string{"at_home", "have_milk"})

	iterations := 0
	p.Observer = func(iteration int, selected *ActionSequence, frontierSize int) {
		iterations++
		if iteration != iterations {
			t.Errorf("Expected iteration %d, got %d", iterations, iteration)
		}
		if selected == nil {
			t.Error("Expected a selected sequence")
		}
	}

	result, err := p.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if iterations != result.Trace.Stats.Tried {
		t.Errorf("Expected observer to run %d times, got %d", result.Trace.Stats.Tried, iterations)
	}
}

func TestSolve_TraceRecordsActivity(t *testing.T) {
	d := mustCompile(t, twoStateDefinition())
	p := mustProblem(t, d, []string{"p", "not q"}, []string{"q"})
	p.RecordEvents = true

	result, err := p.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	if len(result.Trace.Events) == 0 {
		t.Fatal("Expected recorded trace events")
	}
	last := result.Trace.Events[len(result.Trace.Events)-1]
	if _, ok := last.(SolutionEvent); !ok {
		t.Errorf("Expected final event to be a SolutionEvent, got %T", last)
	}
	if result.Trace.Stats.GoalTests == 0 || result.Trace.Stats.Expansions == 0 {
		t.Errorf("Expected non-zero counters, got %+v", result.Trace.Stats)
	}
	if result.Trace.Stats.Elapsed <= 0 {
		t.Error("Expected elapsed time to be recorded")
	}
}

func TestSolve_SharedDomainAcrossProblems(t *testing.T) {
	// A compiled domain is read-only; two independent problems over it
	// must not interfere.
	d := mustCompile(t, twoStateDefinition())

	solvable := mustProblem(t, d, []string{"p", "not q"}, []string{"q"})
	unsolvable := mustProblem(t, d, []string{"p", "not q"}, []string{"p", "q"})

	first, err := solvable.Solve(context.Background())
	if err != nil || !first.Solved {
		t.Fatalf("Expected solvable problem to solve, got %v / %v", first, err)
	}
	second, err := unsolvable.Solve(context.Background())
	if err != nil || second.Solved {
		t.Fatalf("Expected unsolvable problem to fail cleanly, got %v / %v", second, err)
	}
}
