package stores

import (
	"context"
	"testing"
	"time"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	return store
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

// TestStoreRequiresPath tests that an empty path is rejected
func TestStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Fatal("expected error for empty database path")
	}
}

// TestStoreMigrations tests database migrations
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	tables := []string{"solve_runs", "plan_steps"}
	for _, table := range tables {
		query := "SELECT COUNT(*) FROM " + table
		var count int
		err := store.db.QueryRowContext(ctx, query).Scan(&count)
		if err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}
}

// TestSolveRunCRUD tests solve run CRUD operations
func TestSolveRunCRUD(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	run := NewSolveRun("errands", "Abc", "A-C")
	if run.ID == "" {
		t.Fatal("expected NewSolveRun to assign an ID")
	}
	if run.Status != RunStatusRunning {
		t.Fatalf("expected new run status %s, got %s", RunStatusRunning, run.Status)
	}

	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	retrieved, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if retrieved.Domain != "errands" {
		t.Errorf("expected domain errands, got %s", retrieved.Domain)
	}
	if retrieved.StartMask != "Abc" || retrieved.GoalMask != "A-C" {
		t.Errorf("unexpected masks %s / %s", retrieved.StartMask, retrieved.GoalMask)
	}

	outcome := RunOutcome{
		Status:     RunStatusSolved,
		PlanLength: 3,
		Tried:      5,
		Explored:   5,
		Expansions: 4,
		GoalTests:  5,
		NewNodes:   6,
		ElapsedMS:  12,
	}
	if err := store.FinishRun(ctx, run.ID, outcome); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}

	finished, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get finished run: %v", err)
	}
	if finished.Status != RunStatusSolved {
		t.Errorf("expected status %s, got %s", RunStatusSolved, finished.Status)
	}
	if finished.PlanLength != 3 || finished.Tried != 5 {
		t.Errorf("unexpected statistics %+v", finished)
	}
	if finished.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}

	if err := store.DeleteRun(ctx, run.ID); err != nil {
		t.Fatalf("failed to delete run: %v", err)
	}
	if _, err := store.GetRun(ctx, run.ID); err == nil {
		t.Error("expected error getting deleted run")
	}
}

// TestFinishRunNotFound tests finishing a nonexistent run
func TestFinishRunNotFound(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	err := store.FinishRun(context.Background(), "missing", RunOutcome{Status: RunStatusError})
	if err == nil {
		t.Fatal("expected error for unknown run ID")
	}
}

// TestListRuns tests run listing with pagination and domain filtering
func TestListRuns(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	for i, domain := range []string{"errands", "errands", "flight"} {
		run := NewSolveRun(domain, "A", "a")
		// Spread started_at so ordering is deterministic
		run.StartedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("failed to create run %d: %v", i, err)
		}
	}

	all, err := store.ListRuns(ctx, 10, 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(all))
	}
	if all[0].Domain != "flight" {
		t.Errorf("expected newest run first, got %s", all[0].Domain)
	}

	page, err := store.ListRuns(ctx, 2, 0)
	if err != nil {
		t.Fatalf("failed to list page: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("expected page of 2 runs, got %d", len(page))
	}

	errands, err := store.ListRunsByDomain(ctx, "errands", 10, 0)
	if err != nil {
		t.Fatalf("failed to list by domain: %v", err)
	}
	if len(errands) != 2 {
		t.Errorf("expected 2 errands runs, got %d", len(errands))
	}
}

// TestPlanSteps tests recording and listing plan steps
func TestPlanSteps(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	run := NewSolveRun("errands", "Abc", "A-C")
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	now := time.Now().UTC()
	steps := []*PlanStep{
		{ID: "s1", Position: 0, Actions: `["drive_to_store"]`, MustMask: "A--", ThenMask: "aB-", CreatedAt: now},
		{ID: "s2", Position: 1, Actions: `["buy_milk"]`, MustMask: "-B-", ThenMask: "-BC", CreatedAt: now},
		{ID: "s3", Position: 2, Actions: `["drive_home"]`, MustMask: "-B-", ThenMask: "Ab-", CreatedAt: now},
	}
	if err := store.CreatePlanSteps(ctx, run.ID, steps); err != nil {
		t.Fatalf("failed to create plan steps: %v", err)
	}

	listed, err := store.ListPlanSteps(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to list plan steps: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(listed))
	}
	for i, step := range listed {
		if step.Position != i {
			t.Errorf("expected position %d, got %d", i, step.Position)
		}
		if step.RunID != run.ID {
			t.Errorf("expected run ID %s, got %s", run.ID, step.RunID)
		}
	}

	// Deleting the run cascades to its steps
	if err := store.DeleteRun(ctx, run.ID); err != nil {
		t.Fatalf("failed to delete run: %v", err)
	}
	remaining, err := store.ListPlanSteps(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to list steps after delete: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected cascade delete, found %d steps", len(remaining))
	}
}

// TestPlanStepsRollback tests that a failing step insert leaves no partial plan
func TestPlanStepsRollback(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	run := NewSolveRun("errands", "A", "a")
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	now := time.Now().UTC()
	steps := []*PlanStep{
		{ID: "dup", Position: 0, Actions: `["a"]`, MustMask: "A", ThenMask: "a", CreatedAt: now},
		{ID: "dup", Position: 1, Actions: `["b"]`, MustMask: "A", ThenMask: "a", CreatedAt: now},
	}
	if err := store.CreatePlanSteps(ctx, run.ID, steps); err == nil {
		t.Fatal("expected duplicate step ID to fail")
	}

	listed, err := store.ListPlanSteps(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to list steps: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("expected rollback to remove partial steps, found %d", len(listed))
	}
}
