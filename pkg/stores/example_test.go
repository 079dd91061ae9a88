package stores_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/openplan/openplan/pkg/stores"
)

// ExampleNewSQLiteStore demonstrates creating and initializing a new SQLite store.
func ExampleNewSQLiteStore() {
	store, err := stores.NewSQLiteStore(stores.Config{
		Path:            ":memory:", // Use in-memory database for example
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		log.Fatal(err)
	}

	if err := store.Migrate(ctx); err != nil {
		log.Fatal(err)
	}

	defer store.Close()

	fmt.Println("Store initialized successfully")
	// Output: Store initialized successfully
}

// ExampleSQLiteStore_CreateRun demonstrates recording a solve run.
func ExampleSQLiteStore_CreateRun() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	run := stores.NewSolveRun("errands", "Abc", "A-C")
	run.ID = "run-001"

	if err := store.CreateRun(ctx, run); err != nil {
		log.Fatal(err)
	}

	if err := store.FinishRun(ctx, run.ID, stores.RunOutcome{
		Status:     stores.RunStatusSolved,
		PlanLength: 3,
		Tried:      5,
	}); err != nil {
		log.Fatal(err)
	}

	retrieved, err := store.GetRun(ctx, "run-001")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Run %s: %s, %d steps\n", retrieved.ID, retrieved.Status, retrieved.PlanLength)
	// Output: Run run-001: solved, 3 steps
}

// ExampleSQLiteStore_CreatePlanSteps demonstrates recording a winning plan.
func ExampleSQLiteStore_CreatePlanSteps() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	run := stores.NewSolveRun("errands", "Abc", "A-C")
	_ = store.CreateRun(ctx, run)

	now := time.Now()
	steps := []*stores.PlanStep{
		{ID: "step-1", Position: 0, Actions: `["drive_to_store"]`, MustMask: "A--", ThenMask: "aB-", CreatedAt: now},
		{ID: "step-2", Position: 1, Actions: `["buy_milk"]`, MustMask: "-B-", ThenMask: "-BC", CreatedAt: now},
	}
	if err := store.CreatePlanSteps(ctx, run.ID, steps); err != nil {
		log.Fatal(err)
	}

	listed, err := store.ListPlanSteps(ctx, run.ID)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Plan steps: %d, first: %s\n", len(listed), listed[0].Actions)
	// Output: Plan steps: 2, first: ["drive_to_store"]
}
