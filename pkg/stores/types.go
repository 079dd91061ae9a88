package stores

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the outcome of a solve run
type RunStatus string

const (
	RunStatusRunning    RunStatus = "running"
	RunStatusSolved     RunStatus = "solved"
	RunStatusNoSolution RunStatus = "no_solution"
	RunStatusAborted    RunStatus = "aborted"
	RunStatusError      RunStatus = "error"
)

// SolveRun represents one invocation of the solver against a problem
type SolveRun struct {
	ID          string     `json:"id"`
	Domain      string     `json:"domain"`
	StartMask   string     `json:"start_mask"`
	GoalMask    string     `json:"goal_mask"`
	Status      RunStatus  `json:"status"`
	PlanLength  int        `json:"plan_length"`
	Tried       int        `json:"tried"`
	Skipped     int        `json:"skipped"`
	Explored    int        `json:"explored"`
	Expansions  int        `json:"expansions"`
	GoalTests   int        `json:"goal_tests"`
	NewNodes    int        `json:"new_nodes"`
	ElapsedMS   int64      `json:"elapsed_ms"`
	Error       *string    `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PlanStep represents one pool of the winning plan, in execution order
type PlanStep struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Position  int       `json:"position"`
	Actions   string    `json:"actions"` // JSON array of action names
	MustMask  string    `json:"must_mask"`
	ThenMask  string    `json:"then_mask"`
	CreatedAt time.Time `json:"created_at"`
}

// RunOutcome carries the terminal fields written when a solve run finishes
type RunOutcome struct {
	Status     RunStatus
	PlanLength int
	Tried      int
	Skipped    int
	Explored   int
	Expansions int
	GoalTests  int
	NewNodes   int
	ElapsedMS  int64
	Error      *string
}

// NewSolveRun creates a SolveRun in the running state with a fresh ID
func NewSolveRun(domain, startMask, goalMask string) *SolveRun {
	now := time.Now().UTC()
	return &SolveRun{
		ID:        uuid.NewString(),
		Domain:    domain,
		StartMask: startMask,
		GoalMask:  goalMask,
		Status:    RunStatusRunning,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Store defines the interface for the run-history persistence layer
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	// SolveRun operations
	CreateRun(ctx context.Context, run *SolveRun) error
	GetRun(ctx context.Context, id string) (*SolveRun, error)
	FinishRun(ctx context.Context, id string, outcome RunOutcome) error
	ListRuns(ctx context.Context, limit, offset int) ([]*SolveRun, error)
	ListRunsByDomain(ctx context.Context, domain string, limit, offset int) ([]*SolveRun, error)
	DeleteRun(ctx context.Context, id string) error

	// PlanStep operations
	CreatePlanSteps(ctx context.Context, runID string, steps []*PlanStep) error
	ListPlanSteps(ctx context.Context, runID string) ([]*PlanStep, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
