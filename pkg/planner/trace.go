package planner

import (
	"fmt"
	"strings"
	"time"

	"github.com/openplan/openplan/pkg/bitstate"
)

// Stats summarizes one search: how many sequences were popped, skipped as
// already seen, and explored, plus expansion and goal-test counters and
// wall time.
type Stats struct {
	// Tried is the total number of frontier pops.
	Tried int

	// Skipped counts pops discarded because their must bitmask was seen.
	Skipped int

	// Explored counts sequences that reached the goal test.
	Explored int

	// Expansions counts calls to the pool expansion step.
	Expansions int

	// GoalTests counts goal tests performed.
	GoalTests int

	// NewNodes counts candidate sequences produced by expansion.
	NewNodes int

	// Elapsed is the wall time of the search.
	Elapsed time.Duration
}

// TraceEvent is one entry in a search trace.
type TraceEvent interface {
	fmt.Stringer
}

// SkippedEvent records a sequence discarded because its must bitmask had
// already been seen.
type SkippedEvent struct {
	Sequence *ActionSequence
	Score    Score
}

// String implements fmt.Stringer.
func (e SkippedEvent) String() string {
	return fmt.Sprintf("Skipped because must=%s has been seen: %v",
		e.Sequence.Must().MaskString(), e.Sequence)
}

// AttemptEvent records a sequence selected for the goal test and possible
// expansion.
type AttemptEvent struct {
	Sequence     *ActionSequence
	Score        Score
	Alternatives int
}

// String implements fmt.Stringer.
func (e AttemptEvent) String() string {
	return fmt.Sprintf("Attempted sequence of %d alternatives: (score %v) %v",
		e.Alternatives, e.Score, e.Sequence)
}

// NoAccomplishmentsEvent records a sequence whose requirements no action
// can accomplish.
type NoAccomplishmentsEvent struct {
	Sequence *ActionSequence
}

// String implements fmt.Stringer.
func (e NoAccomplishmentsEvent) String() string {
	return fmt.Sprintf("No actions can accomplish the prerequisite %s from: %v",
		e.Sequence.Must().MaskString(), e.Sequence)
}

// SolutionEvent records the sequence returned as the plan.
type SolutionEvent struct {
	Sequence  *ActionSequence
	Remaining int
	Explored  int
}

// String implements fmt.Stringer.
func (e SolutionEvent) String() string {
	return fmt.Sprintf("Found solution with %d alternatives unexplored: %v",
		e.Remaining, e.Sequence)
}

// NoSolutionEvent records that the frontier emptied without a plan.
type NoSolutionEvent struct{}

// String implements fmt.Stringer.
func (e NoSolutionEvent) String() string {
	return "Found no solution"
}

// Trace describes how a search ran: counters plus an ordered activity log
// the caller may render. Event recording can be disabled for long searches
// while keeping the counters.
type Trace struct {
	// Stats holds the search counters.
	Stats Stats

	// Events is the ordered activity log; empty when recording is off.
	Events []TraceEvent

	start     bitstate.BitState
	goal      bitstate.BitState
	began     time.Time
	recording bool
}

func newTrace(start, goal bitstate.BitState, recordEvents bool) *Trace {
	return &Trace{
		start:     start,
		goal:      goal,
		began:     time.Now(),
		recording: recordEvents,
	}
}

func (t *Trace) add(event TraceEvent) {
	if t.recording {
		t.Events = append(t.Events, event)
	}
}

func (t *Trace) finish() {
	t.Stats.Elapsed = time.Since(t.began)
}

// String renders the trace in the planner's log format: the counters
// followed by the start and goal states and the recorded activity.
func (t *Trace) String() string {
	lines := []string{
		"Problem solution log:",
		fmt.Sprintf("  Tried %d sequences, skipped %d, explored %d",
			t.Stats.Tried, t.Stats.Skipped, t.Stats.Explored),
		fmt.Sprintf("  Took %.5f seconds", t.Stats.Elapsed.Seconds()),
		fmt.Sprintf("  Expansions: %d Goal tests: %d New nodes: %d",
			t.Stats.Expansions, t.Stats.GoalTests, t.Stats.NewNodes),
		fmt.Sprintf("  Starting state: %s", t.start.MaskString()),
		fmt.Sprintf("  Goal state:     %s", t.goal.MaskString()),
	}
	for _, event := range t.Events {
		lines = append(lines, "    "+event.String())
	}
	return strings.Join(lines, "\n")
}

// Summary renders only the counter lines of the trace.
func (t *Trace) Summary() string {
	lines := []string{
		"Problem solution log:",
		fmt.Sprintf("  Tried %d sequences, skipped %d, explored %d",
			t.Stats.Tried, t.Stats.Skipped, t.Stats.Explored),
		fmt.Sprintf("  Took %.5f seconds", t.Stats.Elapsed.Seconds()),
		fmt.Sprintf("  Expansions: %d Goal tests: %d New nodes: %d",
			t.Stats.Expansions, t.Stats.GoalTests, t.Stats.NewNodes),
	}
	return strings.Join(lines, "\n")
}
