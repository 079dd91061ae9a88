package planner

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/openplan/openplan/pkg/bitstate"
)

// perturbEvery controls the deterministic frontier perturbation: once at
// least one duplicate has been skipped, every perturbEvery-th iteration
// pops the middle of the frontier instead of the best element, to step out
// of pure best-first stalls without randomness.
const perturbEvery = 5

// Observer is a hook the search loop invokes once per iteration with the
// sequence just selected and the frontier size after selection. It is for
// observability only and must not mutate the sequence.
type Observer func(iteration int, selected *ActionSequence, frontierSize int)

// Problem is one search invocation: a compiled domain, a complete start
// state, and a goal. The frontier and seen-set live inside Solve, so a
// Problem value may be discarded after use; the domain itself is shared
// read-only.
type Problem struct {
	// Domain is the compiled domain searched over.
	Domain *Domain

	// Start is the complete start state.
	Start bitstate.BitState

	// Goal is the goal bitmask.
	Goal bitstate.BitState

	// Observer, when set, is invoked after each frontier selection.
	Observer Observer

	// Logger, when set, receives per-iteration debug logging.
	Logger *zerolog.Logger

	// RecordEvents controls whether the trace keeps the full activity log
	// in addition to counters.
	RecordEvents bool
}

// Problem builds a Problem from start and goal state specs. The start
// description must determine every state after constraint propagation.
func (d *Domain) Problem(start, goal []string) (*Problem, error) {
	startState, err := d.CreateStartState(start, false)
	if err != nil {
		return nil, err
	}
	goalState, err := d.Goal(goal)
	if err != nil {
		return nil, err
	}
	return &Problem{Domain: d, Start: startState, Goal: goalState}, nil
}

// Result is the outcome of a completed (non-aborted) search.
type Result struct {
	// Solved reports whether a plan was found.
	Solved bool

	// Sequence is the plan; nil when Solved is false.
	Sequence *ActionSequence

	// Trace describes how the search ran.
	Trace *Trace
}

// frontierEntry pairs a candidate sequence with its score.
type frontierEntry struct {
	seq   *ActionSequence
	score Score
}

// Solve runs best-first backward-chaining search from the goal toward the
// start state. It returns a Result with Solved false when the frontier
// empties without a plan; that is a normal negative outcome, distinct from
// an aborted search, which returns the cancellation cause as an error.
//
// The search is deterministic: two invocations over the same domain, start
// and goal select and expand identical sequences.
func (p *Problem) Solve(ctx context.Context) (*Result, error) {
	logger := zerolog.Nop()
	if p.Logger != nil {
		logger = *p.Logger
	}

	trace := newTrace(p.Start, p.Goal, p.RecordEvents)
	seen := make(map[bitstate.BitState]struct{})

	blank, err := NewActionSequence([]Pool{NewGoalPool(p.Goal)}, p.Domain.Null())
	if err != nil {
		return nil, err
	}
	blankScore, err := p.Domain.ScoreSequence(blank, p.Goal, p.Start)
	if err != nil {
		return nil, err
	}
	frontier := []frontierEntry{{seq: blank, score: blankScore}}

	iteration := 0
	for len(frontier) > 0 {
		if ctx.Err() != nil {
			trace.finish()
			logger.Warn().Int("iteration", iteration).Msg("search aborted")
			return nil, fmt.Errorf("solve aborted after %d iterations: %w",
				iteration, context.Cause(ctx))
		}
		iteration++
		trace.Stats.Tried++

		var entry frontierEntry
		if trace.Stats.Skipped > 0 && iteration%perturbEvery == 0 {
			mid := len(frontier) / 2
			entry = frontier[mid]
			frontier = append(frontier[:mid], frontier[mid+1:]...)
		} else {
			entry = frontier[0]
			frontier = frontier[1:]
		}

		if p.Observer != nil {
			p.Observer(iteration, entry.seq, len(frontier))
		}

		if _, dup := seen[entry.seq.Must()]; dup {
			trace.Stats.Skipped++
			trace.add(SkippedEvent{Sequence: entry.seq, Score: entry.score})
			logger.Debug().
				Int("iteration", iteration).
				Str("must", entry.seq.Must().MaskString()).
				Msg("skipping already-seen requirement")
			continue
		}
		seen[entry.seq.Must()] = struct{}{}

		trace.Stats.Explored++
		trace.add(AttemptEvent{Sequence: entry.seq, Score: entry.score, Alternatives: len(frontier)})
		logger.Debug().
			Int("iteration", iteration).
			Stringer("score", entry.score).
			Int("frontier", len(frontier)).
			Str("must", entry.seq.Must().MaskString()).
			Msg("exploring sequence")

		trace.Stats.GoalTests++
		if !p.Start.Conflicts(entry.seq.Must()) && entry.seq.Then().Satisfies(p.Goal) {
			trace.add(SolutionEvent{Sequence: entry.seq, Remaining: len(frontier), Explored: len(seen)})
			trace.finish()
			logger.Info().
				Int("iteration", iteration).
				Int("unexplored", len(frontier)).
				Stringer("plan", entry.seq).
				Msg("found solution")
			return &Result{Solved: true, Sequence: entry.seq, Trace: trace}, nil
		}

		pools, err := p.Domain.StrictAccomplishmentPools(entry.seq.Must())
		if err != nil {
			return nil, err
		}
		trace.Stats.Expansions++
		trace.Stats.NewNodes += len(pools)
		if len(pools) == 0 {
			trace.add(NoAccomplishmentsEvent{Sequence: entry.seq})
		}
		for _, pool := range pools {
			next, err := entry.seq.WithPrepend(pool)
			if err != nil {
				return nil, err
			}
			if _, dup := seen[next.Must()]; dup {
				continue
			}
			score, err := p.Domain.ScoreSequence(next, p.Goal, p.Start)
			if err != nil {
				return nil, err
			}
			frontier = append(frontier, frontierEntry{seq: next, score: score})
		}
		sort.SliceStable(frontier, func(i, j int) bool {
			return frontier[i].score.Less(frontier[j].score)
		})
	}

	trace.add(NoSolutionEvent{})
	trace.finish()
	logger.Info().Int("iterations", iteration).Msg("search space exhausted without solution")
	return &Result{Solved: false, Trace: trace}, nil
}
