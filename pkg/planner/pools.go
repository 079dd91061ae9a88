package planner

import (
	"fmt"
	"strings"

	"github.com/openplan/openplan/pkg/bitstate"
)

// Pool is one step of a candidate plan: a set of simultaneously-applicable
// actions with aggregate precondition and effect bitmasks. ActionPool and
// GoalPool implement it.
type Pool interface {
	// MustBits is the aggregate precondition bitmask of the step.
	MustBits() bitstate.BitState

	// ThenBits is the aggregate effect bitmask of the step.
	ThenBits() bitstate.BitState

	// Actions returns the member actions; empty for a GoalPool.
	Actions() []*Action
}

// ActionPool is an unordered set of actions, no two of which are mutex,
// that can occur simultaneously (or at least in any order).
type ActionPool struct {
	actions []*Action
	must    bitstate.BitState
	then    bitstate.BitState
}

// NewActionPool builds a pool from the given actions. Construction fails
// if any two members are the same action, are mutex, or conflict when
// their bitmasks are merged.
func NewActionPool(actions []*Action) (*ActionPool, error) {
	musts := make([]bitstate.BitState, 0, len(actions))
	thens := make([]bitstate.BitState, 0, len(actions))
	for i, a := range actions {
		for _, other := range actions[i+1:] {
			if a == other {
				return nil, newAssemblyError(
					fmt.Sprintf("action %s appears twice in a pool", a.Name), nil)
			}
			if a.IsMutex(other) || other.IsMutex(a) {
				return nil, newAssemblyError(
					fmt.Sprintf("actions %s and %s are mutex", a.Name, other.Name), nil)
			}
		}
		musts = append(musts, a.Must)
		thens = append(thens, a.Then)
	}
	must, err := bitstate.AllUnion(musts)
	if err != nil {
		return nil, newAssemblyError("pool preconditions conflict", err)
	}
	then, err := bitstate.AllUnion(thens)
	if err != nil {
		return nil, newAssemblyError("pool effects conflict", err)
	}
	return &ActionPool{
		actions: append([]*Action(nil), actions...),
		must:    must,
		then:    then,
	}, nil
}

// MustBits implements Pool.
func (p *ActionPool) MustBits() bitstate.BitState { return p.must }

// ThenBits implements Pool.
func (p *ActionPool) ThenBits() bitstate.BitState { return p.then }

// Actions implements Pool.
func (p *ActionPool) Actions() []*Action { return p.actions }

// Contains reports whether the pool holds the given action.
func (p *ActionPool) Contains(action *Action) bool {
	for _, a := range p.actions {
		if a == action {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (p *ActionPool) String() string {
	names := make([]string, len(p.actions))
	for i, a := range p.actions {
		names[i] = a.Name
	}
	return fmt.Sprintf("<ActionPool %s>", strings.Join(names, " "))
}

// GoalPool stands in for "no action, just require these bits". It is the
// sentinel final element of every ActionSequence: its preconditions are
// the goal and it has no effects.
type GoalPool struct {
	goal bitstate.BitState
}

// NewGoalPool wraps a goal BitState as a Pool.
func NewGoalPool(goal bitstate.BitState) *GoalPool {
	return &GoalPool{goal: goal}
}

// MustBits implements Pool.
func (g *GoalPool) MustBits() bitstate.BitState { return g.goal }

// ThenBits implements Pool.
func (g *GoalPool) ThenBits() bitstate.BitState { return bitstate.Null(g.goal.Width()) }

// Actions implements Pool.
func (g *GoalPool) Actions() []*Action { return nil }

// String implements fmt.Stringer.
func (g *GoalPool) String() string {
	return fmt.Sprintf("<Goal %s>", g.goal.MaskString())
}

// ActionSequence is an ordered list of pools forming a candidate plan;
// index 0 is applied first and the last pool is typically a GoalPool.
//
// The aggregate must bitmask is the net set of precondition bits the true
// start state has to supply, computed by scanning pools in reverse and
// subtracting bits that later pools establish themselves. The aggregate
// then bitmask is the net resulting state, computed by scanning forward
// with the carry-forward rule.
type ActionSequence struct {
	pools []Pool
	must  bitstate.BitState
	then  bitstate.BitState
	null  bitstate.BitState
}

// NewActionSequence builds a sequence from ordered pools. null must be the
// owning domain's null BitState. Construction fails if any pool's effects
// or preconditions conflict with the requirements accumulated around it.
func NewActionSequence(pools []Pool, null bitstate.BitState) (*ActionSequence, error) {
	seq := &ActionSequence{
		pools: append([]Pool(nil), pools...),
		must:  null,
		then:  null,
		null:  null,
	}
	for i := len(pools) - 1; i >= 0; i-- {
		pool := pools[i]
		if pool.ThenBits().Conflicts(seq.must) {
			return nil, newAssemblyError(
				fmt.Sprintf("pool %v effects conflict with later requirements %s", pool, seq.must.MaskString()), nil)
		}
		current := seq.must.ExceptSatisfiedBy(pool.ThenBits())
		if pool.MustBits().Conflicts(current) {
			return nil, newAssemblyError(
				fmt.Sprintf("pool %v preconditions conflict with later requirements %s", pool, current.MaskString()), nil)
		}
		must, err := pool.MustBits().Union(current)
		if err != nil {
			return nil, newAssemblyError("sequence preconditions conflict", err)
		}
		seq.must = must
	}
	for _, pool := range pools {
		if pool.MustBits().Conflicts(seq.then) {
			return nil, newAssemblyError(
				fmt.Sprintf("pool %v preconditions conflict with accumulated effects %s", pool, seq.then.MaskString()), nil)
		}
		seq.then = pool.ThenBits().CarryForward(seq.then)
	}
	return seq, nil
}

// WithPrepend returns a new sequence with the pool applied before every
// existing pool.
func (s *ActionSequence) WithPrepend(pool Pool) (*ActionSequence, error) {
	pools := make([]Pool, 0, len(s.pools)+1)
	pools = append(pools, pool)
	pools = append(pools, s.pools...)
	return NewActionSequence(pools, s.null)
}

// Must returns the sequence's aggregate precondition bitmask.
func (s *ActionSequence) Must() bitstate.BitState { return s.must }

// Then returns the sequence's aggregate effect bitmask.
func (s *ActionSequence) Then() bitstate.BitState { return s.then }

// Pools returns the ordered pools of the sequence.
func (s *ActionSequence) Pools() []Pool { return s.pools }

// ActionCount returns the total number of actions across all pools.
func (s *ActionSequence) ActionCount() int {
	count := 0
	for _, pool := range s.pools {
		count += len(pool.Actions())
	}
	return count
}

// Contains reports whether any pool of the sequence holds the action.
func (s *ActionSequence) Contains(action *Action) bool {
	for _, pool := range s.pools {
		for _, a := range pool.Actions() {
			if a == action {
				return true
			}
		}
	}
	return false
}

// String implements fmt.Stringer.
func (s *ActionSequence) String() string {
	steps := make([]string, len(s.pools))
	for i, pool := range s.pools {
		if len(pool.Actions()) == 0 {
			steps[i] = "Goal"
			continue
		}
		names := make([]string, len(pool.Actions()))
		for j, a := range pool.Actions() {
			names[j] = a.Name
		}
		steps[i] = strings.Join(names, " ")
	}
	return fmt.Sprintf("<ActionSequence %s>", strings.Join(steps, ": "))
}

// Describe renders the sequence with its aggregate bitmasks, one pool per
// line.
func (s *ActionSequence) Describe() string {
	lines := []string{
		"Sequence:",
		fmt.Sprintf("  must: %s", s.must.MaskString()),
		fmt.Sprintf("  then: %s", s.then.MaskString()),
		"  sequence:",
	}
	for _, pool := range s.pools {
		lines = append(lines, fmt.Sprintf("    %v", pool))
	}
	return strings.Join(lines, "\n")
}

// Score is the 4-tuple search heuristic, minimized lexicographically.
type Score struct {
	// Remaining counts goal bits the candidate's effects leave unsatisfied.
	Remaining int

	// Union is the size of the union of the remaining goal and the
	// candidate's aggregate preconditions, a proxy for outstanding work.
	Union int

	// StartDistance counts bits where the true start state disagrees with
	// that union; zero when no start state is supplied.
	StartDistance int

	// ActionCount is the total number of actions in the sequence, the
	// final tie-breaker preferring shorter plans.
	ActionCount int
}

// Less reports whether s orders strictly before other.
func (s Score) Less(other Score) bool {
	if s.Remaining != other.Remaining {
		return s.Remaining < other.Remaining
	}
	if s.Union != other.Union {
		return s.Union < other.Union
	}
	if s.StartDistance != other.StartDistance {
		return s.StartDistance < other.StartDistance
	}
	return s.ActionCount < other.ActionCount
}

// String implements fmt.Stringer.
func (s Score) String() string {
	return fmt.Sprintf("(%d, %d, %d, %d)", s.Remaining, s.Union, s.StartDistance, s.ActionCount)
}

// ScoreSequence scores a candidate sequence against a goal and start
// state. Pass a null start state when none is known yet.
func (d *Domain) ScoreSequence(seq *ActionSequence, goal, start bitstate.BitState) (Score, error) {
	remaining, err := goal.UnsetFromAction(seq.Then())
	if err != nil {
		return Score{}, newAssemblyError("sequence effects conflict with goal", err)
	}
	union, err := bitstate.AllUnion([]bitstate.BitState{remaining, seq.Must()})
	if err != nil {
		return Score{}, newAssemblyError("remaining goal conflicts with sequence preconditions", err)
	}
	startDistance := 0
	if !start.IsNull() {
		startDistance = start.Difference(union).CountSet()
	}
	return Score{
		Remaining:     remaining.CountSet(),
		Union:         union.CountSet(),
		StartDistance: startDistance,
		ActionCount:   seq.ActionCount(),
	}, nil
}
