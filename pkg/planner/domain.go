package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openplan/openplan/pkg/bitstate"
)

// NotPrefix is the literal prefix marking a negated state name in raw
// entity lists. It is the only polarity signal crossing the boundary from
// the domain-description layer and must be preserved exactly.
const NotPrefix = "not "

// splitPolarity strips an optional NotPrefix from a state name, returning
// the bare name and the truth value it denotes.
func splitPolarity(name string) (string, bool) {
	if strings.HasPrefix(name, NotPrefix) {
		return name[len(NotPrefix):], false
	}
	return name, true
}

// RawConstraint is a constraint as produced by the domain-description
// layer: a trigger state name and the state names it implies, each with an
// optional "not " prefix.
type RawConstraint struct {
	Trigger string
	Implies []string
}

// RawAction is an action as produced by the domain-description layer.
type RawAction struct {
	Name string
	Must []string
	Then []string
}

// Definition is the raw input to Compile: three ordered lists of named
// entities. States may be empty, in which case the state set is inferred
// from the names mentioned by the actions.
type Definition struct {
	Name        string
	States      []string
	Constraints []RawConstraint
	Actions     []RawAction
}

// State is one atomic true/false reflection of the planning world, bound
// to a bit position during compilation. States are created once by Compile
// and never mutated.
type State struct {
	// Name identifies the state; unique within its domain.
	Name string

	// Bit is the power-of-two bit position assigned to this state.
	Bit uint64

	// BitMask is a single-position BitState with this state's bit true.
	BitMask bitstate.BitState
}

// Constraint states that whenever its trigger holds at its written
// polarity, every implied state must hold at its written polarity.
// Constraints are read-only after compilation.
type Constraint struct {
	// Trigger is the state name (with optional "not " prefix) that
	// activates the constraint.
	Trigger string

	// Implies lists the state names (with optional "not " prefixes) forced
	// by the trigger, in declaration order.
	Implies []string
}

// String implements fmt.Stringer.
func (c *Constraint) String() string {
	return fmt.Sprintf("[%s => %s]", c.Trigger, strings.Join(c.Implies, " & "))
}

// Action is a compiled action: a precondition bitmask, an effect bitmask,
// and the set of actions it cannot be pooled with. Must and Then have had
// constraint propagation applied; Then additionally carries forward any
// precondition bits its effects leave untouched.
type Action struct {
	// Name identifies the action; unique within its domain.
	Name string

	// RawMust and RawThen are the name lists the action was compiled from.
	RawMust []string
	RawThen []string

	// Must is the precondition bitmask.
	Must bitstate.BitState

	// Then is the effect bitmask.
	Then bitstate.BitState

	mutex map[*Action]struct{}
}

// IsMutex reports whether this action cannot occur in the same pool as
// other. Mutex is symmetric and computed once during compilation.
func (a *Action) IsMutex(other *Action) bool {
	_, ok := a.mutex[other]
	return ok
}

// MutexNames returns the sorted names of the actions this action is mutex
// with.
func (a *Action) MutexNames() []string {
	names := make([]string, 0, len(a.mutex))
	for other := range a.mutex {
		names = append(names, other.Name)
	}
	sort.Strings(names)
	return names
}

// String implements fmt.Stringer.
func (a *Action) String() string {
	return fmt.Sprintf("<Action %s>", a.Name)
}

// conflictsWith reports whether two actions conflict in any of the four
// symmetric must/then pairings.
func (a *Action) conflictsWith(other *Action) bool {
	if a.Must.Conflicts(other.Must) {
		return true
	}
	if a.Then.Conflicts(other.Then) {
		return true
	}
	if a.Must.Conflicts(other.Then) {
		return true
	}
	return a.Then.Conflicts(other.Must)
}

// Domain is a compiled problem domain. Domains are immutable after Compile
// and safe for concurrent read-only sharing between searches.
type Domain struct {
	// Name labels the domain for logs and rendering.
	Name string

	// States are the domain's states in bit-position order.
	States []*State

	// Constraints are the implication constraints in declaration order.
	Constraints []*Constraint

	// Actions are the compiled actions, sorted by name.
	Actions []*Action

	stateBits map[string]uint64
	width     int
	null      bitstate.BitState
}

// Compile turns raw entity lists into a bit-indexed domain. Bit positions
// are assigned by sorting all state names lexicographically and assigning
// 1<<index in order; this ordering is load-bearing for determinism.
func Compile(def Definition) (*Domain, error) {
	stateNames := append([]string(nil), def.States...)
	if len(stateNames) == 0 {
		// No explicit states: infer them from every name the actions
		// mention, stripping negation.
		mentioned := make(map[string]struct{})
		for _, raw := range def.Actions {
			for _, name := range raw.Must {
				bare, _ := splitPolarity(name)
				mentioned[bare] = struct{}{}
			}
			for _, name := range raw.Then {
				bare, _ := splitPolarity(name)
				mentioned[bare] = struct{}{}
			}
		}
		for name := range mentioned {
			stateNames = append(stateNames, name)
		}
	}
	sort.Strings(stateNames)

	width := len(stateNames)
	if width > bitstate.MaxWidth {
		return nil, newAssemblyError(
			fmt.Sprintf("domain has %d states; at most %d are supported", width, bitstate.MaxWidth), nil)
	}

	d := &Domain{
		Name:      def.Name,
		stateBits: make(map[string]uint64, width),
		width:     width,
		null:      bitstate.Null(width),
	}
	for i, name := range stateNames {
		if _, dup := d.stateBits[name]; dup {
			return nil, newAssemblyError(fmt.Sprintf("duplicate state name: %s", name), nil)
		}
		bit := uint64(1) << uint(i)
		d.stateBits[name] = bit
		d.States = append(d.States, &State{
			Name:    name,
			Bit:     bit,
			BitMask: d.null.ForceAdd(bit, true),
		})
	}

	for _, raw := range def.Constraints {
		d.Constraints = append(d.Constraints, &Constraint{
			Trigger: raw.Trigger,
			Implies: append([]string(nil), raw.Implies...),
		})
	}

	for _, raw := range def.Actions {
		d.Actions = append(d.Actions, &Action{
			Name:    raw.Name,
			RawMust: append([]string(nil), raw.Must...),
			RawThen: append([]string(nil), raw.Then...),
		})
	}
	sort.Slice(d.Actions, func(i, j int) bool { return d.Actions[i].Name < d.Actions[j].Name })

	for i := range d.Actions {
		if err := d.compileAction(d.Actions[i]); err != nil {
			return nil, err
		}
	}

	for _, action := range d.Actions {
		action.mutex = make(map[*Action]struct{})
		for _, other := range d.Actions {
			if other == action {
				continue
			}
			if action.conflictsWith(other) {
				action.mutex[other] = struct{}{}
			}
		}
	}

	return d, nil
}

// compileAction fills in an action's must/then bitmasks from its raw name
// lists, applying constraint propagation and the carry-forward rule.
func (d *Domain) compileAction(action *Action) error {
	must := d.null
	for _, name := range action.RawMust {
		next, err := d.addNamed(must, name)
		if err != nil {
			return err
		}
		must = next
	}
	must, err := d.applyConstraintsFor(must, action)
	if err != nil {
		return err
	}
	action.Must = must

	then := d.null
	for _, name := range action.RawThen {
		next, err := d.addNamed(then, name)
		if err != nil {
			return err
		}
		then = next
	}
	then, err = d.applyConstraintsFor(then, action)
	if err != nil {
		return err
	}
	action.Then = then.CarryForward(must)
	return nil
}

// addNamed sets the bit for a (possibly negated) state name on a BitState.
func (d *Domain) addNamed(b bitstate.BitState, name string) (bitstate.BitState, error) {
	bare, value := splitPolarity(name)
	bit, ok := d.stateBits[bare]
	if !ok {
		return bitstate.BitState{}, newUnknownStateError(bare)
	}
	next, err := b.Add(bit, value)
	if err != nil {
		return bitstate.BitState{}, newAssemblyError(
			fmt.Sprintf("conflicting assignment of state %s", bare), err)
	}
	return next, nil
}

// ApplyConstraints applies the domain's constraints to a state in a single
// forward pass in declaration order. A constraint whose trigger only
// becomes known through a later constraint's implication is not
// re-evaluated; the pass order is part of the compilation semantics.
func (d *Domain) ApplyConstraints(state bitstate.BitState) (bitstate.BitState, error) {
	return d.applyConstraintsFor(state, nil)
}

// applyConstraintsFor is ApplyConstraints with the action being compiled,
// if any, threaded through for error context.
func (d *Domain) applyConstraintsFor(state bitstate.BitState, action *Action) (bitstate.BitState, error) {
	for _, constraint := range d.Constraints {
		trigger, value := splitPolarity(constraint.Trigger)
		bit, ok := d.stateBits[trigger]
		if !ok {
			return bitstate.BitState{}, newUnknownStateError(trigger)
		}
		if !state.KnownAndMatches(bit, value) {
			continue
		}
		for _, implied := range constraint.Implies {
			impliedName, impliedValue := splitPolarity(implied)
			impliedBit, ok := d.stateBits[impliedName]
			if !ok {
				return bitstate.BitState{}, newUnknownStateError(impliedName)
			}
			next, err := state.Add(impliedBit, impliedValue)
			if err != nil {
				return bitstate.BitState{}, newConstraintsError(constraint, state, impliedName, action, err)
			}
			state = next
		}
	}
	return state, nil
}

// Width returns the number of states in the domain.
func (d *Domain) Width() int { return d.width }

// Null returns a fully-unknown BitState of the domain's width.
func (d *Domain) Null() bitstate.BitState { return d.null }

// StateBit returns the bit position for a state name.
func (d *Domain) StateBit(name string) (uint64, error) {
	bit, ok := d.stateBits[name]
	if !ok {
		return 0, newUnknownStateError(name)
	}
	return bit, nil
}

// ActionByName returns the action with the given name.
func (d *Domain) ActionByName(name string) (*Action, error) {
	for _, action := range d.Actions {
		if action.Name == name {
			return action, nil
		}
	}
	return nil, newUnknownActionError(name)
}

// ParseStateLines splits a newline-separated state description into the
// individual state specs, dropping blank lines and '#' comments.
func ParseStateLines(text string) []string {
	var specs []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		specs = append(specs, line)
	}
	return specs
}

// DefaultFalseSpec is the pseudo state spec that, when present in a start
// description, sets every unmentioned state to false.
const DefaultFalseSpec = "default_false"

// parseStateSpecs builds a BitState from state specs ("name" or
// "not name"). Setting the same state twice is an assembly error. The
// returned flag reports whether the DefaultFalseSpec option was present.
func (d *Domain) parseStateSpecs(specs []string) (bitstate.BitState, bool, error) {
	state := d.null
	defaultFalse := false
	for _, spec := range specs {
		if spec == DefaultFalseSpec {
			defaultFalse = true
			continue
		}
		bare, value := splitPolarity(spec)
		bit, ok := d.stateBits[bare]
		if !ok {
			return bitstate.BitState{}, false, newUnknownStateError(bare)
		}
		if state.IsSet(bit) {
			return bitstate.BitState{}, false, newAssemblyError(
				fmt.Sprintf("tried to set state twice: %s", bare), nil)
		}
		state = state.ForceAdd(bit, value)
	}
	return state, defaultFalse, nil
}

// Goal builds a goal BitState from state specs. Goals may leave states
// unknown.
func (d *Domain) Goal(specs []string) (bitstate.BitState, error) {
	goal, _, err := d.parseStateSpecs(specs)
	return goal, err
}

// CreateStartState builds a complete start state from state specs.
// Constraints are applied to fill out implied states. If defaultFalse is
// true, or the description contains the "default_false" spec, every
// unmentioned state is set to false. A start state that leaves any state
// unknown is an assembly error.
func (d *Domain) CreateStartState(specs []string, defaultFalse bool) (bitstate.BitState, error) {
	state, optDefaultFalse, err := d.parseStateSpecs(specs)
	if err != nil {
		return bitstate.BitState{}, err
	}
	state, err = d.ApplyConstraints(state)
	if err != nil {
		return bitstate.BitState{}, err
	}
	if defaultFalse || optDefaultFalse {
		for _, s := range d.States {
			if !state.IsSet(s.Bit) {
				state = state.ForceAdd(s.Bit, false)
			}
		}
	}
	if !state.AllSet() {
		var missing []string
		for _, s := range d.States {
			if !state.IsSet(s.Bit) {
				missing = append(missing, s.Name)
			}
		}
		return bitstate.BitState{}, newAssemblyError(
			fmt.Sprintf("start state %s leaves states unknown: %s",
				state.MaskString(), strings.Join(missing, "; ")), nil)
	}
	return state, nil
}

// StrictAccomplishmentActions returns the actions whose effects do not
// conflict with the goal, whose effects beyond their own preconditions
// accomplish at least one goal bit, and whose preconditions, after
// notionally undoing the action's own effects, still do not conflict with
// the goal.
func (d *Domain) StrictAccomplishmentActions(goal bitstate.BitState) []*Action {
	var actions []*Action
	for _, action := range d.Actions {
		if action.Then.Conflicts(goal) {
			continue
		}
		important := action.Then.WithoutMatching(action.Must)
		if !important.AccomplishesSomething(goal) {
			continue
		}
		if action.Must.ForceUnsetFromAction(action.Then).Conflicts(goal) {
			continue
		}
		actions = append(actions, action)
	}
	return actions
}

// StrictAccomplishmentPools enumerates every ActionPool formable from the
// strict-accomplishment candidates such that no two members are mutex and
// each member still accomplishes something toward the goal remaining after
// the members chosen before it. All valid non-empty subsets are produced,
// not only maximal ones; the enumeration is deliberately exponential in
// the candidate count since any subset may win once scored.
func (d *Domain) StrictAccomplishmentPools(goal bitstate.BitState) ([]*ActionPool, error) {
	if goal.IsNull() {
		return nil, newAssemblyError("cannot build pools for a null goal", nil)
	}
	candidates := d.StrictAccomplishmentActions(goal)

	// Depth-first over include/exclude choices with an explicit stack,
	// preserving the order a binary-recursive enumeration would produce:
	// at each candidate the include branch is explored fully before the
	// exclude branch.
	type frame struct {
		included  []*Action
		index     int
		remaining bitstate.BitState
	}
	var pools []*ActionPool
	stack := []frame{{included: nil, index: 0, remaining: goal}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.index >= len(candidates) {
			continue
		}
		next := candidates[top.index]

		// Exclude branch, pushed first so the include branch is popped
		// and explored first.
		stack = append(stack, frame{
			included:  top.included,
			index:     top.index + 1,
			remaining: top.remaining,
		})

		mutex := false
		for _, included := range top.included {
			if included.IsMutex(next) {
				mutex = true
				break
			}
		}
		if mutex || !next.Then.AccomplishesSomething(top.remaining) {
			continue
		}

		nextRemaining, err := top.remaining.UnsetFromAction(next.Then)
		if err != nil {
			return nil, newAssemblyError("pool candidate conflicts with remaining goal", err)
		}
		included := make([]*Action, len(top.included)+1)
		copy(included, top.included)
		included[len(top.included)] = next

		pool, err := NewActionPool(included)
		if err != nil {
			return nil, err
		}
		pools = append(pools, pool)
		stack = append(stack, frame{
			included:  included,
			index:     top.index + 1,
			remaining: nextRemaining,
		})
	}
	return pools, nil
}

// Describe renders the domain in a human-readable form. With bits, each
// state and action is annotated with its bitmask string; with mutex, each
// action lists the actions it is mutex with.
func (d *Domain) Describe(bits, mutex bool) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Domain %s", d.Name))
	lines = append(lines, "States:")
	if !bits {
		current := "  "
		for _, s := range d.States {
			if len(current)+len(s.Name) < 78 {
				if strings.TrimSpace(current) != "" {
					current += "; "
				}
				current += s.Name
			} else {
				lines = append(lines, current)
				current = "  " + s.Name
			}
		}
		lines = append(lines, current)
	} else {
		for _, s := range d.States {
			lines = append(lines, fmt.Sprintf("  %s %s", s.BitMask.MaskString(), s.Name))
		}
	}
	lines = append(lines, "Actions:")
	for _, action := range d.Actions {
		lines = append(lines, fmt.Sprintf("  %s:", action.Name))
		lines = append(lines, fmt.Sprintf("    must: %s", strings.Join(action.RawMust, "; ")))
		if bits {
			lines = append(lines, fmt.Sprintf("      %s", action.Must.MaskString()))
		}
		lines = append(lines, fmt.Sprintf("    then: %s", strings.Join(action.RawThen, "; ")))
		if bits {
			lines = append(lines, fmt.Sprintf("      %s", action.Then.MaskString()))
			lines = append(lines, fmt.Sprintf("      %s", action.Then.WithoutMatching(action.Must).MaskString()))
		}
		if mutex {
			lines = append(lines, fmt.Sprintf("    mutex: %s", strings.Join(action.MutexNames(), "; ")))
		}
	}
	return strings.Join(lines, "\n")
}
