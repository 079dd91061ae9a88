// Package planner implements a STRIPS-style propositional action planner
// over ternary bit states.
//
// # Overview
//
// A planning problem is described by named boolean world-states, actions
// with preconditions and effects, and implication constraints between
// states. The planner compiles that description into a bit-level form and
// searches backward from the goal for an ordered sequence of (possibly
// parallel, mutually non-conflicting) actions that transforms a start
// state into one satisfying the goal.
//
// The workflow is:
//
//  1. Compile - Bind raw name-based entity lists to bit positions,
//     propagate constraints, and compute pairwise action mutex (Compile)
//  2. Problem - Pair the compiled domain with a start state and goal
//     (Domain.Problem)
//  3. Solve - Run best-first backward-chaining search (Problem.Solve)
//
// # Core Domain Types
//
//   - State: a named world-state bound to a power-of-two bit position
//   - Constraint: "if trigger holds, these implications hold"
//   - Action: precondition (must) and effect (then) bitmasks plus a
//     computed mutex set
//   - ActionPool: simultaneously-applicable, mutually non-mutex actions
//   - ActionSequence: ordered pools ending in a GoalPool sentinel
//   - Problem / Result: one search invocation and its outcome
//
// Bit positions are assigned by sorting all state names lexicographically
// and assigning 1<<index in order. This ordering is load-bearing: it makes
// compilation and search deterministic, and the mask-string serialization
// (see package bitstate) depends on it.
//
// # Constraint Propagation
//
// ApplyConstraints is a single forward pass in declaration order, not a
// fixpoint. A constraint whose trigger only becomes known through a later
// constraint's implication is not re-evaluated. Changing this would change
// which domains compile, so the pass-order semantics are part of the
// contract.
//
// # Search
//
// Solve keeps a frontier of scored candidate sequences and a seen-set of
// aggregate precondition bitmasks. Sequences requiring an already-seen
// residual goal are equivalent for future expansion and are discarded.
// The search is sound but incomplete: abandoned signatures are never
// re-expanded, and termination is guaranteed only by the finite signature
// space combined with memoization.
//
// A search that exhausts the frontier reports Solved == false with a nil
// error; a cancelled context aborts the search with an error. The two
// outcomes are always distinguishable.
//
// # Error Classification
//
// Construction and compilation faults are classified DomainError values:
//
//   - ErrorKindConstraints: constraint propagation contradiction
//   - ErrorKindAssembly: conflicting unions, duplicate state assignment,
//     incomplete start states
//   - ErrorKindUnknownAction / ErrorKindUnknownState: failed lookups
//
// Use the predicate helpers to classify:
//
//	if planner.IsIncompatibleConstraints(err) {
//	    // the domain description itself is contradictory
//	}
//
// # Thread Safety
//
// A compiled Domain is immutable and safe for concurrent read-only use by
// any number of searches. Each Problem owns its frontier and seen-set for
// the duration of one Solve call and must not be shared across concurrent
// invocations.
package planner
