package bitstate

import (
	"errors"
	"testing"
)

func mustFromString(t *testing.T, s string) BitState {
	t.Helper()
	b, err := FromString(s)
	if err != nil {
		t.Fatalf("FromString(%q) failed: %v", s, err)
	}
	return b
}

func TestFromString_RoundTrip(t *testing.T) {
	cases := []string{
		"",
		"A",
		"a",
		"-",
		"Ab-D",
		"abcd",
		"ABCD",
		"--------",
		"A-c-E-g-",
	}

	for _, s := range cases {
		b := mustFromString(t, s)
		if got := b.MaskString(); got != s {
			t.Errorf("Round trip of %q produced %q", s, got)
		}
		if b.Width() != len(s) {
			t.Errorf("Width of %q: expected %d, got %d", s, len(s), b.Width())
		}
	}
}

func TestFromString_StrippedRepr(t *testing.T) {
	b := mustFromString(t, "Ab-")
	again, err := FromString(b.String())
	if err != nil {
		t.Fatalf("FromString of String() form failed: %v", err)
	}
	if again != b {
		t.Errorf("Expected %v, got %v", b, again)
	}
}

func TestFromString_BadCharacter(t *testing.T) {
	if _, err := FromString("A?c"); err == nil {
		t.Fatal("Expected error for bad character, got nil")
	}
}

func TestNew_ClearsBitsOutsideMask(t *testing.T) {
	b := New(0b1111, 0b0101, 4)
	if b.Bits() != 0b0101 {
		t.Errorf("Expected bits outside mask cleared, got %#b", b.Bits())
	}

	// Equality must hold between differently-constructed equal states.
	if b != New(0b0101, 0b0101, 4) {
		t.Error("Expected masked constructions to compare equal")
	}
}

func TestAdd_IdempotentForMatchingValue(t *testing.T) {
	b := Null(3)
	b, err := b.Add(1<<1, true)
	if err != nil {
		t.Fatalf("First add failed: %v", err)
	}

	again, err := b.Add(1<<1, true)
	if err != nil {
		t.Fatalf("Repeated matching add failed: %v", err)
	}
	if again != b {
		t.Errorf("Expected repeated add to be idempotent: %v vs %v", b, again)
	}
}

func TestAdd_ConflictingValueFails(t *testing.T) {
	b := Null(3).ForceAdd(1<<0, true)

	_, err := b.Add(1<<0, false)
	if err == nil {
		t.Fatal("Expected error for conflicting add, got nil")
	}

	var incompatible *IncompatibleAddError
	if !errors.As(err, &incompatible) {
		t.Fatalf("Expected *IncompatibleAddError, got %T", err)
	}
	if incompatible.Pos != 1<<0 || incompatible.Value != false {
		t.Errorf("Error context wrong: pos=%#x value=%v", incompatible.Pos, incompatible.Value)
	}
}

func TestForceAdd_Overwrites(t *testing.T) {
	b := Null(3).ForceAdd(1<<2, true)
	b = b.ForceAdd(1<<2, false)

	if !b.KnownAndMatches(1<<2, false) {
		t.Error("Expected force add to overwrite to false")
	}
}

func TestConflicts_Symmetric(t *testing.T) {
	a := mustFromString(t, "Ab-")
	b := mustFromString(t, "aB-")
	c := mustFromString(t, "A--")

	if !a.Conflicts(b) || !b.Conflicts(a) {
		t.Error("Expected a and b to conflict symmetrically")
	}
	if a.Conflicts(c) || c.Conflicts(a) {
		t.Error("Expected a and c not to conflict")
	}

	// Unknown positions never conflict.
	if a.Conflicts(Null(3)) {
		t.Error("Expected no conflict with a null state")
	}
}

func TestSatisfies(t *testing.T) {
	full := mustFromString(t, "AbC")
	goal := mustFromString(t, "A-C")

	if !full.Satisfies(goal) {
		t.Error("Expected full state to satisfy narrower goal")
	}
	if goal.Satisfies(full) {
		t.Error("Expected narrower state not to satisfy wider goal")
	}
	if mustFromString(t, "abC").Satisfies(goal) {
		t.Error("Expected conflicting state not to satisfy goal")
	}
}

func TestAccomplishesSomething(t *testing.T) {
	goal := mustFromString(t, "A-c")

	if !mustFromString(t, "A--").AccomplishesSomething(goal) {
		t.Error("Expected matching true bit to accomplish something")
	}
	if !mustFromString(t, "a-c").AccomplishesSomething(goal) {
		t.Error("Expected matching false bit to accomplish something")
	}
	if mustFromString(t, "a-C").AccomplishesSomething(goal) {
		t.Error("Expected all-disagreeing state to accomplish nothing")
	}
	if mustFromString(t, "-B-").AccomplishesSomething(goal) {
		t.Error("Expected disjoint state to accomplish nothing")
	}
}

func TestUnion_DisjointMasksIsSimpleOr(t *testing.T) {
	a := mustFromString(t, "A---")
	b := mustFromString(t, "--cD")

	u, err := a.Union(b)
	if err != nil {
		t.Fatalf("Union failed: %v", err)
	}
	if u.Bits() != (a.Bits()|b.Bits()) || u.Mask() != (a.Mask()|b.Mask()) {
		t.Errorf("Expected simple OR for disjoint masks, got %v", u)
	}
	if got := u.MaskString(); got != "A-cD" {
		t.Errorf("Expected 'A-cD', got %q", got)
	}
}

func TestAllUnion_PairwiseConflictFails(t *testing.T) {
	items := []BitState{
		mustFromString(t, "A--"),
		mustFromString(t, "-B-"),
		mustFromString(t, "a--"),
	}

	_, err := AllUnion(items)
	if err == nil {
		t.Fatal("Expected pairwise conflict error, got nil")
	}
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected *ConflictError, got %T", err)
	}
}

func TestAllUnion_WidthMismatchFails(t *testing.T) {
	_, err := AllUnion([]BitState{Null(3), Null(4)})
	if err == nil {
		t.Fatal("Expected width mismatch error, got nil")
	}
	var mismatch *WidthMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Expected *WidthMismatchError, got %T", err)
	}
}

func TestUnsetFromAction(t *testing.T) {
	subgoal := mustFromString(t, "AbC")
	effects := mustFromString(t, "-b-")

	rest, err := subgoal.UnsetFromAction(effects)
	if err != nil {
		t.Fatalf("UnsetFromAction failed: %v", err)
	}
	if got := rest.MaskString(); got != "A-C" {
		t.Errorf("Expected 'A-C', got %q", got)
	}

	if _, err := subgoal.UnsetFromAction(mustFromString(t, "-B-")); err == nil {
		t.Fatal("Expected conflict error, got nil")
	}

	forced := subgoal.ForceUnsetFromAction(mustFromString(t, "-B-"))
	if got := forced.MaskString(); got != "A-C" {
		t.Errorf("Expected forced unset 'A-C', got %q", got)
	}
}

func TestDifference(t *testing.T) {
	a := mustFromString(t, "AbC")
	b := mustFromString(t, "aBC")

	diff := a.Difference(b)
	// Positions 0 and 1 disagree; position 2 matches.
	if got := diff.MaskString(); got != "Ab-" {
		t.Errorf("Expected 'Ab-', got %q", got)
	}
	if diff.CountSet() != 2 {
		t.Errorf("Expected 2 differing positions, got %d", diff.CountSet())
	}
}

func TestWithoutMatching(t *testing.T) {
	then := mustFromString(t, "AbC")
	must := mustFromString(t, "A-c")

	// Position 0 matches must and is dropped; 1 is unknown in must and
	// kept; 2 disagrees and is kept.
	important := then.WithoutMatching(must)
	if got := important.MaskString(); got != "-bC" {
		t.Errorf("Expected '-bC', got %q", got)
	}
}

func TestCarryForward(t *testing.T) {
	must := mustFromString(t, "Ab--")
	then := mustFromString(t, "a-C-")

	combined := then.CarryForward(must)
	// Effects win where both are known; untouched preconditions survive.
	if got := combined.MaskString(); got != "abC-" {
		t.Errorf("Expected 'abC-', got %q", got)
	}
}

func TestExceptSatisfiedBy(t *testing.T) {
	needed := mustFromString(t, "AbC")
	effects := mustFromString(t, "A-c")

	// Position 0 is satisfied by the effects and drops out; position 2 is
	// set by the effects but to the wrong value, so it stays required.
	remaining := needed.ExceptSatisfiedBy(effects)
	if got := remaining.MaskString(); got != "-bC" {
		t.Errorf("Expected '-bC', got %q", got)
	}
}

func TestCounts(t *testing.T) {
	b := mustFromString(t, "A-c-")

	if b.CountSet() != 2 {
		t.Errorf("Expected 2 set positions, got %d", b.CountSet())
	}
	if b.AllSet() {
		t.Error("Expected AllSet false with unknown positions")
	}
	if b.IsNull() {
		t.Error("Expected IsNull false")
	}

	if !mustFromString(t, "AbCd").AllSet() {
		t.Error("Expected AllSet true for fully known state")
	}
	if !Null(4).IsNull() {
		t.Error("Expected IsNull true for null state")
	}
}

func TestKnownAndMatches(t *testing.T) {
	b := mustFromString(t, "Ab-")

	if !b.KnownAndMatches(1<<0, true) {
		t.Error("Expected position 0 known true")
	}
	if !b.KnownAndMatches(1<<1, false) {
		t.Error("Expected position 1 known false")
	}
	if b.KnownAndMatches(1<<2, true) || b.KnownAndMatches(1<<2, false) {
		t.Error("Expected unknown position to match nothing")
	}
}
