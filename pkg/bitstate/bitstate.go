// Package bitstate implements the ternary bit vectors used throughout the
// planner. Each position of a BitState is true, false, or unknown, encoded
// as a (value, mask) bit pair. BitStates are immutable value types; every
// operation returns a new value.
package bitstate

import (
	"fmt"
	"math/bits"
	"strings"
)

// MaxWidth is the largest number of positions a BitState can hold.
// Domains with more states than this cannot be compiled.
const MaxWidth = 64

// BitState is a ternary bit vector of a fixed width.
//
// A position i (encoded as the mask 1<<i) is true when both the mask and
// value bits are set, false when only the mask bit is set, and unknown when
// the mask bit is clear. Value bits outside the mask are always zero, so
// two BitStates are equal exactly when their (bits, mask, width) tuples are
// equal; the zero value is a null BitState of width 0. BitState is
// comparable and may be used directly as a map key.
type BitState struct {
	bits  uint64
	mask  uint64
	width int
}

// New creates a BitState from raw value and mask words. Value bits outside
// the mask are cleared to preserve the equality invariant.
func New(bitsWord, mask uint64, width int) BitState {
	return BitState{bits: bitsWord & mask, mask: mask, width: width}
}

// Null returns a BitState of the given width with every position unknown.
func Null(width int) BitState {
	return BitState{width: width}
}

// Width returns the number of positions tracked by this BitState.
func (b BitState) Width() int { return b.width }

// Bits returns the raw value word. Only bits inside the mask are set.
func (b BitState) Bits() uint64 { return b.bits }

// Mask returns the raw mask word of known positions.
func (b BitState) Mask() uint64 { return b.mask }

// Add returns a copy of b with the position pos (a single power-of-two bit)
// set to value. Without force, adding a value that disagrees with an
// already-known position fails with an *IncompatibleAddError; with force
// the position is overwritten.
func (b BitState) Add(pos uint64, value bool) (BitState, error) {
	if b.mask&pos != 0 {
		want := uint64(0)
		if value {
			want = pos
		}
		if b.bits&pos != want {
			return BitState{}, &IncompatibleAddError{State: b, Pos: pos, Value: value}
		}
	}
	return b.ForceAdd(pos, value), nil
}

// ForceAdd is Add without the compatibility check: the position is always
// overwritten with the given value.
func (b BitState) ForceAdd(pos uint64, value bool) BitState {
	next := b
	if value {
		next.bits |= pos
	} else {
		next.bits &^= pos
	}
	next.mask |= pos
	return next
}

// IsSet reports whether the position pos is known (true or false).
func (b BitState) IsSet(pos uint64) bool {
	return b.mask&pos != 0
}

// KnownAndMatches reports whether the position pos is known and holds the
// given value.
func (b BitState) KnownAndMatches(pos uint64, value bool) bool {
	if b.mask&pos == 0 {
		return false
	}
	if value {
		return b.bits&pos != 0
	}
	return b.bits&pos == 0
}

// AllSet reports whether every position inside the width is known.
func (b BitState) AllSet() bool {
	return b.mask == widthMask(b.width)
}

// CountSet returns the number of known positions.
func (b BitState) CountSet() int {
	return bits.OnesCount64(b.mask)
}

// IsNull reports whether no position is known.
func (b BitState) IsNull() bool {
	return b.mask == 0
}

// Conflicts reports whether any position known in both b and other holds
// different values in the two. Conflicts is symmetric.
func (b BitState) Conflicts(other BitState) bool {
	common := b.mask & other.mask
	return (b.bits^other.bits)&common != 0
}

// Satisfies reports whether every position known in goal is known in b with
// the same value. b may know more positions than goal.
func (b BitState) Satisfies(goal BitState) bool {
	if (b.mask&goal.mask)^goal.mask != 0 {
		return false
	}
	return !b.Conflicts(goal)
}

// AccomplishesSomething reports whether b holds at least one position at
// the value the goal wants, i.e. whether applying b would move the world
// toward goal at all.
func (b BitState) AccomplishesSomething(goal BitState) bool {
	common := b.mask & goal.mask
	return ^(b.bits^goal.bits)&common != 0
}

// UnsetFromAction returns b with every position known in effects made
// unknown, leaving the residue an action's effects do not already cover.
// It fails if b conflicts with effects; ForceUnsetFromAction skips that
// check.
func (b BitState) UnsetFromAction(effects BitState) (BitState, error) {
	if b.Conflicts(effects) {
		return BitState{}, &ConflictError{A: b, B: effects, Op: "unset"}
	}
	return b.ForceUnsetFromAction(effects), nil
}

// ForceUnsetFromAction is UnsetFromAction without the conflict check.
func (b BitState) ForceUnsetFromAction(effects BitState) BitState {
	return New(b.bits, b.mask&^effects.mask, b.width)
}

// Difference returns a BitState whose known positions are exactly those
// known in both b and other where the two disagree.
func (b BitState) Difference(other BitState) BitState {
	common := b.mask & other.mask
	diff := (b.bits ^ other.bits) & common
	return New(b.bits, diff, b.width)
}

// WithoutMatching returns b's positions minus any whose value equals the
// corresponding known value in other.
func (b BitState) WithoutMatching(other BitState) BitState {
	matching := b.mask & other.mask & ^(b.bits ^ other.bits)
	return New(b.bits, b.mask&^matching, b.width)
}

// CarryForward combines b (the newer knowledge) with previous. Positions
// known in b keep b's value; positions known only in previous carry
// previous's value forward. This is the rule by which an action's effects
// override its precondition knowledge while untouched preconditions
// survive.
func (b BitState) CarryForward(previous BitState) BitState {
	combined := previous.mask | b.mask
	carry := b.mask ^ combined
	merged := b.bits & (previous.bits | ^carry)
	merged |= previous.bits & carry
	return New(merged, combined, b.width)
}

// ExceptSatisfiedBy clears from b every position that effects sets to
// exactly the value b requires. Walking a sequence backward, a later pool
// that already guarantees a bit removes it from what earlier pools must
// establish.
func (b BitState) ExceptSatisfiedBy(effects BitState) BitState {
	satisfied := ^(effects.bits ^ b.bits) & b.mask & effects.mask
	return New(b.bits, b.mask&^satisfied, b.width)
}

// Union merges b with other. It fails with a *ConflictError if the two
// disagree on any common position.
func (b BitState) Union(other BitState) (BitState, error) {
	return AllUnion([]BitState{b, other})
}

// AllUnion merges any number of BitStates into one. Each input position
// keeps its known value; it is an error for two inputs to disagree on a
// position or to have different widths. The input slice must be non-empty.
func AllUnion(items []BitState) (BitState, error) {
	if len(items) == 0 {
		return BitState{}, fmt.Errorf("bitstate: all-union of no items")
	}
	width := items[0].width
	for i, item := range items {
		for _, other := range items[i+1:] {
			if item.Conflicts(other) {
				return BitState{}, &ConflictError{A: item, B: other, Op: "union"}
			}
			if item.width != other.width {
				return BitState{}, &WidthMismatchError{A: item, B: other}
			}
		}
	}
	var mask, merged uint64
	for _, item := range items {
		mask |= item.mask
		merged |= item.mask & item.bits
		merged &^= item.mask & ^item.bits
	}
	return New(merged, mask, width), nil
}

// MaskString renders b in the planner's one-character-per-position text
// form: uppercase letter for true, lowercase for false, '-' for unknown.
// Letter identity cycles through the alphabet by position and carries no
// meaning beyond legibility.
func (b BitState) MaskString() string {
	var sb strings.Builder
	sb.Grow(b.width)
	for i := 0; i < b.width; i++ {
		pos := uint64(1) << uint(i)
		letter := byte(i % 26)
		switch {
		case b.mask&pos == 0:
			sb.WriteByte('-')
		case b.bits&pos != 0:
			sb.WriteByte('A' + letter)
		default:
			sb.WriteByte('a' + letter)
		}
	}
	return sb.String()
}

// String implements fmt.Stringer using the mask-string form.
func (b BitState) String() string {
	return "<BitState " + b.MaskString() + ">"
}

// FromString parses the mask-string form produced by MaskString. It is the
// exact inverse: for any valid mask string s, FromString(s).MaskString()
// equals s. The "<BitState ...>" wrapping produced by String is accepted
// and stripped.
func FromString(s string) (BitState, error) {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "<"), ">")
	s = strings.TrimPrefix(s, "BitState ")
	s = strings.TrimSpace(s)
	if len(s) > MaxWidth {
		return BitState{}, fmt.Errorf("bitstate: mask string %q longer than %d positions", s, MaxWidth)
	}
	var bitsWord, mask uint64
	for i := 0; i < len(s); i++ {
		pos := uint64(1) << uint(i)
		switch c := s[i]; {
		case c == '-':
		case c >= 'A' && c <= 'Z':
			mask |= pos
			bitsWord |= pos
		case c >= 'a' && c <= 'z':
			mask |= pos
		default:
			return BitState{}, fmt.Errorf("bitstate: bad character %q at position %d of %q", c, i, s)
		}
	}
	return New(bitsWord, mask, len(s)), nil
}

// widthMask returns a word with the low width bits set.
func widthMask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(width)) - 1
}
