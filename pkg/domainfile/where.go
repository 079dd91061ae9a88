package domainfile

import (
	"fmt"
	"regexp"
	"strings"
)

// ClauseOp distinguishes the two kinds of where clause.
type ClauseOp string

const (
	// OpIs binds a variable to a type: "X is airport".
	OpIs ClauseOp = "is"

	// OpNotEqual filters assignments where two variables coincide:
	// "X != Y".
	OpNotEqual ClauseOp = "!="
)

// Clause is one line of a where clause.
type Clause struct {
	Left  string
	Op    ClauseOp
	Right string
}

// Where is the variable section of a block: type bindings plus inequality
// filters, in declaration order.
type Where struct {
	Clauses []Clause
}

var (
	isClauseRe       = regexp.MustCompile(`^(\w+)\s+is\s+(\w+)$`)
	notEqualClauseRe = regexp.MustCompile(`^(\w+)\s*!=\s*(\w+)$`)
)

func (w *Where) addLine(line string, lineno int) error {
	if m := isClauseRe.FindStringSubmatch(line); m != nil {
		w.Clauses = append(w.Clauses, Clause{Left: m[1], Op: OpIs, Right: m[2]})
		return nil
	}
	if m := notEqualClauseRe.FindStringSubmatch(line); m != nil {
		w.Clauses = append(w.Clauses, Clause{Left: m[1], Op: OpNotEqual, Right: m[2]})
		return nil
	}
	return parseErrorf(lineno, "cannot understand where clause: %q", line)
}

// Expand returns every variable assignment the clause admits: the
// cartesian product of the "is" clauses' binding values, in declaration
// order, minus any assignment rejected by a "!=" clause.
func (w *Where) Expand(bindings map[string][]string) ([]*VarSub, error) {
	var sources []Clause
	var notEquals []Clause
	for _, clause := range w.Clauses {
		switch clause.Op {
		case OpIs:
			sources = append(sources, clause)
		case OpNotEqual:
			notEquals = append(notEquals, clause)
		}
	}

	subs := []*VarSub{newVarSub()}
	for _, source := range sources {
		values, ok := bindings[source.Right]
		if !ok {
			return nil, fmt.Errorf("no bindings for type %q", source.Right)
		}
		next := make([]*VarSub, 0, len(subs)*len(values))
		for _, sub := range subs {
			for _, value := range values {
				next = append(next, sub.with(source.Left, value))
			}
		}
		subs = next
	}

	for _, filter := range notEquals {
		kept := subs[:0]
		for _, sub := range subs {
			left, ok := sub.value(filter.Left)
			if !ok {
				return nil, fmt.Errorf("filter references unbound variable %q", filter.Left)
			}
			right, ok := sub.value(filter.Right)
			if !ok {
				return nil, fmt.Errorf("filter references unbound variable %q", filter.Right)
			}
			if left != right {
				kept = append(kept, sub)
			}
		}
		subs = kept
	}
	return subs, nil
}

// VarSub is one concrete assignment of values to variables. Substitution
// replaces whole-word occurrences of each variable name, in the order the
// variables were bound.
type VarSub struct {
	names  []string
	values map[string]string
}

func newVarSub() *VarSub {
	return &VarSub{values: make(map[string]string)}
}

// with returns a copy extended by one more assignment.
func (v *VarSub) with(name, value string) *VarSub {
	next := &VarSub{
		names:  append(append([]string(nil), v.names...), name),
		values: make(map[string]string, len(v.values)+1),
	}
	for k, val := range v.values {
		next.values[k] = val
	}
	next.values[name] = value
	return next
}

func (v *VarSub) value(name string) (string, bool) {
	val, ok := v.values[name]
	return val, ok
}

// Apply substitutes every bound variable in s.
func (v *VarSub) Apply(s string) string {
	for _, name := range v.names {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
		s = re.ReplaceAllString(s, v.values[name])
	}
	return s
}

// ApplyAll substitutes every bound variable in each element of lines.
func (v *VarSub) ApplyAll(lines []string) []string {
	result := make([]string, len(lines))
	for i, line := range lines {
		result[i] = v.Apply(line)
	}
	return result
}

// String implements fmt.Stringer.
func (v *VarSub) String() string {
	parts := make([]string, len(v.names))
	for i, name := range v.names {
		parts[i] = name + "=" + v.values[name]
	}
	return "{" + strings.Join(parts, " ") + "}"
}
