package domainfile

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/openplan/openplan/pkg/planner"
)

// ParseError reports a malformed domain description, pointing at the line
// that could not be handled.
type ParseError struct {
	// Line is the 1-indexed line number in the source text, or 0 when the
	// error concerns the document as a whole.
	Line int

	// Message describes what was wrong.
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("domain description line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("domain description: %s", e.Message)
}

func parseErrorf(line int, format string, args ...interface{}) error {
	return &ParseError{Line: line, Message: fmt.Sprintf(format, args...)}
}

// UnboundState is a "state" block before variable substitution.
type UnboundState struct {
	// Name is the state name, possibly containing variables.
	Name string

	// Where holds the variable clauses, nil when the block has none.
	Where *Where
}

// UnboundConstraint is an "if" block before variable substitution.
type UnboundConstraint struct {
	// Trigger is the condition state name, possibly containing variables.
	Trigger string

	// Then lists the implied state names.
	Then []string

	// Where holds the variable clauses, nil when the block has none.
	Where *Where
}

// UnboundAction is a "to" block before variable substitution.
type UnboundAction struct {
	// Name is the action name, possibly containing variables.
	Name string

	// Must lists the precondition state names.
	Must []string

	// Then lists the effect state names.
	Then []string

	// Where holds the variable clauses, nil when the block has none.
	Where *Where
}

// Document is a parsed domain description with its variables still
// unbound. Substitute turns it into a planner.Definition.
type Document struct {
	// Name identifies the domain.
	Name string

	States      []*UnboundState
	Constraints []*UnboundConstraint
	Actions     []*UnboundAction
}

// block is one keyword-introduced section being accumulated by the parser.
type block interface {
	addLine(line string, lineno int) error
	finish(lineno int) error
}

type stateBlock struct {
	state   *UnboundState
	inWhere bool
}

func (b *stateBlock) addLine(line string, lineno int) error {
	if line == "where" {
		if b.state.Name == "" {
			return parseErrorf(lineno, "state block has a where clause but no name")
		}
		b.inWhere = true
		b.state.Where = &Where{}
		return nil
	}
	if b.inWhere {
		return b.state.Where.addLine(line, lineno)
	}
	if b.state.Name != "" {
		return parseErrorf(lineno, "state block has more than one name (%q then %q)", b.state.Name, line)
	}
	b.state.Name = line
	return nil
}

func (b *stateBlock) finish(lineno int) error {
	if b.state.Name == "" {
		return parseErrorf(lineno, "state block has no name")
	}
	if b.state.Where != nil && len(b.state.Where.Clauses) == 0 {
		return parseErrorf(lineno, "state block %q has an empty where clause", b.state.Name)
	}
	return nil
}

type constraintBlock struct {
	constraint *UnboundConstraint
	pos        string
}

func (b *constraintBlock) addLine(line string, lineno int) error {
	switch line {
	case "then", "where":
		if b.constraint.Trigger == "" {
			return parseErrorf(lineno, "if block has a %s clause but no condition", line)
		}
		b.pos = line
		if line == "where" && b.constraint.Where == nil {
			b.constraint.Where = &Where{}
		}
		return nil
	}
	switch b.pos {
	case "":
		if b.constraint.Trigger != "" {
			return parseErrorf(lineno, "if block has more than one condition (%q then %q)", b.constraint.Trigger, line)
		}
		b.constraint.Trigger = line
	case "then":
		b.constraint.Then = append(b.constraint.Then, line)
	case "where":
		return b.constraint.Where.addLine(line, lineno)
	}
	return nil
}

func (b *constraintBlock) finish(lineno int) error {
	if b.constraint.Trigger == "" {
		return parseErrorf(lineno, "if block has no condition")
	}
	if len(b.constraint.Then) == 0 {
		return parseErrorf(lineno, "if block %q has no conclusions", b.constraint.Trigger)
	}
	return nil
}

type actionBlock struct {
	action *UnboundAction
	pos    string
}

func (b *actionBlock) addLine(line string, lineno int) error {
	switch line {
	case "must", "then", "where":
		if b.action.Name == "" {
			return parseErrorf(lineno, "to block has a %s clause but no name", line)
		}
		b.pos = line
		if line == "where" && b.action.Where == nil {
			b.action.Where = &Where{}
		}
		return nil
	}
	switch b.pos {
	case "":
		if b.action.Name != "" {
			return parseErrorf(lineno, "to block has more than one name (%q then %q)", b.action.Name, line)
		}
		b.action.Name = line
	case "must":
		b.action.Must = append(b.action.Must, line)
	case "then":
		b.action.Then = append(b.action.Then, line)
	case "where":
		return b.action.Where.addLine(line, lineno)
	}
	return nil
}

func (b *actionBlock) finish(lineno int) error {
	if b.action.Name == "" {
		return parseErrorf(lineno, "to block has no name")
	}
	if len(b.action.Then) == 0 {
		return parseErrorf(lineno, "to block %q has no effects", b.action.Name)
	}
	return nil
}

// Parse parses a domain description into an unbound Document.
func Parse(name, text string) (*Document, error) {
	doc := &Document{Name: name}
	var current block

	lineno := 0
	for _, raw := range strings.Split(text, "\n") {
		lineno++
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var next block
		switch line {
		case "state":
			s := &UnboundState{}
			doc.States = append(doc.States, s)
			next = &stateBlock{state: s}
		case "if":
			c := &UnboundConstraint{}
			doc.Constraints = append(doc.Constraints, c)
			next = &constraintBlock{constraint: c}
		case "to":
			a := &UnboundAction{}
			doc.Actions = append(doc.Actions, a)
			next = &actionBlock{action: a}
		}
		if next != nil {
			if current != nil {
				if err := current.finish(lineno); err != nil {
					return nil, err
				}
			}
			current = next
			continue
		}

		if current == nil {
			return nil, parseErrorf(lineno, "unexpected line outside any block: %q", line)
		}
		if err := current.addLine(line, lineno); err != nil {
			return nil, err
		}
	}

	if current == nil {
		return nil, parseErrorf(0, "no blocks found")
	}
	if err := current.finish(lineno); err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseFile reads and parses a domain description file. The domain name is
// the file's base name without its extension.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading domain description: %w", err)
	}
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return Parse(base, string(data))
}

// TypeNames returns the set of binding type names referenced by the
// document's where clauses.
func (d *Document) TypeNames() map[string]struct{} {
	names := make(map[string]struct{})
	collect := func(w *Where) {
		if w == nil {
			return
		}
		for _, clause := range w.Clauses {
			if clause.Op == OpIs {
				names[clause.Right] = struct{}{}
			}
		}
	}
	for _, s := range d.States {
		collect(s.Where)
	}
	for _, c := range d.Constraints {
		collect(c.Where)
	}
	for _, a := range d.Actions {
		collect(a.Where)
	}
	return names
}

// Substitute expands every block against the given bindings and returns
// the concrete definition ready for compilation. The binding keys must
// match the document's type names exactly.
func (d *Document) Substitute(bindings map[string][]string) (planner.Definition, error) {
	wanted := d.TypeNames()
	for name := range wanted {
		if _, ok := bindings[name]; !ok {
			return planner.Definition{}, fmt.Errorf("missing bindings for type %q", name)
		}
	}
	for name := range bindings {
		if _, ok := wanted[name]; !ok {
			return planner.Definition{}, fmt.Errorf("bindings for unknown type %q", name)
		}
	}

	def := planner.Definition{Name: d.Name}
	for _, s := range d.States {
		subs, err := expandWhere(s.Where, bindings)
		if err != nil {
			return planner.Definition{}, fmt.Errorf("state %q: %w", s.Name, err)
		}
		for _, sub := range subs {
			def.States = append(def.States, sub.Apply(s.Name))
		}
	}
	for _, c := range d.Constraints {
		subs, err := expandWhere(c.Where, bindings)
		if err != nil {
			return planner.Definition{}, fmt.Errorf("constraint %q: %w", c.Trigger, err)
		}
		for _, sub := range subs {
			def.Constraints = append(def.Constraints, planner.RawConstraint{
				Trigger: sub.Apply(c.Trigger),
				Implies: sub.ApplyAll(c.Then),
			})
		}
	}
	for _, a := range d.Actions {
		subs, err := expandWhere(a.Where, bindings)
		if err != nil {
			return planner.Definition{}, fmt.Errorf("action %q: %w", a.Name, err)
		}
		for _, sub := range subs {
			def.Actions = append(def.Actions, planner.RawAction{
				Name: sub.Apply(a.Name),
				Must: sub.ApplyAll(a.Must),
				Then: sub.ApplyAll(a.Then),
			})
		}
	}
	return def, nil
}

// expandWhere returns the variable substitutions a where clause produces,
// or the single empty substitution when the clause is nil.
func expandWhere(w *Where, bindings map[string][]string) ([]*VarSub, error) {
	if w == nil {
		return []*VarSub{newVarSub()}, nil
	}
	return w.Expand(bindings)
}

var bindingNameRe = regexp.MustCompile(`^(\w+):`)

// ParseBindings parses the textual bindings format: lines of
// "type: value value ...", where values may continue on following lines
// and "#" starts a comment.
func ParseBindings(text string) (map[string][]string, error) {
	result := make(map[string][]string)
	lastVar := ""
	for _, raw := range strings.Split(text, "\n") {
		line := raw
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		if m := bindingNameRe.FindString(line); m != "" {
			lastVar = strings.TrimSuffix(m, ":")
			line = line[len(m):]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if lastVar == "" {
			return nil, fmt.Errorf("binding value without a leading \"type:\" line: %q", line)
		}
		for _, field := range strings.Fields(line) {
			value := strings.Trim(field, ",;")
			if value != "" {
				result[lastVar] = append(result[lastVar], value)
			}
		}
	}
	return result, nil
}
