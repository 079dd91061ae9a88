package domainfile

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openplan/openplan/pkg/planner"
)

// ProblemFile is a YAML document describing one planning problem: the
// start state, the goal, and optionally the variable bindings to
// substitute into the domain description.
type ProblemFile struct {
	// Domain names the domain this problem belongs to. Optional; used for
	// bookkeeping and run history.
	Domain string `yaml:"domain"`

	// Bindings maps type names to their concrete values.
	Bindings map[string][]string `yaml:"bindings"`

	// Start lists the state names (with optional "not " prefixes) that
	// hold initially.
	Start []string `yaml:"start" validate:"required,min=1"`

	// Goal lists the state names (with optional "not " prefixes) that
	// must hold at the end.
	Goal []string `yaml:"goal" validate:"required,min=1"`

	// DefaultFalse, when true, treats states absent from Start as false
	// instead of requiring every state to be listed.
	DefaultFalse bool `yaml:"default_false"`
}

var problemValidator = validator.New()

// ParseProblem decodes and validates a YAML problem document.
func ParseProblem(data []byte) (*ProblemFile, error) {
	var pf ProblemFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("decoding problem file: %w", err)
	}
	if err := problemValidator.Struct(&pf); err != nil {
		return nil, fmt.Errorf("invalid problem file: %w", err)
	}
	return &pf, nil
}

// LoadProblemFile reads and parses a YAML problem file.
func LoadProblemFile(path string) (*ProblemFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading problem file: %w", err)
	}
	return ParseProblem(data)
}

// StartSpecs returns the start state list ready for the compiler,
// appending the default-false marker when requested.
func (pf *ProblemFile) StartSpecs() []string {
	if !pf.DefaultFalse {
		return pf.Start
	}
	specs := make([]string, 0, len(pf.Start)+1)
	specs = append(specs, pf.Start...)
	return append(specs, planner.DefaultFalseSpec)
}
