package domainfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseProblem(t *testing.T) {
	pf, err := ParseProblem([]byte(`
domain: flight
bindings:
  plane: [p1]
  airport: [sfo, lax]
start:
  - p1 at sfo
  - not p1 at lax
goal:
  - p1 at lax
`))
	if err != nil {
		t.Fatalf("ParseProblem failed: %v", err)
	}
	if pf.Domain != "flight" {
		t.Errorf("Expected domain 'flight', got %q", pf.Domain)
	}
	if len(pf.Bindings["airport"]) != 2 {
		t.Errorf("Unexpected bindings %v", pf.Bindings)
	}
	if len(pf.Start) != 2 || pf.Start[1] != "not p1 at lax" {
		t.Errorf("Unexpected start %v", pf.Start)
	}
	if len(pf.Goal) != 1 || pf.Goal[0] != "p1 at lax" {
		t.Errorf("Unexpected goal %v", pf.Goal)
	}
}

func TestParseProblem_RequiresStartAndGoal(t *testing.T) {
	if _, err := ParseProblem([]byte("goal:\n  - g\n")); err == nil {
		t.Error("Expected error for missing start")
	}
	if _, err := ParseProblem([]byte("start:\n  - s\n")); err == nil {
		t.Error("Expected error for missing goal")
	}
	if _, err := ParseProblem([]byte("start: [\n")); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestProblemFile_StartSpecs(t *testing.T) {
	pf := &ProblemFile{Start: []string{"s"}, Goal: []string{"g"}}
	specs := pf.StartSpecs()
	if len(specs) != 1 || specs[0] != "s" {
		t.Errorf("Unexpected specs %v", specs)
	}

	pf.DefaultFalse = true
	specs = pf.StartSpecs()
	if len(specs) != 2 || specs[1] != "default_false" {
		t.Errorf("Expected trailing default_false marker, got %v", specs)
	}
	if len(pf.Start) != 1 {
		t.Error("StartSpecs must not mutate the original start list")
	}
}

func TestLoadProblemFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "problem.yaml")
	content := "domain: d\nstart: [s]\ngoal: [g]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	pf, err := LoadProblemFile(path)
	if err != nil {
		t.Fatalf("LoadProblemFile failed: %v", err)
	}
	if pf.Domain != "d" || len(pf.Start) != 1 || len(pf.Goal) != 1 {
		t.Errorf("Unexpected problem file %+v", pf)
	}

	if _, err := LoadProblemFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
