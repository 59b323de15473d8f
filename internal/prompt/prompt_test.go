package prompt

import (
	"strings"
	"testing"
)

func TestModeSwitchesOnDoneCount(t *testing.T) {
	if Mode(0) != "IMPLEMENT" {
		t.Fatalf("expected IMPLEMENT for done_count 0")
	}
	if Mode(1) != "REVIEW" {
		t.Fatalf("expected REVIEW once done_count > 0")
	}
}

func TestAssembleIncludesGoalHandoffAndGuardrails(t *testing.T) {
	rec := Record{
		Iteration:     3,
		MaxIterations: 20,
		DoneCount:     1,
		Goal:          "Implement auth",
		Handoff:       "previous state notes",
		Guardrails:    "never touch prod",
		SpecPath:      "specs/auth.spec.md",
		HandoffPath:   ".ralph/handoffs/auth.spec-abc123.md",
	}
	out := Assemble(rec)
	for _, want := range []string{"Implement auth", "previous state notes", "never touch prod", "3/20", "REVIEW", "specs/auth.spec.md"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected rendered prompt to contain %q, got:\n%s", want, out)
		}
	}
}

func TestAssembleDerivesModeWhenUnset(t *testing.T) {
	out := Assemble(Record{Iteration: 1, MaxIterations: 20, DoneCount: 0, Goal: "g"})
	if !strings.Contains(out, "IMPLEMENT") {
		t.Fatalf("expected derived IMPLEMENT mode, got:\n%s", out)
	}
}
