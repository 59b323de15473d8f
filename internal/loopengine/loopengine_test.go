package loopengine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iwebercodes/ralph/internal/agent"
	"github.com/iwebercodes/ralph/internal/state"
	"github.com/iwebercodes/ralph/internal/supervisor"
)

// scriptedAgent writes a scripted sequence of statuses to .ralph/status on
// each invocation, simulating a child assistant signalling progress.
type scriptedAgent struct {
	name     string
	root     string
	statuses []state.Status
	calls    int
}

func (s *scriptedAgent) Name() string { return s.name }

func (s *scriptedAgent) Invoke(prompt string, timeout *time.Duration, teePath string) supervisor.Result {
	status := state.StatusDone
	if s.calls < len(s.statuses) {
		status = s.statuses[s.calls]
	}
	s.calls++
	_ = os.WriteFile(filepath.Join(s.root, ".ralph", "status"), []byte(status), 0644)
	return supervisor.Result{Output: "did work", ExitCode: 0}
}

func (s *scriptedAgent) IsExhausted(r supervisor.Result) bool        { return false }
func (s *scriptedAgent) ExhaustionReason(r supervisor.Result) string { return "" }

func writeSpecFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRunAchievesGoalAfterThreeCleanDones(t *testing.T) {
	root := t.TempDir()
	writeSpecFile(t, root, "specs/a.spec.md", "implement the thing")

	stub := &scriptedAgent{name: "stub", root: root, statuses: []state.Status{state.StatusDone, state.StatusDone, state.StatusDone}}
	pool := agent.NewPool([]agent.Agent{stub})

	result := Run(Config{Root: root, MaxIterations: 10, Pool: pool})

	if result.ExitCode != ExitGoalAchieved {
		t.Fatalf("expected goal achieved, got exit %d (%s)", result.ExitCode, result.Message)
	}
	if result.IterationsRun != 3 {
		t.Fatalf("expected 3 iterations to reach done_count 3, got %d", result.IterationsRun)
	}
}

func TestRunReturnsNoSpecsWhenWorkspaceEmpty(t *testing.T) {
	root := t.TempDir()
	pool := agent.NewPool([]agent.Agent{&scriptedAgent{name: "stub", root: root}})

	result := Run(Config{Root: root, MaxIterations: 10, Pool: pool})
	if result.ExitCode != ExitNoSpecs {
		t.Fatalf("expected no-specs exit, got %d", result.ExitCode)
	}
}

func TestRunStopsAtMaxIterationsWhenNeverDone(t *testing.T) {
	root := t.TempDir()
	writeSpecFile(t, root, "specs/a.spec.md", "implement the thing")

	stub := &scriptedAgent{name: "stub", root: root, statuses: []state.Status{
		state.StatusContinue, state.StatusContinue, state.StatusContinue,
	}}
	pool := agent.NewPool([]agent.Agent{stub})

	result := Run(Config{Root: root, MaxIterations: 2, Pool: pool})
	if result.ExitCode != ExitMaxIterations {
		t.Fatalf("expected max-iterations exit, got %d (%s)", result.ExitCode, result.Message)
	}
	if result.IterationsRun != 2 {
		t.Fatalf("expected 2 iterations run, got %d", result.IterationsRun)
	}
}

func TestRunExitsStuckOnStuckSignal(t *testing.T) {
	root := t.TempDir()
	writeSpecFile(t, root, "specs/a.spec.md", "implement the thing")

	stub := &scriptedAgent{name: "stub", root: root, statuses: []state.Status{state.StatusStuck}}
	pool := agent.NewPool([]agent.Agent{stub})

	result := Run(Config{Root: root, MaxIterations: 10, Pool: pool})
	if result.ExitCode != ExitStuck {
		t.Fatalf("expected stuck exit, got %d (%s)", result.ExitCode, result.Message)
	}
}
