package counter

import (
	"testing"

	"github.com/iwebercodes/ralph/internal/state"
)

func newState(specs ...state.SpecProgress) *state.MultiSpecState {
	return &state.MultiSpecState{Version: 1, Specs: specs, CurrentIndex: 0}
}

func TestApplyDoneWithoutChangesIncrements(t *testing.T) {
	st := newState(state.SpecProgress{Path: "a", DoneCount: 1})
	r := Apply(st, 0, state.StatusDone, nil, "hash1")
	if r.SpecDoneCount != 2 {
		t.Fatalf("expected done_count 2, got %d", r.SpecDoneCount)
	}
	if r.Action != ActionContinue {
		t.Fatalf("expected continue, got %v", r.Action)
	}
}

func TestApplyDoneThreeTimesExits(t *testing.T) {
	st := newState(state.SpecProgress{Path: "a", DoneCount: 2})
	r := Apply(st, 0, state.StatusDone, nil, "hash1")
	if r.SpecDoneCount != 3 {
		t.Fatalf("expected done_count 3, got %d", r.SpecDoneCount)
	}
	if r.Action != ActionExit || r.ExitCode != 0 {
		t.Fatalf("expected exit(0), got %v/%d", r.Action, r.ExitCode)
	}
}

func TestApplyDoneCountNeverExceedsThree(t *testing.T) {
	st := newState(state.SpecProgress{Path: "a", DoneCount: 3})
	r := Apply(st, 0, state.StatusDone, nil, "hash1")
	if r.SpecDoneCount != 3 {
		t.Fatalf("expected done_count capped at 3, got %d", r.SpecDoneCount)
	}
}

func TestApplyDoneWithChangesResetsToOne(t *testing.T) {
	st := newState(state.SpecProgress{Path: "a", DoneCount: 2})
	r := Apply(st, 0, state.StatusDone, []string{"file.go"}, "hash2")
	if r.SpecDoneCount != 1 {
		t.Fatalf("expected done_count reset to 1, got %d", r.SpecDoneCount)
	}
}

func TestApplyNonDoneWithChangesResetsToZero(t *testing.T) {
	st := newState(state.SpecProgress{Path: "a", DoneCount: 2})
	r := Apply(st, 0, state.StatusContinue, []string{"file.go"}, "hash2")
	if r.SpecDoneCount != 0 {
		t.Fatalf("expected done_count reset to 0, got %d", r.SpecDoneCount)
	}
}

func TestApplyNonDoneWithoutChangesPreservesCount(t *testing.T) {
	st := newState(state.SpecProgress{Path: "a", DoneCount: 2})
	r := Apply(st, 0, state.StatusContinue, nil, "hash1")
	if r.SpecDoneCount != 2 {
		t.Fatalf("expected done_count preserved at 2, got %d", r.SpecDoneCount)
	}
}

func TestApplyStuckAlwaysExits(t *testing.T) {
	st := newState(state.SpecProgress{Path: "a", DoneCount: 0})
	r := Apply(st, 0, state.StatusStuck, nil, "hash1")
	if r.Action != ActionExit || r.ExitCode != 2 {
		t.Fatalf("expected exit(2), got %v/%d", r.Action, r.ExitCode)
	}
}

func TestApplyPropagatesDowngradeToOtherCompleteSpecs(t *testing.T) {
	st := newState(
		state.SpecProgress{Path: "a", DoneCount: 1},
		state.SpecProgress{Path: "b", DoneCount: 3},
	)
	r := Apply(st, 0, state.StatusContinue, []string{"file.go"}, "hash1")
	if r.State.Specs[1].DoneCount != 2 {
		t.Fatalf("expected spec b downgraded to 2, got %d", r.State.Specs[1].DoneCount)
	}
}

func TestApplyDoesNotDowngradeOtherSpecsWithoutChanges(t *testing.T) {
	st := newState(
		state.SpecProgress{Path: "a", DoneCount: 1},
		state.SpecProgress{Path: "b", DoneCount: 3},
	)
	r := Apply(st, 0, state.StatusContinue, nil, "hash1")
	if r.State.Specs[1].DoneCount != 3 {
		t.Fatalf("expected spec b to remain at 3, got %d", r.State.Specs[1].DoneCount)
	}
}

func TestApplyOutOfRangeIndexGuardsButStuckStillExits(t *testing.T) {
	st := newState(state.SpecProgress{Path: "a", DoneCount: 1})
	r := Apply(st, 5, state.StatusStuck, nil, "hash1")
	if r.Action != ActionExit || r.ExitCode != 2 {
		t.Fatalf("expected exit(2) even out of range, got %v/%d", r.Action, r.ExitCode)
	}
}

func TestApplyEmptySpecsContinues(t *testing.T) {
	st := newState()
	r := Apply(st, 0, state.StatusContinue, nil, "hash1")
	if r.Action != ActionContinue {
		t.Fatalf("expected continue on empty specs, got %v", r.Action)
	}
}

func TestAllDoneRequiresEverySpecAtThreshold(t *testing.T) {
	st := newState(
		state.SpecProgress{Path: "a", DoneCount: 3},
		state.SpecProgress{Path: "b", DoneCount: 1},
	)
	r := Apply(st, 1, state.StatusDone, nil, "hash1")
	if r.Action != ActionContinue {
		t.Fatalf("expected continue since spec b only reaches 2, got %v", r.Action)
	}
	if r.State.Specs[1].DoneCount != 2 {
		t.Fatalf("expected spec b to reach 2, got %d", r.State.Specs[1].DoneCount)
	}

	r2 := Apply(r.State, 1, state.StatusDone, nil, "hash1")
	if r2.Action != ActionExit || r2.ExitCode != 0 {
		t.Fatalf("expected exit(0) once both specs reach 3, got %v/%d", r2.Action, r2.ExitCode)
	}
}
