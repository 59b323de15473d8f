// package counter implements the Verification-Counter State Machine: a pure
// function from (state, signal, files-changed) to the next MultiSpecState and
// an exit decision. It never touches disk.
package counter

import "github.com/iwebercodes/ralph/internal/state"

// Action is the outcome of applying a status update.
type Action string

const (
	ActionContinue Action = "continue"
	ActionExit     Action = "exit"
)

// Result is the output of Apply.
type Result struct {
	Action        Action
	ExitCode      int // meaningful only when Action == ActionExit
	State         *state.MultiSpecState
	SpecDoneCount int // the updated done_count of the spec at specIndex
}

const completionThreshold = 3

// Apply applies one status update to st for the spec at specIndex.
//
// Guards: if specs is empty or specIndex is out of range, STUCK still forces
// an immediate exit(2); anything else continues with the spec list unchanged
// (only the state's Status is set to signal).
//
// Cross-spec propagation: when filesChanged is non-empty, every OTHER spec
// currently at done_count 3 is downgraded to 2 — a material change means any
// previously fully-verified spec is one review away from re-confirmation.
//
// Current-spec update follows the four-case table keyed on (signal==DONE,
// filesChanged). Exit decisions are evaluated after the update: STUCK always
// exits 2; otherwise exit 0 once every spec is at done_count >= 3; otherwise
// continue.
func Apply(st *state.MultiSpecState, specIndex int, signal state.Status, filesChanged []string, currentHash string) Result {
	specsCopy := append([]state.SpecProgress(nil), st.Specs...)
	hasChanges := len(filesChanged) > 0

	if len(specsCopy) == 0 || specIndex < 0 || specIndex >= len(specsCopy) {
		updated := cloneWith(st, specsCopy, signal)
		if signal == state.StatusStuck {
			return Result{Action: ActionExit, ExitCode: 2, State: updated, SpecDoneCount: 0}
		}
		return Result{Action: ActionContinue, State: updated, SpecDoneCount: 0}
	}

	if hasChanges {
		for i := range specsCopy {
			if i == specIndex {
				continue
			}
			if specsCopy[i].DoneCount >= completionThreshold {
				specsCopy[i].DoneCount = 2
			}
		}
	}

	current := specsCopy[specIndex]
	switch {
	case signal == state.StatusDone && !hasChanges:
		next := current.DoneCount + 1
		if next > completionThreshold {
			next = completionThreshold
		}
		specsCopy[specIndex] = state.SpecProgress{
			Path:          current.Path,
			DoneCount:     next,
			LastStatus:    string(signal),
			LastHash:      currentHash,
			ModifiedFiles: false,
		}
	case signal == state.StatusDone && hasChanges:
		specsCopy[specIndex] = state.SpecProgress{
			Path:          current.Path,
			DoneCount:     1,
			LastStatus:    string(signal),
			LastHash:      currentHash,
			ModifiedFiles: true,
		}
	case signal != state.StatusDone && !hasChanges:
		specsCopy[specIndex] = state.SpecProgress{
			Path:          current.Path,
			DoneCount:     current.DoneCount,
			LastStatus:    string(signal),
			LastHash:      currentHash,
			ModifiedFiles: false,
		}
	default: // signal != DONE && hasChanges
		specsCopy[specIndex] = state.SpecProgress{
			Path:          current.Path,
			DoneCount:     0,
			LastStatus:    string(signal),
			LastHash:      currentHash,
			ModifiedFiles: true,
		}
	}

	updated := cloneWith(st, specsCopy, signal)
	doneCount := specsCopy[specIndex].DoneCount

	if signal == state.StatusStuck {
		return Result{Action: ActionExit, ExitCode: 2, State: updated, SpecDoneCount: doneCount}
	}
	if allDone(specsCopy) {
		return Result{Action: ActionExit, ExitCode: 0, State: updated, SpecDoneCount: doneCount}
	}
	return Result{Action: ActionContinue, State: updated, SpecDoneCount: doneCount}
}

func allDone(specs []state.SpecProgress) bool {
	if len(specs) == 0 {
		return false
	}
	for _, s := range specs {
		if s.DoneCount < completionThreshold {
			return false
		}
	}
	return true
}

func cloneWith(st *state.MultiSpecState, specs []state.SpecProgress, status state.Status) *state.MultiSpecState {
	return &state.MultiSpecState{
		Version:      st.Version,
		Iteration:    st.Iteration,
		Status:       status,
		CurrentIndex: st.CurrentIndex,
		Specs:        specs,
	}
}
