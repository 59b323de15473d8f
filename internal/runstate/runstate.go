// package runstate manages the ephemeral RunState sentinel and the current
// iteration's live tee log, both under .ralph/run/.
package runstate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/iwebercodes/ralph/internal/state"
)

const (
	runDirName   = "run"
	sentinelFile = "run.json"
	liveLogFile  = "current.log"
)

// RunState is an ephemeral sentinel written at loop start and refreshed
// before each iteration. External tools use its presence to detect a live run.
type RunState struct {
	PID              int    `json:"pid"`
	StartedAtISO     string `json:"started_at_iso"`
	Iteration        int    `json:"iteration"`
	MaxIterations    int    `json:"max_iterations"`
	AgentName        string `json:"agent_name"`
	AgentStartedAtISO string `json:"agent_started_at_iso"`
}

func runDir(root string) string {
	return filepath.Join(state.RalphDirPath(root), runDirName)
}

func sentinelPath(root string) string {
	return filepath.Join(runDir(root), sentinelFile)
}

// CurrentLogPath returns the path of the live tee log for the iteration in
// progress.
func CurrentLogPath(root string) string {
	return filepath.Join(runDir(root), liveLogFile)
}

// NowISO returns the current UTC time formatted as RFC3339.
func NowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Write persists the run-state sentinel.
func Write(root string, rs RunState) error {
	if err := os.MkdirAll(runDir(root), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(sentinelPath(root), data, 0644)
}

// Read reads the run-state sentinel, returning (nil, nil) if absent.
func Read(root string) (*RunState, error) {
	data, err := os.ReadFile(sentinelPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var rs RunState
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, nil
	}
	return &rs, nil
}

// Delete removes the run-state sentinel. It is idempotent: a missing
// sentinel is not an error.
func Delete(root string) error {
	err := os.Remove(sentinelPath(root))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
