package loopengine

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwebercodes/ralph/internal/state"
)

const rule = "================================================================================"

// formatLogEntry renders one history log entry, matching the canonical
// layout: a rotation header, the prompt sent, the captured agent output,
// an optional error block, an optional crash block, the resulting status
// and change list, and an optional test-command block.
func formatLogEntry(iteration int, prompt, agentOutput, agentName string, status state.Status, filesChanged []string, test *TestResult, agentError string, agentExitCode int, crashSummary string) string {
	var b strings.Builder

	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "RALPH ROTATION %d [%s] - %s\n", iteration, agentName, time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "--- PROMPT SENT ---")
	fmt.Fprintln(&b, prompt)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "--- AGENT OUTPUT ---")
	fmt.Fprintln(&b, agentOutput)

	if agentError != "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "--- AGENT ERROR ---")
		fmt.Fprintln(&b, agentError)
	}

	if crashSummary != "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "--- CRASH DETECTED ---")
		fmt.Fprintf(&b, "Summary: %s\n", crashSummary)
		fmt.Fprintf(&b, "Exit Code: %d\n", agentExitCode)
		fmt.Fprintf(&b, "Output Bytes: %d\n", len(agentOutput))
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "--- STATUS ---")
	fmt.Fprintf(&b, "Signal: %s\n", status)
	fmt.Fprintf(&b, "Files Changed: %d\n", len(filesChanged))
	for _, f := range filesChanged {
		fmt.Fprintf(&b, "  - %s\n", f)
	}

	if test != nil {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "--- TEST COMMAND ---")
		fmt.Fprintf(&b, "Exit Code: %d\n", test.ExitCode)
		fmt.Fprintln(&b, "Output:")
		fmt.Fprintln(&b, test.Output)
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, rule)

	return b.String()
}
