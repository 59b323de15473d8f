package loopengine

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// TestResult is the outcome of an optional post-iteration test command.
// Purely informational: it never affects loop control flow or counters.
type TestResult struct {
	ExitCode int
	Output   string
}

const testCommandTimeout = 5 * time.Minute

// RunTestCommand runs cmd through the shell with a 5-minute hard timeout,
// combining stdout and stderr into a single output string.
func RunTestCommand(root string, cmd string) TestResult {
	ctx, cancel := context.WithTimeout(context.Background(), testCommandTimeout)
	defer cancel()

	c := exec.CommandContext(ctx, "sh", "-c", cmd)
	c.Dir = root
	out, err := c.CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		return TestResult{ExitCode: -1, Output: "Test command timed out"}
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return TestResult{ExitCode: exitErr.ExitCode(), Output: string(out)}
		}
		return TestResult{ExitCode: -1, Output: fmt.Sprintf("Test command failed: %v", err)}
	}
	return TestResult{ExitCode: 0, Output: string(out)}
}
