// package supervisor launches a child assistant process, streams its output
// concurrently to memory and an optional tee file, and enforces a wall-clock
// timeout and crash classification.
package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one invocation.
type Result struct {
	Output    string // full captured stdout
	Error     string // full captured stderr, "" if none
	ExitCode  int
	ErrorText string // non-empty only on launch failure or timeout
}

const pollInterval = 100 * time.Millisecond

// Invoke launches argv[0] with argv[1:], streaming stdout/stderr concurrently.
// If teePath is non-empty, it is truncated before the child starts and every
// line from either stream is appended to it under a mutex, so interleaving
// between stdout and stderr is well-defined. A nil timeout disables the
// wall-clock deadline.
func Invoke(argv []string, timeout *time.Duration, teePath string) Result {
	if len(argv) == 0 {
		return Result{ExitCode: -1, ErrorText: "empty command"}
	}

	binPath, err := exec.LookPath(argv[0])
	if err != nil {
		return Result{ExitCode: -1, ErrorText: fmt.Sprintf("%s not found in PATH", argv[0])}
	}

	var teeFile *os.File
	if teePath != "" {
		teeFile, err = os.Create(teePath)
		if err != nil {
			return Result{ExitCode: -1, ErrorText: fmt.Sprintf("failed to open tee file: %v", err)}
		}
		defer teeFile.Close()
	}

	cmd := exec.Command(binPath, argv[1:]...)
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{ExitCode: -1, ErrorText: fmt.Sprintf("failed to capture stdout: %v", err)}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Result{ExitCode: -1, ErrorText: fmt.Sprintf("failed to capture stderr: %v", err)}
	}

	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1, ErrorText: fmt.Sprintf("failed to start %s: %v", argv[0], err)}
	}

	var teeMu sync.Mutex
	var stdoutBuf, stderrBuf strings.Builder

	drain := func(r io.Reader, buf *strings.Builder) error {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			buf.WriteString(line)
			buf.WriteString("\n")
			if teeFile != nil {
				teeMu.Lock()
				fmt.Fprintln(teeFile, line)
				teeFile.Sync()
				teeMu.Unlock()
			}
		}
		return nil
	}

	g := new(errgroup.Group)
	g.Go(func() error { return drain(stdoutPipe, &stdoutBuf) })
	g.Go(func() error { return drain(stderrPipe, &stderrBuf) })

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var waitErr error
	var timedOut bool

	if timeout == nil {
		waitErr = <-done
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
	loop:
		for {
			select {
			case waitErr = <-done:
				break loop
			case <-ctx.Done():
				timedOut = true
				_ = cmd.Process.Kill()
				waitErr = <-done
				break loop
			case <-ticker.C:
			}
		}
	}

	// The drainers' Scan loops end on their own once the child's pipes close
	// (at exit or after Kill), so Wait returns promptly without a separate
	// join-timeout; errors from Scan itself are intentionally ignored above.
	_ = g.Wait()

	if timedOut {
		return Result{
			Output:    stdoutBuf.String(),
			Error:     stderrBuf.String(),
			ExitCode:  -1,
			ErrorText: fmt.Sprintf("%s invocation timed out", argv[0]),
		}
	}

	exitCode := 0
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	return Result{
		Output:   stdoutBuf.String(),
		Error:    stderrBuf.String(),
		ExitCode: exitCode,
	}
}

// IsCrash classifies a non-exhausted result as a crash: either the captured
// stdout is entirely whitespace, or the exit code is non-zero.
func IsCrash(r Result) (bool, string) {
	if strings.TrimSpace(r.Output) == "" {
		return true, "empty output from agent"
	}
	if r.ExitCode != 0 {
		return true, fmt.Sprintf("non-zero exit code (%d)", r.ExitCode)
	}
	return false, ""
}

// FirstNonEmptyLine returns the first non-blank line of text, or "".
func FirstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}
