package agent

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/iwebercodes/ralph/internal/supervisor"
)

// ClaudeAgent is Provider A: exhaustion is signalled on stdout, and only on
// a non-zero exit.
type ClaudeAgent struct {
	binary string
	name   string
}

func (a *ClaudeAgent) Name() string { return a.name }

func (a *ClaudeAgent) Invoke(prompt string, timeout *time.Duration, teePath string) supervisor.Result {
	argv := []string{a.binary, "-p", prompt, "--output-format", "text", "--dangerously-skip-permissions"}
	return supervisor.Invoke(argv, timeout, teePath)
}

// claudeExhaustionPattern matches the literal signature on its own line:
// "Claude AI usage limit reached|<unix_epoch_seconds>".
var claudeExhaustionPattern = regexp.MustCompile(`(?m)^Claude AI usage limit reached\|(\d+)\s*$`)

// IsExhausted reports whether the result is Provider A's exhaustion
// signature. A successful exit (code 0) is never exhaustion, even if the
// signature text happens to be present.
func (a *ClaudeAgent) IsExhausted(r supervisor.Result) bool {
	if r.ExitCode == 0 {
		return false
	}
	return claudeExhaustionPattern.MatchString(r.Output)
}

// ExhaustionReason decodes the reset epoch and renders it as a UTC timestamp.
func (a *ClaudeAgent) ExhaustionReason(r supervisor.Result) string {
	m := claudeExhaustionPattern.FindStringSubmatch(r.Output)
	if m == nil {
		return "usage limit reached"
	}
	epoch, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return "usage limit reached"
	}
	resetAt := time.Unix(epoch, 0).UTC().Format("2006-01-02 15:04 UTC")
	return fmt.Sprintf("usage limit reached (resets at %s)", resetAt)
}
