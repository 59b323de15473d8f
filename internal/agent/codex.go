package agent

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/iwebercodes/ralph/internal/supervisor"
)

func workingDir() (string, error) {
	return os.Getwd()
}

// CodexAgent is Provider B: exhaustion is signalled on stderr, but only
// within the "runtime-error region" — the suffix of stderr that starts after
// the echoed user-prompt block and at the earliest of three anchors. This
// avoids false-positiving on a spec that merely mentions the signature words.
type CodexAgent struct {
	binary string
	name   string
}

func (a *CodexAgent) Name() string { return a.name }

func (a *CodexAgent) Invoke(prompt string, timeout *time.Duration, teePath string) supervisor.Result {
	cwd, _ := workingDir()
	argv := []string{a.binary, "exec", "-C", cwd, "--skip-git-repo-check", "--dangerously-bypass-approvals-and-sandbox", prompt}
	return supervisor.Invoke(argv, timeout, teePath)
}

var (
	promptStartLine = regexp.MustCompile(`(?m)^user$`)
	mcpStartupLine  = regexp.MustCompile(`(?m)^mcp startup:`)

	anchorTimestampError = regexp.MustCompile(`(?m)^\d{4}-\d{2}-\d{2}T.*\bERROR\b`)
	anchorErrorPrefix    = regexp.MustCompile(`(?m)^ERROR:`)
	anchorEndpointLit    = "codex_api::endpoint::responses"

	codexExhaustionPatterns = []string{
		"usage_limit_reached",
		"429 Too Many Requests",
		"You've hit your usage limit",
	}

	resetsInPattern = regexp.MustCompile(`resets_in_seconds:\s*(\d+)`)
)

// runtimeErrorRegion returns the suffix of stderr eligible for exhaustion
// matching, or "" if no anchor is found. It first skips past the echoed
// prompt block (a "^user$" line followed, possibly many lines later, by a
// "^mcp startup:" line), then finds the earliest of three anchors in what
// remains.
func runtimeErrorRegion(stderr string) string {
	searchFrom := 0
	if loc := promptStartLine.FindStringIndex(stderr); loc != nil {
		rest := stderr[loc[1]:]
		if mcpLoc := mcpStartupLine.FindStringIndex(rest); mcpLoc != nil {
			searchFrom = loc[1] + mcpLoc[1]
		}
	}

	remainder := stderr[searchFrom:]

	best := -1

	if idx := strings.Index(remainder, anchorEndpointLit); idx >= 0 {
		best = idx
	}
	if loc := anchorTimestampError.FindStringIndex(remainder); loc != nil {
		if best == -1 || loc[0] < best {
			best = loc[0]
		}
	}
	if loc := anchorErrorPrefix.FindStringIndex(remainder); loc != nil {
		if best == -1 || loc[0] < best {
			best = loc[0]
		}
	}

	if best == -1 {
		return ""
	}
	return remainder[best:]
}

// IsExhausted reports whether the result is Provider B's exhaustion
// signature: a non-zero exit and one of three literal patterns found within
// the runtime-error region.
func (a *CodexAgent) IsExhausted(r supervisor.Result) bool {
	if r.ExitCode == 0 {
		return false
	}
	region := runtimeErrorRegion(r.Error)
	if region == "" {
		return false
	}
	for _, pattern := range codexExhaustionPatterns {
		if strings.Contains(region, pattern) {
			return true
		}
	}
	return false
}

// ExhaustionReason renders an optional resets_in_seconds field found in the
// same region as a coarse duration.
func (a *CodexAgent) ExhaustionReason(r supervisor.Result) string {
	region := runtimeErrorRegion(r.Error)
	m := resetsInPattern.FindStringSubmatch(region)
	if m == nil {
		return "usage limit reached"
	}
	seconds, err := strconv.Atoi(m[1])
	if err != nil {
		return "usage limit reached"
	}
	return fmt.Sprintf("usage limit reached (resets in %s)", coarseDuration(seconds))
}

// coarseDuration renders a second count as e.g. "33 minutes" or
// "1 hour 5 minutes".
func coarseDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%d seconds", seconds)
	}
	minutes := seconds / 60
	if minutes < 60 {
		return pluralize(minutes, "minute")
	}
	hours := minutes / 60
	remMinutes := minutes % 60
	if remMinutes == 0 {
		return pluralize(hours, "hour")
	}
	return fmt.Sprintf("%s %s", pluralize(hours, "hour"), pluralize(remMinutes, "minute"))
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
