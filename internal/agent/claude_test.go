package agent

import (
	"strings"
	"testing"

	"github.com/iwebercodes/ralph/internal/supervisor"
)

func TestClaudeIsExhaustedOnSignatureWithNonZeroExit(t *testing.T) {
	a := &ClaudeAgent{binary: "claude", name: "Claude"}
	r := supervisor.Result{Output: "Claude AI usage limit reached|1770843600\n", ExitCode: 1}
	if !a.IsExhausted(r) {
		t.Fatalf("expected exhaustion to be detected")
	}
}

func TestClaudeNeverExhaustedOnCleanExit(t *testing.T) {
	a := &ClaudeAgent{binary: "claude", name: "Claude"}
	r := supervisor.Result{Output: "Claude AI usage limit reached|1770843600\n", ExitCode: 0}
	if a.IsExhausted(r) {
		t.Fatalf("expected no exhaustion on exit code 0")
	}
}

func TestClaudeExhaustionReasonFormatsResetEpoch(t *testing.T) {
	a := &ClaudeAgent{binary: "claude", name: "Claude"}
	r := supervisor.Result{Output: "Claude AI usage limit reached|1770843600\n", ExitCode: 1}
	reason := a.ExhaustionReason(r)
	if !strings.Contains(reason, "2026-02-11 21:00 UTC") {
		t.Fatalf("expected formatted reset timestamp, got %q", reason)
	}
}

func TestClaudeNotExhaustedWithoutSignature(t *testing.T) {
	a := &ClaudeAgent{binary: "claude", name: "Claude"}
	r := supervisor.Result{Output: "some other failure", ExitCode: 1}
	if a.IsExhausted(r) {
		t.Fatalf("expected no exhaustion without signature")
	}
}
