package agent

import (
	"strings"
	"testing"

	"github.com/iwebercodes/ralph/internal/supervisor"
)

func TestCodexIsExhaustedWithinRuntimeErrorRegion(t *testing.T) {
	a := &CodexAgent{binary: "codex", name: "Codex"}
	stderr := "user\nsome echoed prompt text\nmcp startup: ok\n" +
		"2026-02-11T21:00:00Z ERROR codex_api::endpoint::responses usage_limit_reached resets_in_seconds: 120\n"
	r := supervisor.Result{Error: stderr, ExitCode: 1}
	if !a.IsExhausted(r) {
		t.Fatalf("expected exhaustion detected within runtime-error region")
	}
}

func TestCodexNotExhaustedWhenSignatureOnlyInEchoedPrompt(t *testing.T) {
	a := &CodexAgent{binary: "codex", name: "Codex"}
	stderr := "user\nplease handle usage_limit_reached errors gracefully\nmcp startup: ok\nERROR: unrelated failure\n"
	r := supervisor.Result{Error: stderr, ExitCode: 1}
	if a.IsExhausted(r) {
		t.Fatalf("expected no exhaustion when signature only appears in echoed prompt")
	}
}

func TestCodexNeverExhaustedOnCleanExit(t *testing.T) {
	a := &CodexAgent{binary: "codex", name: "Codex"}
	stderr := "ERROR: usage_limit_reached\n"
	r := supervisor.Result{Error: stderr, ExitCode: 0}
	if a.IsExhausted(r) {
		t.Fatalf("expected no exhaustion on exit code 0")
	}
}

func TestCodexExhaustionReasonRendersResetDuration(t *testing.T) {
	a := &CodexAgent{binary: "codex", name: "Codex"}
	stderr := "user\nprompt\nmcp startup: ok\nERROR: usage_limit_reached resets_in_seconds: 125\n"
	r := supervisor.Result{Error: stderr, ExitCode: 1}
	reason := a.ExhaustionReason(r)
	if !strings.Contains(reason, "2 minutes") {
		t.Fatalf("expected coarse duration in reason, got %q", reason)
	}
}

func TestRuntimeErrorRegionReturnsEmptyWithoutAnchor(t *testing.T) {
	stderr := "user\nprompt\nmcp startup: ok\nnothing interesting here\n"
	if region := runtimeErrorRegion(stderr); region != "" {
		t.Fatalf("expected empty region, got %q", region)
	}
}
