package agent

import (
	"testing"
	"time"

	"github.com/iwebercodes/ralph/internal/config"
	"github.com/iwebercodes/ralph/internal/supervisor"
)

func TestBuildSelectsAdapterByKind(t *testing.T) {
	claude := Build(config.AgentConfig{Kind: config.AgentKindClaude, Binary: "claude"})
	if _, ok := claude.(*ClaudeAgent); !ok {
		t.Fatalf("expected *ClaudeAgent, got %T", claude)
	}
	codex := Build(config.AgentConfig{Kind: config.AgentKindCodex, Binary: "codex"})
	if _, ok := codex.(*CodexAgent); !ok {
		t.Fatalf("expected *CodexAgent, got %T", codex)
	}
}

func TestBuildDefaultsName(t *testing.T) {
	a := Build(config.AgentConfig{Kind: config.AgentKindClaude, Binary: "claude"})
	if a.Name() != "Claude" {
		t.Fatalf("expected default name Claude, got %q", a.Name())
	}
}

type stubAgent struct{ name string }

func (s *stubAgent) Name() string { return s.name }
func (s *stubAgent) Invoke(prompt string, timeout *time.Duration, teePath string) supervisor.Result {
	return supervisor.Result{}
}
func (s *stubAgent) IsExhausted(r supervisor.Result) bool        { return false }
func (s *stubAgent) ExhaustionReason(r supervisor.Result) string { return "" }

func TestPoolRemoveDropsOnlyTarget(t *testing.T) {
	a := &stubAgent{name: "a"}
	b := &stubAgent{name: "b"}
	pool := NewPool([]Agent{a, b})
	pool.Remove(a)
	if pool.IsEmpty() {
		t.Fatalf("expected pool to still have one agent")
	}
	if len(pool.AvailableNames()) != 1 || pool.AvailableNames()[0] != "b" {
		t.Fatalf("expected only 'b' to remain, got %v", pool.AvailableNames())
	}
}

func TestPoolIsEmptyAfterRemovingAll(t *testing.T) {
	a := &stubAgent{name: "a"}
	pool := NewPool([]Agent{a})
	pool.Remove(a)
	if !pool.IsEmpty() {
		t.Fatalf("expected pool to be empty")
	}
	if pool.Select() != nil {
		t.Fatalf("expected Select to return nil on empty pool")
	}
}

func TestPoolSelectFuncOverride(t *testing.T) {
	a := &stubAgent{name: "a"}
	b := &stubAgent{name: "b"}
	pool := NewPool([]Agent{a, b})
	pool.SelectFunc = func(agents []Agent) Agent { return agents[len(agents)-1] }
	if pool.Select().Name() != "b" {
		t.Fatalf("expected SelectFunc override to pick 'b'")
	}
}
