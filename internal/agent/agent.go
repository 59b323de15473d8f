// package agent implements the Agent Pool and the two provider-specific
// Subprocess Supervisor adapters (Provider A / stdout-signature and
// Provider B / stderr-signature exhaustion detection).
package agent

import (
	"math/rand"
	"time"

	"github.com/iwebercodes/ralph/internal/config"
	"github.com/iwebercodes/ralph/internal/supervisor"
)

// Agent is the capability set the loop engine drives: a name, an invoke
// method, and exhaustion detection expressed as a pure function over the
// captured result.
type Agent interface {
	Name() string
	Invoke(prompt string, timeout *time.Duration, teePath string) supervisor.Result
	IsExhausted(r supervisor.Result) bool
	ExhaustionReason(r supervisor.Result) string
}

// Build constructs the concrete Agent for a config entry's kind.
func Build(cfg config.AgentConfig) Agent {
	switch cfg.Kind {
	case config.AgentKindCodex:
		return &CodexAgent{binary: cfg.Binary, name: nameOr(cfg.Name, "Codex")}
	default:
		return &ClaudeAgent{binary: cfg.Binary, name: nameOr(cfg.Name, "Claude")}
	}
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

// Pool is a small mutable set of currently-usable agents.
type Pool struct {
	agents []Agent
	rand   *rand.Rand

	// SelectFunc, if set, overrides Select's random choice so tests can make
	// agent selection deterministic.
	SelectFunc func([]Agent) Agent
}

// NewPool builds a pool from the given agents.
func NewPool(agents []Agent) *Pool {
	return &Pool{
		agents: append([]Agent(nil), agents...),
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// IsEmpty reports whether the pool has no remaining agents.
func (p *Pool) IsEmpty() bool {
	return len(p.agents) == 0
}

// AvailableNames returns the names of all agents currently in the pool.
func (p *Pool) AvailableNames() []string {
	names := make([]string, len(p.agents))
	for i, a := range p.agents {
		names[i] = a.Name()
	}
	return names
}

// Select picks one agent uniformly at random. Randomness is not a security
// property here; SelectFunc exists so tests can override selection
// deterministically.
func (p *Pool) Select() Agent {
	if len(p.agents) == 0 {
		return nil
	}
	if p.SelectFunc != nil {
		return p.SelectFunc(p.agents)
	}
	return p.agents[p.rand.Intn(len(p.agents))]
}

// Remove drops an agent from the pool. Agents never re-enter once removed.
func (p *Pool) Remove(target Agent) {
	for i, a := range p.agents {
		if a == target {
			p.agents = append(p.agents[:i], p.agents[i+1:]...)
			return
		}
	}
}
