// package loopengine is the outer control loop: it orchestrates the Spec
// Index, State Store, Snapshot, Subprocess Supervisor, Agent Pool, Counter
// State Machine, and Priority Scheduler into the per-iteration protocol and
// the restart-safe outer run loop.
package loopengine

import (
	"fmt"
	"os"
	"time"

	"github.com/iwebercodes/ralph/internal/agent"
	"github.com/iwebercodes/ralph/internal/counter"
	"github.com/iwebercodes/ralph/internal/ignorespec"
	"github.com/iwebercodes/ralph/internal/prompt"
	"github.com/iwebercodes/ralph/internal/runstate"
	"github.com/iwebercodes/ralph/internal/scheduler"
	"github.com/iwebercodes/ralph/internal/snapshot"
	"github.com/iwebercodes/ralph/internal/specs"
	"github.com/iwebercodes/ralph/internal/state"
	"github.com/iwebercodes/ralph/internal/supervisor"
)

// Exit codes, per §4.8.
const (
	ExitGoalAchieved  = 0
	ExitNoSpecs       = 1
	ExitStuck         = 2
	ExitMaxIterations = 3
	ExitPoolDrained   = 4
)

// OnIterationStart is called once the agent and iteration number are fixed,
// before the agent is invoked.
type OnIterationStart func(iteration, maxIterations, doneCount int, agentName, specPath string)

// OnIterationEnd is called after state has been updated for the iteration.
type OnIterationEnd func(iteration int, result IterationResult, doneCount int, agentName, specPath string)

// Config configures one call to Run.
type Config struct {
	Root          string
	MaxIterations int
	TestCmd       string
	Timeout       *time.Duration
	Pool          *agent.Pool

	OnIterationStart OnIterationStart
	OnIterationEnd   OnIterationEnd
}

// IterationResult is the outcome of one iteration.
type IterationResult struct {
	Status            state.Status
	FilesChanged      []string
	Test              *TestResult
	Output            string
	Crashed           bool
	CrashSummary      string
	AgentExhausted    bool
	ExhaustionReason  string
}

// LoopResult is the outcome of a full Run.
type LoopResult struct {
	ExitCode      int
	Message       string
	IterationsRun int
}

// Run executes the outer Ralph loop until completion, a terminal signal, the
// iteration ceiling, or pool exhaustion.
func Run(cfg Config) LoopResult {
	root := cfg.Root
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 20
	}

	discovered, err := specs.Discover(root)
	if err != nil || len(discovered) == 0 {
		return LoopResult{ExitCode: ExitNoSpecs, Message: "No spec files found"}
	}

	relPaths := relPosixPaths(discovered)
	st, err := state.EnsureState(root, relPaths)
	if err != nil {
		return LoopResult{ExitCode: ExitNoSpecs, Message: err.Error()}
	}

	if allDone(st) {
		return LoopResult{ExitCode: ExitGoalAchieved, Message: "Goal achieved!"}
	}

	sorted := scheduler.SortSpecs(discovered, st)
	sortedPaths := relPosixPaths(sorted)
	startIdx, found := scheduler.StartupIndex(sortedPaths, st)
	if !found {
		return LoopResult{ExitCode: ExitGoalAchieved, Message: "Goal achieved!"}
	}
	if st.CurrentIndex != startIdx {
		st.CurrentIndex = startIdx
		if err := state.WriteMultiState(root, st); err != nil {
			return LoopResult{ExitCode: ExitNoSpecs, Message: err.Error()}
		}
	}

	iteration := st.Iteration
	iterationsRun := 0
	startedAt := runstate.NowISO()

	if err := runstate.Write(root, runstate.RunState{
		PID:               os.Getpid(),
		StartedAtISO:      startedAt,
		Iteration:         iteration,
		MaxIterations:     cfg.MaxIterations,
		AgentName:         "pending",
		AgentStartedAtISO: startedAt,
	}); err != nil {
		return LoopResult{ExitCode: ExitNoSpecs, Message: err.Error()}
	}
	defer runstate.Delete(root)

	for iteration < cfg.MaxIterations {
		if allDone(st) {
			return LoopResult{ExitCode: ExitGoalAchieved, Message: "Goal achieved!", IterationsRun: iterationsRun}
		}
		if cfg.Pool.IsEmpty() {
			return LoopResult{ExitCode: ExitPoolDrained, Message: "All agents exhausted", IterationsRun: iterationsRun}
		}

		discovered, err = specs.Discover(root)
		if err != nil || len(discovered) == 0 {
			return LoopResult{ExitCode: ExitNoSpecs, Message: "No spec files found", IterationsRun: iterationsRun}
		}
		previousPaths := make(map[string]bool, len(st.Specs))
		for _, sp := range st.Specs {
			previousPaths[sp.Path] = true
		}

		relPaths = relPosixPaths(discovered)
		st, err = state.EnsureState(root, relPaths)
		if err != nil {
			return LoopResult{ExitCode: ExitNoSpecs, Message: err.Error(), IterationsRun: iterationsRun}
		}
		specByPath := make(map[string]specs.Spec, len(discovered))
		for _, s := range discovered {
			specByPath[s.RelPosix] = s
		}

		selected := cfg.Pool.Select()

		iteration++
		st.Iteration = iteration
		if err := state.WriteMultiState(root, st); err != nil {
			return LoopResult{ExitCode: ExitNoSpecs, Message: err.Error(), IterationsRun: iterationsRun}
		}
		state.WriteIterationMirror(root, iteration)
		iterationsRun++

		runstate.Write(root, runstate.RunState{
			PID:               os.Getpid(),
			StartedAtISO:      startedAt,
			Iteration:         iteration,
			MaxIterations:     cfg.MaxIterations,
			AgentName:         selected.Name(),
			AgentStartedAtISO: runstate.NowISO(),
		})

		currentSpecProgress := st.Specs[st.CurrentIndex]
		currentSpec := specByPath[currentSpecProgress.Path]
		specGoal := specs.ReadContent(currentSpec.Path)

		if cfg.OnIterationStart != nil {
			cfg.OnIterationStart(iteration, cfg.MaxIterations, currentSpecProgress.DoneCount, selected.Name(), currentSpecProgress.Path)
		}

		result := runIteration(root, iteration, cfg.MaxIterations, cfg.TestCmd, selected, currentSpecProgress.Path, specGoal, currentSpecProgress.DoneCount, cfg.Timeout)

		if result.AgentExhausted {
			cfg.Pool.Remove(selected)
		}

		currentHash := specs.ContentHash(currentSpec.Path)
		cr := counter.Apply(st, st.CurrentIndex, result.Status, result.FilesChanged, currentHash)
		st = cr.State
		if err := state.WriteMultiState(root, st); err != nil {
			return LoopResult{ExitCode: ExitNoSpecs, Message: err.Error(), IterationsRun: iterationsRun}
		}
		state.WriteDoneCountMirror(root, cr.SpecDoneCount)

		if cfg.OnIterationEnd != nil {
			cfg.OnIterationEnd(iteration, result, cr.SpecDoneCount, selected.Name(), currentSpecProgress.Path)
		}

		if result.AgentExhausted && cfg.Pool.IsEmpty() {
			return LoopResult{ExitCode: ExitPoolDrained, Message: "All agents exhausted", IterationsRun: iterationsRun}
		}

		if cr.Action == counter.ActionExit {
			switch cr.ExitCode {
			case 0:
				return LoopResult{ExitCode: ExitGoalAchieved, Message: "Goal achieved!", IterationsRun: iterationsRun}
			case 2:
				return LoopResult{ExitCode: ExitStuck, Message: "Ralph needs help. Check .ralph/handoffs/", IterationsRun: iterationsRun}
			default:
				code := cr.ExitCode
				if code == 0 {
					code = 1
				}
				return LoopResult{ExitCode: code, Message: "Unknown error", IterationsRun: iterationsRun}
			}
		}

		if len(st.Specs) > 0 {
			newSpecs, err := specs.Discover(root)
			if err != nil || len(newSpecs) == 0 {
				return LoopResult{ExitCode: ExitNoSpecs, Message: "No spec files found", IterationsRun: iterationsRun}
			}
			newPaths := relPosixPaths(newSpecs)
			st, err = state.EnsureState(root, newPaths)
			if err != nil {
				return LoopResult{ExitCode: ExitNoSpecs, Message: err.Error(), IterationsRun: iterationsRun}
			}

			sorted = scheduler.SortSpecs(newSpecs, st)
			sortedPaths = relPosixPaths(sorted)

			addedPaths := make(map[string]bool)
			for _, p := range newPaths {
				if !previousPaths[p] {
					addedPaths[p] = true
				}
			}

			nextIdx := scheduler.NextIndex(st, st.CurrentIndex, result.Status, len(result.FilesChanged) > 0, sortedPaths, addedPaths)
			st.CurrentIndex = nextIdx
			if err := state.WriteMultiState(root, st); err != nil {
				return LoopResult{ExitCode: ExitNoSpecs, Message: err.Error(), IterationsRun: iterationsRun}
			}
		}
	}

	return LoopResult{ExitCode: ExitMaxIterations, Message: fmt.Sprintf("Max iterations reached (%d)", cfg.MaxIterations), IterationsRun: iterationsRun}
}

// runIteration executes the per-iteration protocol steps 5-12: assemble the
// prompt, invoke the agent, classify exhaustion and crashes, snapshot the
// workspace, optionally run tests, and write the history log.
func runIteration(root string, iteration, maxIter int, testCmd string, a agent.Agent, specPath, specGoal string, doneCount int, timeout *time.Duration) IterationResult {
	matcher, err := ignorespec.Load(root)
	if err != nil {
		matcher, _ = ignorespec.Load("")
	}

	before, _ := snapshot.Take(root, matcher)

	handoff := state.ReadHandoff(root, specPath)
	guardrails := state.ReadGuardrails(root)
	handoffPath := state.HandoffPath(root, specPath)

	rec := promptRecord(iteration, maxIter, doneCount, specGoal, handoff, guardrails, specPath, handoffPath)
	renderedPrompt := assemblePrompt(rec)

	state.WriteStatusFile(root, state.StatusIdle)

	agentResult := a.Invoke(renderedPrompt, timeout, runstate.CurrentLogPath(root))

	status := state.ReadStatusFile(root)

	exhausted := a.IsExhausted(agentResult)
	var crashSummary, errorSummary string
	crashed := false
	if !exhausted {
		var isCrash bool
		isCrash, crashSummary = isAgentCrash(agentResult)
		if isCrash {
			crashed = true
			status = state.StatusRotate
			state.WriteStatusFile(root, status)
			errorSummary = firstNonEmptyLine(agentResult.Error)
			state.AppendCrashNote(root, specPath, crashSummary, errorSummary, agentResult.ExitCode)
		}
	}

	after, _ := snapshot.Take(root, matcher)
	filesChanged := snapshot.Compare(before, after)

	var testResult *TestResult
	if testCmd != "" {
		tr := RunTestCommand(root, testCmd)
		testResult = &tr
	}

	exhaustionReason := ""
	if exhausted {
		exhaustionReason = a.ExhaustionReason(agentResult)
	}

	logContent := formatLogEntry(iteration, renderedPrompt, agentResult.Output, a.Name(), status, filesChanged, testResult, agentResult.Error, agentResult.ExitCode, crashSummary)
	state.WriteHistory(root, specPath, iteration, logContent)

	return IterationResult{
		Status:           status,
		FilesChanged:     filesChanged,
		Test:             testResult,
		Output:           agentResult.Output,
		Crashed:          crashed,
		CrashSummary:     crashSummary,
		AgentExhausted:   exhausted,
		ExhaustionReason: exhaustionReason,
	}
}

// promptRecord builds the prompt.Record the default template is rendered
// from for one iteration.
func promptRecord(iteration, maxIter, doneCount int, goal, handoff, guardrails, specPath, handoffPath string) prompt.Record {
	return prompt.Record{
		Iteration:     iteration,
		MaxIterations: maxIter,
		DoneCount:     doneCount,
		Mode:          prompt.Mode(doneCount),
		Goal:          goal,
		Handoff:       handoff,
		Guardrails:    guardrails,
		SpecPath:      specPath,
		HandoffPath:   handoffPath,
	}
}

func assemblePrompt(rec prompt.Record) string {
	return prompt.Assemble(rec)
}

func isAgentCrash(r supervisor.Result) (bool, string) {
	return supervisor.IsCrash(r)
}

func firstNonEmptyLine(text string) string {
	return supervisor.FirstNonEmptyLine(text)
}

func allDone(st *state.MultiSpecState) bool {
	if len(st.Specs) == 0 {
		return false
	}
	for _, sp := range st.Specs {
		if sp.DoneCount < 3 {
			return false
		}
	}
	return true
}

func relPosixPaths(ss []specs.Spec) []string {
	paths := make([]string, len(ss))
	for i, s := range ss {
		paths[i] = s.RelPosix
	}
	return paths
}
