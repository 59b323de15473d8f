package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iwebercodes/ralph/internal/agent"
	"github.com/iwebercodes/ralph/internal/config"
	"github.com/iwebercodes/ralph/internal/loopengine"
	"github.com/iwebercodes/ralph/internal/state"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the autonomous development loop",
	Long: `Run repeatedly invokes a coding assistant against the workspace's
spec files until every spec has been confirmed DONE three rotations in a
row, the iteration ceiling is reached, every configured assistant has
signalled exhaustion, or an assistant signals STUCK.

Exit codes:
  0  goal achieved
  1  no spec files found
  2  stuck, needs human help
  3  iteration ceiling reached
  4  every assistant in the pool is exhausted`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().Int("max-iterations", 0, "override max_iterations from .ralph.yaml")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	root, err := config.FindProjectRoot()
	if err != nil {
		return err
	}
	cfg := config.LoadOrDefault(root)

	if maxIter, _ := cmd.Flags().GetInt("max-iterations"); maxIter > 0 {
		cfg.MaxIterations = maxIter
	}

	agents := make([]agent.Agent, 0, len(cfg.Agents))
	for _, a := range cfg.Agents {
		agents = append(agents, agent.Build(a))
	}
	pool := agent.NewPool(agents)
	if pool.IsEmpty() {
		return fmt.Errorf("no agents configured")
	}

	var timeout *time.Duration
	if secs := cfg.Timeout(); secs != nil {
		d := time.Duration(*secs) * time.Second
		timeout = &d
	}

	result := loopengine.Run(loopengine.Config{
		Root:             root,
		MaxIterations:    cfg.MaxIterations,
		TestCmd:          cfg.TestCmd,
		Timeout:          timeout,
		Pool:             pool,
		OnIterationStart: onIterationStart,
		OnIterationEnd:   onIterationEnd,
	})

	printRunResult(result)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	exitWithCode(result.ExitCode)
	return nil
}

func onIterationStart(iteration, maxIterations, doneCount int, agentName, specPath string) {
	agentColor.Printf("[%d/%d] ", iteration, maxIterations)
	fmt.Printf("%s ", agentName)
	dimColor.Printf("(done=%d) %s\n", doneCount, specPath)
}

func onIterationEnd(iteration int, result loopengine.IterationResult, doneCount int, agentName, specPath string) {
	switch result.Status {
	case state.StatusDone:
		doneColor.Printf("  -> DONE (%d/3) %s\n", doneCount, specPath)
	case state.StatusStuck:
		errColor.Printf("  -> STUCK %s\n", specPath)
	case state.StatusRotate:
		fmt.Printf("  -> ROTATE %s\n", specPath)
	default:
		fmt.Printf("  -> %s %s\n", result.Status, specPath)
	}
	if result.Crashed {
		warnColor.Printf("  ! crash: %s\n", result.CrashSummary)
	}
	if result.AgentExhausted {
		warnColor.Printf("  ! %s exhausted: %s\n", agentName, result.ExhaustionReason)
	}
}

func printRunResult(result loopengine.LoopResult) {
	fmt.Println()
	switch result.ExitCode {
	case loopengine.ExitGoalAchieved:
		doneColor.Println(result.Message)
	case loopengine.ExitStuck:
		errColor.Println(result.Message)
	default:
		warnColor.Println(result.Message)
	}
	fmt.Printf("Iterations run: %d\n", result.IterationsRun)
}
