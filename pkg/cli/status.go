package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iwebercodes/ralph/internal/config"
	"github.com/iwebercodes/ralph/internal/runstate"
	"github.com/iwebercodes/ralph/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current loop state",
	Long: `Display the workspace's recorded verification progress per spec,
plus whether a run is currently live.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().Bool("json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	root, err := config.FindProjectRoot()
	if err != nil {
		return err
	}

	st, err := state.ReadMultiState(root)
	if err != nil {
		return fmt.Errorf("failed to read state: %w", err)
	}
	run, err := runstate.Read(root)
	if err != nil {
		return fmt.Errorf("failed to read run state: %w", err)
	}

	if jsonOutput {
		return outputStatusJSON(st, run)
	}
	return outputStatusText(st, run)
}

func outputStatusJSON(st *state.MultiSpecState, run *runstate.RunState) error {
	output := map[string]interface{}{
		"state":   st,
		"running": run != nil,
		"run":     run,
	}
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func outputStatusText(st *state.MultiSpecState, run *runstate.RunState) error {
	if st == nil || len(st.Specs) == 0 {
		fmt.Println()
		fmt.Println("No state recorded yet. Run `ralph init` then `ralph run`.")
		fmt.Println()
		return nil
	}

	fmt.Println()
	boldColor.Println("Spec progress:")
	for i, sp := range st.Specs {
		marker := "  "
		if i == st.CurrentIndex {
			marker = "->"
		}
		lastStatus := sp.LastStatus
		if lastStatus == "" {
			lastStatus = "-"
		}
		fmt.Printf("%s %-40s done=%d/3  last=%s\n", marker, sp.Path, sp.DoneCount, lastStatus)
	}
	fmt.Println()

	if run != nil {
		agentColor.Printf("Run in progress: agent=%s iteration=%d/%d pid=%d\n", run.AgentName, run.Iteration, run.MaxIterations, run.PID)
	} else {
		dimColor.Println("No run currently in progress.")
	}
	fmt.Println()
	return nil
}
