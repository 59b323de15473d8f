package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iwebercodes/ralph/internal/config"
	"github.com/iwebercodes/ralph/internal/runstate"
	"github.com/iwebercodes/ralph/internal/state"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear recorded verification progress",
	Long: `Delete .ralph/state.json and the run-state sentinel, resetting every
spec's done_count and last-status tracking. Handoffs, guardrails, and
history logs are left untouched, so lessons learned survive the reset.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().Bool("yes", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	root, err := config.FindProjectRoot()
	if err != nil {
		return err
	}

	skipConfirm, _ := cmd.Flags().GetBool("yes")
	if !skipConfirm {
		warnColor.Println("This clears all recorded verification progress (done_count, last status).")
		fmt.Print("Continue? [y/N] ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	statePath := state.StatePath(root)
	if err := os.Remove(statePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove state.json: %w", err)
	}
	// Without state.json the next run migrates the legacy done_count mirror
	// into the first spec, so the mirror is removed as well.
	doneCountPath := filepath.Join(state.RalphDirPath(root), state.DoneCountFile)
	if err := os.Remove(doneCountPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove done_count: %w", err)
	}
	if err := runstate.Delete(root); err != nil {
		return fmt.Errorf("failed to remove run state: %w", err)
	}

	doneColor.Println("State reset. Handoffs, guardrails, and history were preserved.")
	return nil
}
