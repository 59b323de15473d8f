package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iwebercodes/ralph/internal/config"
	"github.com/iwebercodes/ralph/internal/specs"
	"github.com/iwebercodes/ralph/internal/state"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new ralph workspace",
	Long: `Initialize a ralph workspace in the current directory.

Creates:
  - .ralph.yaml configuration file (if absent)
  - .ralph/ state directory and its handoff/history scaffolding

If .ralph.yaml already exists it is left untouched.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	fmt.Println("Initializing ralph workspace...")

	if config.Exists(cwd) {
		fmt.Println("  - .ralph.yaml exists, leaving untouched")
	} else {
		if err := config.Save(cwd, config.Default()); err != nil {
			return fmt.Errorf("failed to create .ralph.yaml: %w", err)
		}
		doneColor.Println("  + Created .ralph.yaml")
	}

	discovered, err := specs.Discover(cwd)
	if err != nil {
		return fmt.Errorf("failed to discover specs: %w", err)
	}
	relPaths := make([]string, len(discovered))
	for i, s := range discovered {
		relPaths[i] = s.RelPosix
	}

	if _, err := state.EnsureState(cwd, relPaths); err != nil {
		return fmt.Errorf("failed to initialize .ralph/: %w", err)
	}
	doneColor.Println("  + Initialized .ralph/")

	if len(discovered) == 0 {
		warnColor.Println("  ! No spec files found yet")
		fmt.Println("    Add a PROMPT.md or specs/*.spec.md, then run `ralph run`.")
	} else {
		fmt.Printf("  - Found %d spec file(s)\n", len(discovered))
	}

	fmt.Println("\nNext: run `ralph run` to start the loop.")
	return nil
}
