// package cli implements the ralph command-line interface: flag parsing and
// command wiring only. Every decision described by the core lives in
// internal/*; the run command reaches it through internal/loopengine.Run,
// while init, status and reset call internal/state directly.
package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	dimColor   = color.New(color.Faint)
	boldColor  = color.New(color.Bold)
	agentColor = color.New(color.FgCyan)
	doneColor  = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	errColor   = color.New(color.FgRed, color.Bold)
)

// banner returns the ralph ASCII art banner.
func banner() string {
	lines := []string{
		`           _       _`,
		`  _ __ __ _| |_ __ | |__`,
		" | '__/ _` | '_ \\| '_ \\",
		` | | | (_| | | |_) | | | |`,
		` |_|  \__,_|_| .__/|_| |_|`,
		`             |_|`,
	}
	var result string
	for _, line := range lines {
		result += boldColor.Sprint(line) + "\n"
	}
	result += dimColor.Sprint("autonomous iterative development loop driver") + "\n"
	return result
}

var rootCmd = &cobra.Command{
	Use:   "ralph",
	Short: "ralph drives an autonomous spec-implementation loop",
	Long: banner() + `
ralph repeatedly invokes a coding assistant against a workspace's spec
files, tracking per-spec verification progress across rotations until
every spec has been confirmed done three times in a row, the
iteration ceiling is reached, the assistant pool is exhausted, or the
assistant signals it is stuck.`,
	Version: Version,
}

// commandOrder defines the display order of commands in help.
var commandOrder = map[string]int{
	"init":   1,
	"run":    10,
	"status": 11,
	"reset":  20,
}

func init() {
	rootCmd.SetVersionTemplate("ralph version {{.Version}}\n")

	// custom help to order commands
	defaultHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		sortCommands(cmd)
		defaultHelp(cmd, args)
	})

	// custom usage to order commands
	defaultUsage := rootCmd.UsageFunc()
	rootCmd.SetUsageFunc(func(cmd *cobra.Command) error {
		sortCommands(cmd)
		return defaultUsage(cmd)
	})
}

func sortCommands(cmd *cobra.Command) {
	sort.SliceStable(cmd.Commands(), func(i, j int) bool {
		iOrder, iOk := commandOrder[cmd.Commands()[i].Name()]
		jOrder, jOk := commandOrder[cmd.Commands()[j].Name()]
		if !iOk {
			iOrder = 50 // default middle
		}
		if !jOk {
			jOrder = 50
		}
		return iOrder < jOrder
	})
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
