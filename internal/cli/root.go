// Package cli provides the command-line interface for beanloop.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/beanloop/internal/app"
)

// Command group IDs.
const (
	groupLoop  = "loop"
	groupState = "state"
)

// NewRootCommand creates the root command for beanloop.
// It receives the container for dependency injection and version for display.
// The container may be nil when only help or version is reachable.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "beanloop",
		Short: "Autonomous agent loop for the bean tracker",
		Long: `beanloop drives coding agents through bean tasks in a loop:
pick the next eligible task, run the agent with the task as its prompt,
commit whatever changed, and fold finished work back into the trunk.

Tasks stay in the bean tracker (.beans/); loop state lives under
.git/beanloop/. Point it at a milestone with 'beanloop root set' or let
it pick the most significant open top-level task on its own.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
	}

	root.AddGroup(
		&cobra.Group{ID: groupLoop, Title: "Loop Commands:"},
		&cobra.Group{ID: groupState, Title: "State Commands:"},
	)

	runCmd := newRunCommand(c)
	runCmd.GroupID = groupLoop

	daemonCmd := newDaemonCommand(c)
	daemonCmd.GroupID = groupLoop

	nextCmd := newNextCommand(c)
	nextCmd.GroupID = groupLoop

	watchCmd := newWatchCommand(c)
	watchCmd.GroupID = groupLoop

	rootStateCmd := newRootStateCommand(c)
	rootStateCmd.GroupID = groupState

	statusCmd := newStatusCommand(c)
	statusCmd.GroupID = groupState

	pauseCmd := newPauseCommand(c)
	pauseCmd.GroupID = groupState

	resumeCmd := newResumeCommand(c)
	resumeCmd.GroupID = groupState

	configCmd := newConfigCommand(c)
	configCmd.GroupID = groupState

	root.AddCommand(
		runCmd,
		daemonCmd,
		nextCmd,
		watchCmd,
		rootStateCmd,
		statusCmd,
		pauseCmd,
		resumeCmd,
		configCmd,
		newVersionCommand(version),
	)

	return root
}

// newVersionCommand creates the version command.
func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the beanloop version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "beanloop %s\n", version)
			return nil
		},
	}
}
