package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/beanloop/internal/app"
)

// newPauseCommand creates the pause command.
func newPauseCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Park the loop without stopping it",
		Long: `Set the pause flag. A running daemon finishes its in-flight attempts
and then parks instead of picking new work. The flag is a file under
.git/beanloop/, so it also holds across daemon restarts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.Pause.Set(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "paused: in-flight attempts finish, nothing new starts")
			return nil
		},
	}
}

// newResumeCommand creates the resume command.
func newResumeCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Clear the pause flag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.Pause.Clear(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "resumed")
			return nil
		},
	}
}
