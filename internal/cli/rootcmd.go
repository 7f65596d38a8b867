package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/beanloop/internal/app"
	"github.com/runoshun/beanloop/internal/usecase"
)

// newRootStateCommand creates the root command group for the traversal root.
func newRootStateCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "root",
		Short: "Show or change the persisted traversal root",
		Long: `Show the task the loop walks from. Without a persisted root the loop
auto-detects the most significant open top-level task (milestones first,
then epics, then the rest) on every run.

Examples:
  # Show the current root
  beanloop root

  # Pin the walk to a milestone
  beanloop root set milestone#1

  # Back to auto-detection
  beanloop root clear`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := c.Roots.Load()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if state == nil {
				_, _ = fmt.Fprintln(w, "no root persisted; auto-detection applies")
				return nil
			}

			line := state.TaskID
			if t, showErr := c.Tasks.Show(cmd.Context(), state.TaskID); showErr == nil && t != nil {
				line = fmt.Sprintf("%s  %s  [%s]", t.ID, t.Title, t.Status)
			}
			_, _ = fmt.Fprintf(w, "root: %s\n", line)
			_, _ = fmt.Fprintf(w, "set at %s\n", state.SetAt.Format(timeLayout))
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <taskID>",
		Short: "Persist the traversal root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.ResolveRootUseCase().Execute(cmd.Context(), usecase.ResolveRootInput{Override: args[0]})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "root set to %s (%s)\n", out.Task.ID, out.Task.Title)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the persisted root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.Roots.Clear(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "root cleared; auto-detection applies")
			return nil
		},
	}

	cmd.AddCommand(setCmd, clearCmd)
	return cmd
}
