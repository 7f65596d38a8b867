package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/runoshun/beanloop/internal/app"
)

const timeLayout = "2006-01-02 15:04:05"

// newStatusCommand creates the status command.
func newStatusCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the current or last run",
		Long: `Show the pause flag and the snapshot the daemon keeps while running:
phase, in-flight tasks and the outcomes of recent attempts. The snapshot
survives the daemon, so status also reports how the last run ended.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if c.Pause.IsPaused() {
				_, _ = fmt.Fprintln(w, "paused: yes (resume with `beanloop resume`)")
			} else {
				_, _ = fmt.Fprintln(w, "paused: no")
			}

			state, err := c.RunState.Read()
			if err != nil {
				return err
			}
			if state == nil {
				_, _ = fmt.Fprintln(w, "no runs recorded")
				return nil
			}

			_, _ = fmt.Fprintf(w, "phase: %s\n", state.Phase)
			_, _ = fmt.Fprintf(w, "run: %s (pid %d)\n", state.RunID, state.PID)
			_, _ = fmt.Fprintf(w, "started: %s  updated: %s\n",
				state.StartedAt.Format(timeLayout), state.UpdatedAt.Format(timeLayout))
			_, _ = fmt.Fprintf(w, "completed: %d  failed: %d\n", state.Completed, state.Failed)

			if len(state.Active) > 0 {
				_, _ = fmt.Fprintf(w, "active: %s\n", strings.Join(state.Active, ", "))
			}
			if len(state.Recent) > 0 {
				_, _ = fmt.Fprintln(w, "recent:")
				tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
				for _, r := range state.Recent {
					_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\n", r.TaskID, r.Outcome, r.Time.Format(timeLayout))
				}
				_ = tw.Flush()
			}
			return nil
		},
	}
	return cmd
}
