package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/beanloop/internal/app"
	"github.com/runoshun/beanloop/internal/domain"
	"github.com/runoshun/beanloop/internal/usecase"
)

// newNextCommand creates the next command showing the upcoming selection.
func newNextCommand(c *app.Container) *cobra.Command {
	var opts struct {
		root    string
		jsonOut bool
	}

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the task the loop would pick next",
		Long: `Resolve the traversal root and print the task depth-first selection
would hand to the agent, without claiming or running anything. Useful to
check why the loop is or is not picking something up.

Examples:
  # What would run next
  beanloop next

  # Preview the pick under a different root
  beanloop next --root epic#2

  # Machine-readable output
  beanloop next --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.ShowNextUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ShowNextInput{RootOverride: opts.root})
			if err != nil {
				return err
			}

			if opts.jsonOut {
				payload := struct {
					Root *domain.Task `json:"root,omitempty"`
					Task *domain.Task `json:"task,omitempty"`
				}{Root: out.Root, Task: out.Task}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(payload)
			}

			w := cmd.OutOrStdout()
			if out.Root == nil {
				_, _ = fmt.Fprintln(w, "nothing to do: no open top-level task")
				return nil
			}
			if out.Task == nil {
				_, _ = fmt.Fprintf(w, "root %s (%s) has no eligible task\n", out.Root.ID, out.Root.Title)
				return nil
			}

			_, _ = fmt.Fprintf(w, "next: %s  %s  %s\n", out.Task.ID, out.Task.Title, taskBadge(out.Task))
			rootNote := ""
			if out.Detected {
				rootNote = " (auto-detected)"
			}
			_, _ = fmt.Fprintf(w, "root: %s  %s%s\n", out.Root.ID, out.Root.Title, rootNote)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", "", "Preview selection under this root instead")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Output as JSON")

	return cmd
}

// taskBadge renders the status and priority suffix for a task line.
func taskBadge(t *domain.Task) string {
	if t.Priority != "" {
		return fmt.Sprintf("[%s, %s]", t.Status, t.Priority)
	}
	return fmt.Sprintf("[%s]", t.Status)
}
