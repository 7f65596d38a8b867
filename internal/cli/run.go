package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/runoshun/beanloop/internal/app"
	"github.com/runoshun/beanloop/internal/domain"
	"github.com/runoshun/beanloop/internal/infra/events"
	"github.com/runoshun/beanloop/internal/usecase"
)

// newRunCommand creates the run command driving the orchestrator loop.
func newRunCommand(c *app.Container) *cobra.Command {
	var opts struct {
		maxIterations int
		model         string
		agent         string
		root          string
		dryRun        bool
		once          bool
		silent        bool
		noBranch      bool
	}

	cmd := &cobra.Command{
		Use:   "run [taskID]",
		Short: "Work eligible tasks until the tracker runs dry",
		Long: `Run the orchestrator loop: select the next eligible task, execute the
agent against it for up to --max-iterations, commit what changed, and
merge completed work back into the trunk. The loop repeats until no
eligible task remains.

With a task id argument the loop works exactly that task and stops,
skipping selection. With --root the walk starts from the given task
instead of the persisted or auto-detected root.

Examples:
  # Work everything under the current root
  beanloop run

  # Work one specific task
  beanloop run bug#7

  # Stop after the first task
  beanloop run --once

  # Show the prompt the agent would get, then exit
  beanloop run bug#7 --dry-run

  # Pin the traversal root and run
  beanloop run --root milestone#1`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID := ""
			if len(args) > 0 {
				taskID = args[0]
			}

			applyAgentOverrides(c.Cfg, opts.agent, opts.model)
			if opts.maxIterations > 0 {
				c.Cfg.MaxIterations = opts.maxIterations
			}
			if opts.noBranch {
				c.Cfg.BranchIsolation = false
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			// Dry runs leave no trace in the event log.
			var sink domain.EventSink = c.Events
			if opts.dryRun {
				sink = events.Nop{}
			}

			uc := c.RunLoopUseCase(sink, c.Notifier(opts.silent || opts.dryRun))
			out, err := uc.Execute(ctx, usecase.RunLoopInput{
				TaskID:       taskID,
				RootOverride: opts.root,
				RunID:        uuid.NewString(),
				Once:         opts.once,
				DryRun:       opts.dryRun,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out.Idle {
				_, _ = fmt.Fprintln(w, "nothing to do")
				return nil
			}
			if opts.dryRun {
				_, _ = fmt.Fprintln(w, out.Prompt)
				return nil
			}

			_, _ = fmt.Fprintf(w, "finished %d attempt(s), last outcome: %s\n", out.Completed, out.LastOutcome)
			if out.LastOutcome.Failed() {
				return fmt.Errorf("last attempt ended %s", out.LastOutcome)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.maxIterations, "max-iterations", 0, "Agent iterations per task (default from config)")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "Model to use (overrides agent default)")
	cmd.Flags().StringVar(&opts.agent, "agent", "", "Agent backend to use (default from config)")
	cmd.Flags().StringVar(&opts.root, "root", "", "Traversal root task id (persisted)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the generated prompt without running anything")
	cmd.Flags().BoolVar(&opts.once, "once", false, "Stop after the first task")
	cmd.Flags().BoolVarP(&opts.silent, "silent", "s", false, "Suppress notifications")
	cmd.Flags().BoolVar(&opts.noBranch, "no-branch", false, "Work on the current branch without workspace isolation")

	return cmd
}

// applyAgentOverrides folds command-line agent selection into the config.
func applyAgentOverrides(cfg *domain.Config, agent, model string) {
	if agent != "" {
		cfg.Agent = agent
	}
	if model != "" {
		cfg.Model = model
	}
}
