package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/runoshun/beanloop/internal/app"
	"github.com/runoshun/beanloop/internal/infra/events"
	"github.com/runoshun/beanloop/internal/usecase"
)

// newDaemonCommand creates the daemon command for the continuous loop.
func newDaemonCommand(c *app.Container) *cobra.Command {
	var opts struct {
		concurrency int
		model       string
		agent       string
		silent      bool
	}

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the loop continuously, watching the tracker for work",
		Long: `Run the loop as a long-lived foreground process. The daemon watches the
tracker data directory and re-scans for eligible tasks whenever records
change, with a periodic poll as fallback. Attempts run in parallel up to
--concurrency; working-tree operations stay serialized.

Pause dispatch with 'beanloop pause'; running attempts finish, nothing
new starts until 'beanloop resume'. Stop with Ctrl-C or SIGTERM.

Examples:
  # Watch and work tasks one at a time
  beanloop daemon

  # Three agents in parallel
  beanloop daemon --concurrency 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applyAgentOverrides(c.Cfg, opts.agent, opts.model)

			concurrency := opts.concurrency
			if concurrency <= 0 {
				concurrency = c.Cfg.Daemon.Concurrency
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			watcher := c.Watcher()
			// The daemon folds events into the run snapshot for status
			// alongside the plain log.
			sink := events.Multi{c.Events, c.RunState}
			uc := c.RunDaemonUseCase(sink, c.Notifier(opts.silent), watcher.Wake())

			dataDir := filepath.Join(c.Paths.RepoRoot, c.Cfg.Tracker.DataDir)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "watching %s (concurrency %d)\n", dataDir, concurrency)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return watcher.Run(gctx)
			})
			g.Go(func() error {
				return uc.Execute(gctx, usecase.RunDaemonInput{
					RunID:       uuid.NewString(),
					Concurrency: concurrency,
				})
			})

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "daemon stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Parallel agent slots (default from config)")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "Model to use (overrides agent default)")
	cmd.Flags().StringVar(&opts.agent, "agent", "", "Agent backend to use (default from config)")
	cmd.Flags().BoolVarP(&opts.silent, "silent", "s", false, "Suppress notifications")

	return cmd
}
