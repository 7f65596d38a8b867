package cli

import (
	"github.com/spf13/cobra"

	"github.com/runoshun/beanloop/internal/app"
	"github.com/runoshun/beanloop/internal/domain"
	"github.com/runoshun/beanloop/internal/infra/events"
	"github.com/runoshun/beanloop/internal/tui"
)

// newWatchCommand creates the watch command for the live loop view.
func newWatchCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Open a live view of the loop",
		Long: `Open a live view of the event log and the run snapshot. It reads
everything from files under .git/beanloop/, so it can sit next to a
daemon running in another terminal.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			logPath := domain.EventLogPath(c.Paths.LoopDir)
			return tui.Run(tui.Config{
				LoadEvents: func() ([]domain.Event, error) { return events.ReadLog(logPath) },
				LoadState:  c.RunState.Read,
				Paused:     c.Pause.IsPaused,
				RepoRoot:   c.Paths.RepoRoot,
			})
		},
	}
}
