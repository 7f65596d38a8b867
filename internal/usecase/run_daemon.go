package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/runoshun/beanloop/internal/domain"
)

// RunDaemonInput contains the parameters for the continuous loop.
type RunDaemonInput struct {
	RunID       string
	Concurrency int // Parallel controller slots (<=0 means 1)
}

// RunDaemon keeps the loop running until cancelled: every wake from the
// tracker watcher (or the fallback poll) triggers a dispatch burst that
// claims and executes eligible tasks, up to the concurrency cap. Selection
// re-resolves the root each burst so freshly created milestones are adopted
// without a restart. Task-local failures park the daemon until the next
// wake; only configuration errors and an unusable working tree stop it.
type RunDaemon struct {
	tasks    domain.TaskStore
	resolve  *ResolveRoot
	execute  *ExecuteTask
	pause    domain.PauseFlag
	notifier domain.Notifier
	events   domain.EventSink
	clock    domain.Clock
	logger   domain.Logger
	wake     <-chan struct{}
}

// NewRunDaemon creates a new RunDaemon use case. wake delivers one signal
// per tracker change burst or poll tick.
func NewRunDaemon(
	tasks domain.TaskStore,
	resolve *ResolveRoot,
	execute *ExecuteTask,
	pause domain.PauseFlag,
	notifier domain.Notifier,
	events domain.EventSink,
	clock domain.Clock,
	logger domain.Logger,
	wake <-chan struct{},
) *RunDaemon {
	return &RunDaemon{
		tasks:    tasks,
		resolve:  resolve,
		execute:  execute,
		pause:    pause,
		notifier: notifier,
		events:   events,
		clock:    clock,
		logger:   logger,
		wake:     wake,
	}
}

// Execute runs the daemon until the context is cancelled.
func (uc *RunDaemon) Execute(ctx context.Context, in RunDaemonInput) error {
	if !uc.tasks.IsAvailable() {
		return fmt.Errorf("%s: %w", uc.tasks.DataDir(), domain.ErrTrackerUnavailable)
	}

	concurrency := in.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	uc.emit(ctx, in.RunID, "", domain.EventRunStarted, "daemon")
	uc.logger.Info("", "daemon", fmt.Sprintf("daemon started, concurrency %d", concurrency))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var (
		mu       sync.Mutex
		inflight = make(map[string]bool)
	)
	pausedReported := false

	for {
		if gctx.Err() == nil {
			if uc.pause.IsPaused() {
				if !pausedReported {
					uc.logger.Info("", "daemon", "paused")
					uc.emit(gctx, in.RunID, "", domain.EventPaused, "")
					pausedReported = true
				}
			} else {
				pausedReported = false
				uc.dispatch(gctx, in, g, &mu, inflight)
			}
		}

		select {
		case <-gctx.Done():
			err := g.Wait()
			uc.emit(ctx, in.RunID, "", domain.EventRunDone, "daemon stopped")
			uc.logger.Info("", "daemon", "daemon stopped")
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		case <-uc.wake:
		}
	}
}

// dispatch claims and launches eligible tasks until the selector comes up
// empty or points at a task already in flight. Launching blocks when all
// slots are busy, which throttles selection to the concurrency cap.
func (uc *RunDaemon) dispatch(ctx context.Context, in RunDaemonInput, g *errgroup.Group, mu *sync.Mutex, inflight map[string]bool) {
	for ctx.Err() == nil {
		next, err := uc.selectNext(ctx, in, mu, inflight)
		if err != nil {
			// Tracker trouble parks the daemon until the next wake.
			uc.logger.Warn("", "daemon", fmt.Sprintf("selection failed: %v", err))
			return
		}
		if next == "" {
			return
		}

		mu.Lock()
		if inflight[next] {
			mu.Unlock()
			return
		}
		inflight[next] = true
		mu.Unlock()

		uc.emit(ctx, in.RunID, next, domain.EventSelected, "")
		uc.logger.Info(next, "daemon", "selected")

		g.Go(func() error {
			defer func() {
				mu.Lock()
				delete(inflight, next)
				mu.Unlock()
			}()
			return uc.attempt(ctx, in, next)
		})
	}
}

// selectNext picks the next task id, excluding tasks already in flight.
func (uc *RunDaemon) selectNext(ctx context.Context, in RunDaemonInput, mu *sync.Mutex, inflight map[string]bool) (string, error) {
	res, err := uc.resolve.Execute(ctx, ResolveRootInput{RunID: in.RunID})
	if err == nil {
		root, err := uc.tasks.Show(ctx, res.Task.ID)
		if err != nil {
			return "", fmt.Errorf("fetch root %s: %w", res.Task.ID, err)
		}
		next := domain.SelectNext(root)
		mu.Lock()
		defer mu.Unlock()
		if inflight[next] {
			return "", nil
		}
		return next, nil
	}
	if !errors.Is(err, domain.ErrNoRoot) {
		return "", err
	}

	pool, err := uc.tasks.ListTopLevel(ctx, []domain.Status{domain.StatusTodo, domain.StatusInProgress})
	if err != nil {
		return "", fmt.Errorf("list tasks: %w", err)
	}
	mu.Lock()
	eligible := make([]*domain.Task, 0, len(pool))
	for _, t := range pool {
		if !inflight[t.ID] {
			eligible = append(eligible, t)
		}
	}
	mu.Unlock()
	return domain.SelectFlat(eligible), nil
}

// attempt runs one controller slot to a terminal outcome.
func (uc *RunDaemon) attempt(ctx context.Context, in RunDaemonInput, taskID string) error {
	res, err := uc.execute.Execute(ctx, ExecuteTaskInput{TaskID: taskID, RunID: in.RunID})
	switch {
	case err == nil:
		notifyOutcome(ctx, uc.tasks, uc.notifier, taskID, res.Outcome)
		return nil
	case errors.Is(err, domain.ErrMergeConflict):
		uc.logger.Error(taskID, "daemon", fmt.Sprintf("attempt ended in conflict: %v", err))
		uc.notifier.Notify(ctx, domain.Notification{TaskID: taskID, Outcome: "conflict", Message: err.Error()})
		return nil
	case ctx.Err() != nil:
		return nil
	default:
		return err
	}
}

// emit records a loop event. Sink failures are logged, never propagated.
func (uc *RunDaemon) emit(ctx context.Context, runID, taskID, kind, detail string) {
	err := uc.events.Emit(ctx, domain.Event{
		Time:   uc.clock.Now(),
		RunID:  runID,
		TaskID: taskID,
		Kind:   kind,
		Detail: detail,
	})
	if err != nil {
		uc.logger.Warn(taskID, "events", fmt.Sprintf("emit failed: %v", err))
	}
}
