package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/runoshun/beanloop/internal/domain"
)

// pausePollInterval is how often a paused loop re-checks the flag.
const pausePollInterval = 2 * time.Second

// RunLoopInput contains the parameters for one orchestrator run.
type RunLoopInput struct {
	TaskID       string // Explicit single-task override (skips selection)
	RootOverride string // Traversal root override (persisted)
	RunID        string
	Once         bool // Stop after the first task
	DryRun       bool // Print the first selected task's prompt, no side effects
}

// RunLoopOutput contains the result of a run.
type RunLoopOutput struct {
	Completed   int            // Attempts counted this run, regardless of outcome
	Idle        bool           // The run found nothing to do at all
	LastOutcome domain.Outcome // Outcome of the final attempt
	Prompt      string         // Rendered prompt (dry-run only)
}

// RunLoop drives root resolution, selection, and execution in a cycle until
// no actionable task remains. Task-local failures end that attempt and the
// loop reselects; only configuration errors and an unusable working tree
// stop the run. The pause flag is honored between tasks only.
type RunLoop struct {
	tasks    domain.TaskStore
	resolve  *ResolveRoot
	execute  *ExecuteTask
	pause    domain.PauseFlag
	notifier domain.Notifier
	events   domain.EventSink
	clock    domain.Clock
	logger   domain.Logger
}

// NewRunLoop creates a new RunLoop use case.
func NewRunLoop(
	tasks domain.TaskStore,
	resolve *ResolveRoot,
	execute *ExecuteTask,
	pause domain.PauseFlag,
	notifier domain.Notifier,
	events domain.EventSink,
	clock domain.Clock,
	logger domain.Logger,
) *RunLoop {
	return &RunLoop{
		tasks:    tasks,
		resolve:  resolve,
		execute:  execute,
		pause:    pause,
		notifier: notifier,
		events:   events,
		clock:    clock,
		logger:   logger,
	}
}

// Execute runs the loop until idle, once-mode stop, or cancellation.
func (uc *RunLoop) Execute(ctx context.Context, in RunLoopInput) (*RunLoopOutput, error) {
	if !uc.tasks.IsAvailable() {
		return nil, fmt.Errorf("%s: %w", uc.tasks.DataDir(), domain.ErrTrackerUnavailable)
	}

	uc.emit(ctx, in.RunID, "", domain.EventRunStarted, "")
	out := &RunLoopOutput{}

	// An explicit task id is a flat override: no root, no selection, one
	// attempt.
	if in.TaskID != "" {
		res, err := uc.execute.Execute(ctx, ExecuteTaskInput{TaskID: in.TaskID, RunID: in.RunID, DryRun: in.DryRun})
		if err != nil {
			return nil, err
		}
		if in.DryRun {
			out.Prompt = res.Prompt
			return out, nil
		}
		out.Completed = 1
		out.LastOutcome = res.Outcome
		notifyOutcome(ctx, uc.tasks, uc.notifier, in.TaskID, res.Outcome)
		uc.emit(ctx, in.RunID, "", domain.EventRunDone, strconv.Itoa(out.Completed))
		return out, nil
	}

	// Resolve the root once per run. Finding none is not fatal: selection
	// falls back to the flat top-level pool.
	rootID := ""
	res, err := uc.resolve.Execute(ctx, ResolveRootInput{Override: in.RootOverride, RunID: in.RunID, DryRun: in.DryRun})
	switch {
	case err == nil:
		rootID = res.Task.ID
	case errors.Is(err, domain.ErrNoRoot):
	default:
		return nil, err
	}

	for {
		if ctx.Err() != nil {
			break
		}
		uc.waitWhilePaused(ctx, in.RunID)

		next, err := uc.selectNext(ctx, rootID)
		if err != nil {
			return nil, err
		}
		if next == "" {
			out.Idle = out.Completed == 0
			uc.emit(ctx, in.RunID, "", domain.EventIdle, "")
			uc.logger.Info("", "loop", fmt.Sprintf("no actionable task, stopping after %d attempts", out.Completed))
			break
		}

		uc.emit(ctx, in.RunID, next, domain.EventSelected, "")
		uc.logger.Info(next, "loop", "selected")

		attempt, err := uc.execute.Execute(ctx, ExecuteTaskInput{TaskID: next, RunID: in.RunID, DryRun: in.DryRun})
		switch {
		case err == nil:
			if in.DryRun {
				out.Prompt = attempt.Prompt
				return out, nil
			}
			out.Completed++
			out.LastOutcome = attempt.Outcome
			notifyOutcome(ctx, uc.tasks, uc.notifier, next, attempt.Outcome)
		case errors.Is(err, domain.ErrMergeConflict):
			// The task is finished but its workspace needs a human. It is
			// terminal in the tracker, so reselection moves past it.
			uc.logger.Error(next, "loop", fmt.Sprintf("attempt ended in conflict: %v", err))
			out.Completed++
			uc.notifier.Notify(ctx, domain.Notification{TaskID: next, Outcome: "conflict", Message: err.Error()})
		case ctx.Err() != nil:
			uc.emit(ctx, in.RunID, "", domain.EventRunDone, strconv.Itoa(out.Completed))
			return out, nil
		default:
			return nil, err
		}

		if in.Once {
			break
		}
	}

	uc.emit(ctx, in.RunID, "", domain.EventRunDone, strconv.Itoa(out.Completed))
	return out, nil
}

// selectNext picks the next task id: rooted DFS on a fresh root snapshot
// when a root is anchored, flat top-level pool otherwise.
func (uc *RunLoop) selectNext(ctx context.Context, rootID string) (string, error) {
	if rootID != "" {
		root, err := uc.tasks.Show(ctx, rootID)
		if err != nil {
			return "", fmt.Errorf("fetch root %s: %w", rootID, err)
		}
		return domain.SelectNext(root), nil
	}
	pool, err := uc.tasks.ListTopLevel(ctx, []domain.Status{domain.StatusTodo, domain.StatusInProgress})
	if err != nil {
		return "", fmt.Errorf("list tasks: %w", err)
	}
	return domain.SelectFlat(pool), nil
}

// waitWhilePaused blocks between tasks while the pause flag is set. An
// in-flight attempt is never interrupted; this is the only pause point.
func (uc *RunLoop) waitWhilePaused(ctx context.Context, runID string) {
	if !uc.pause.IsPaused() {
		return
	}
	uc.logger.Info("", "loop", "paused, waiting for resume")
	uc.emit(ctx, runID, "", domain.EventPaused, "")
	for uc.pause.IsPaused() && ctx.Err() == nil {
		uc.clock.Sleep(ctx, pausePollInterval)
	}
}

// notifyOutcome reports a terminal attempt outcome. The title is fetched
// best-effort for the notification template.
func notifyOutcome(ctx context.Context, tasks domain.TaskStore, notifier domain.Notifier, taskID string, outcome domain.Outcome) {
	title := ""
	if t, err := tasks.Show(ctx, taskID); err == nil && t != nil {
		title = t.Title
	}
	notifier.Notify(ctx, domain.Notification{
		TaskID:  taskID,
		Title:   title,
		Outcome: string(outcome),
	})
}

// emit records a loop event. Sink failures are logged, never propagated.
func (uc *RunLoop) emit(ctx context.Context, runID, taskID, kind, detail string) {
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
