package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/runoshun/beanloop/internal/domain"
)

// ExecuteTaskInput contains the parameters for executing one task.
type ExecuteTaskInput struct {
	TaskID string
	RunID  string // Run id stamped on emitted events
	DryRun bool   // Build the prompt and stop before any side effect
}

// ExecuteTaskOutput contains the result of a task attempt.
type ExecuteTaskOutput struct {
	Outcome    domain.Outcome
	Iterations int    // Iteration count reached when the attempt ended
	Prompt     string // Rendered prompt (dry-run only)
}

// ExecuteTask runs bounded agent iterations against one selected task.
// Every iteration starts from a fresh tracker snapshot so stale blocking or
// tag state is never acted on. Consecutive agent failures trip a circuit
// breaker; a completed status triggers reconciliation; a control tag stops
// the attempt gracefully.
type ExecuteTask struct {
	tasks     domain.TaskStore
	vc        domain.VersionControl
	runner    domain.AgentRunner
	clock     domain.Clock
	logger    domain.Logger
	events    domain.EventSink
	gate      sync.Locker
	open      *OpenWorkspace
	reconcile *ReconcileTask
	cfg       *domain.Config
	repoRoot  string
}

// NewExecuteTask creates a new ExecuteTask use case.
func NewExecuteTask(
	tasks domain.TaskStore,
	vc domain.VersionControl,
	runner domain.AgentRunner,
	clock domain.Clock,
	logger domain.Logger,
	events domain.EventSink,
	gate sync.Locker,
	open *OpenWorkspace,
	reconcile *ReconcileTask,
	cfg *domain.Config,
	repoRoot string,
) *ExecuteTask {
	return &ExecuteTask{
		tasks:     tasks,
		vc:        vc,
		runner:    runner,
		clock:     clock,
		logger:    logger,
		events:    events,
		gate:      gate,
		open:      open,
		reconcile: reconcile,
		cfg:       cfg,
		repoRoot:  repoRoot,
	}
}

// Execute drives one task to a terminal outcome. Outcomes are results, not
// errors; an error return means the attempt could not proceed at all
// (unknown agent, dirty working tree, reconciliation conflict) or the
// context was cancelled.
func (uc *ExecuteTask) Execute(ctx context.Context, in ExecuteTaskInput) (*ExecuteTaskOutput, error) {
	task, err := uc.tasks.Show(ctx, in.TaskID)
	if err != nil {
		uc.logger.Error(in.TaskID, "execute", fmt.Sprintf("fetch failed: %v", err))
		return uc.finish(ctx, in, domain.OutcomeFetchFailed, 0), nil
	}
	if task == nil {
		uc.logger.Error(in.TaskID, "execute", "task not found")
		return uc.finish(ctx, in, domain.OutcomeFetchFailed, 0), nil
	}

	if in.DryRun {
		prompt := domain.BuildPrompt(task, uc.parentOf(ctx, task), domain.PromptModeFor(task.Type))
		return &ExecuteTaskOutput{Prompt: prompt}, nil
	}

	target := ""
	if uc.cfg.BranchIsolation {
		ws, err := uc.open.Execute(ctx, OpenWorkspaceInput{Task: task})
		if err != nil {
			return nil, fmt.Errorf("open workspace for %s: %w", task.ID, err)
		}
		target = ws.Target
	}

	// Claim the task. Best effort: losing the tracker here is caught by the
	// fresh read each iteration does anyway.
	if task.Status.CanTransitionTo(domain.StatusInProgress) {
		if err := uc.tasks.SetStatus(ctx, task.ID, domain.StatusInProgress); err != nil {
			uc.logger.Warn(task.ID, "execute", fmt.Sprintf("claim failed: %v", err))
		}
	}

	iteration := 1
	failures := 0
	for iteration <= uc.cfg.MaxIterations {
		fresh, err := uc.tasks.Show(ctx, in.TaskID)
		if err != nil || fresh == nil {
			uc.logger.Error(in.TaskID, "execute", fmt.Sprintf("fetch failed mid-attempt: %v", err))
			uc.restoreTarget(target, in.TaskID)
			return uc.finish(ctx, in, domain.OutcomeFetchFailed, iteration), nil
		}

		uc.emit(ctx, in, domain.EventIteration, fmt.Sprintf("%d/%d", iteration, uc.cfg.MaxIterations))
		prompt := domain.BuildPrompt(fresh, uc.parentOf(ctx, fresh), domain.PromptModeFor(fresh.Type))

		code, runErr := uc.runner.Run(ctx, domain.AgentInvocation{
			Agent:  uc.cfg.Agent,
			Model:  uc.cfg.Model,
			Prompt: prompt,
			TaskID: fresh.ID,
			Dir:    uc.repoRoot,
		})
		if runErr != nil {
			if errors.Is(runErr, domain.ErrUnknownAgent) {
				return nil, runErr
			}
			if ctx.Err() != nil {
				// Operator stop. The agent was killed mid-flight; commit
				// whatever it managed to write before handing back.
				uc.logger.Info(fresh.ID, "execute", "stopping, preserving interrupted work")
				if err := commitIterationChanges(uc.vc, uc.tasks.DataDir(), fresh.ID, iteration, uc.logger); err != nil {
					uc.logger.Warn(fresh.ID, "classify", fmt.Sprintf("could not preserve interrupted work: %v", err))
				}
				return nil, runErr
			}
			uc.logger.Error(fresh.ID, "agent", fmt.Sprintf("agent did not run: %v", runErr))
			code = -1
		}
		uc.emit(ctx, in, domain.EventAgentExit, strconv.Itoa(code))

		if code != 0 {
			failures++
			uc.logger.Warn(fresh.ID, "agent", fmt.Sprintf("agent exited %d (failure %d of %d)", code, failures, uc.cfg.CircuitBreaker))
			if failures >= uc.cfg.CircuitBreaker {
				// Workspace stays checked out for inspection.
				uc.tagFailed(ctx, fresh.ID)
				return uc.finish(ctx, in, domain.OutcomeCircuitBroken, iteration), nil
			}
			uc.clock.Sleep(ctx, time.Duration(uc.cfg.RetryDelaySeconds)*time.Second)
			continue
		}
		failures = 0

		if err := commitIterationChanges(uc.vc, uc.tasks.DataDir(), fresh.ID, iteration, uc.logger); err != nil {
			return nil, fmt.Errorf("classify changes for %s: %w", fresh.ID, err)
		}

		post, err := uc.tasks.Show(ctx, in.TaskID)
		if err != nil || post == nil {
			uc.logger.Error(in.TaskID, "execute", fmt.Sprintf("fetch failed after iteration: %v", err))
			uc.restoreTarget(target, in.TaskID)
			return uc.finish(ctx, in, domain.OutcomeFetchFailed, iteration), nil
		}
		if post.Status == domain.StatusCompleted {
			if uc.cfg.BranchIsolation {
				rec, err := uc.reconcile.Execute(ctx, ReconcileTaskInput{Task: post, Target: target})
				if err != nil {
					return nil, err
				}
				detail := "no changes"
				if rec.Merged {
					detail = "merged into " + target
				}
				uc.emit(ctx, in, domain.EventReconciled, detail)
			}
			return uc.finish(ctx, in, domain.OutcomeCompleted, iteration), nil
		}
		if post.HasControlTag() {
			uc.restoreTarget(target, in.TaskID)
			return uc.finish(ctx, in, domain.OutcomeStuck, iteration), nil
		}
		iteration++
	}

	uc.restoreTarget(target, in.TaskID)
	return uc.finish(ctx, in, domain.OutcomeExhausted, uc.cfg.MaxIterations), nil
}

// finish emits the outcome event and builds the output.
func (uc *ExecuteTask) finish(ctx context.Context, in ExecuteTaskInput, outcome domain.Outcome, iterations int) *ExecuteTaskOutput {
	uc.logger.Info(in.TaskID, "execute", fmt.Sprintf("outcome %s at iteration %d", outcome, iterations))
	uc.emit(ctx, in, domain.EventOutcome, string(outcome))
	return &ExecuteTaskOutput{Outcome: outcome, Iterations: iterations}
}

// restoreTarget puts the merge target back as the active branch while
// leaving the task's workspace branch intact for inspection. Only used on
// non-reconciling exits; an empty target means isolation is off.
func (uc *ExecuteTask) restoreTarget(target, taskID string) {
	if target == "" {
		return
	}
	uc.gate.Lock()
	defer uc.gate.Unlock()
	if err := guardedCheckout(uc.vc, uc.tasks.DataDir(), target); err != nil {
		uc.logger.Warn(taskID, "workspace", fmt.Sprintf("could not restore %s: %v", target, err))
	}
}

// tagFailed marks the task for human attention. Best effort: the breaker
// outcome stands even when the tracker update fails.
func (uc *ExecuteTask) tagFailed(ctx context.Context, taskID string) {
	if err := uc.tasks.AddTag(ctx, taskID, domain.TagFailed); err != nil {
		uc.logger.Warn(taskID, "execute", fmt.Sprintf("could not tag failed: %v", err))
	}
}

// parentOf fetches the parent snapshot for prompt context. Best effort: a
// missing parent just omits the context section.
func (uc *ExecuteTask) parentOf(ctx context.Context, task *domain.Task) *domain.Task {
	if task.ParentID == "" {
		return nil
	}
	parent, err := uc.tasks.Show(ctx, task.ParentID)
	if err != nil {
		uc.logger.Debug(task.ID, "prompt", fmt.Sprintf("parent %s unavailable: %v", task.ParentID, err))
		return nil
	}
	return parent
}

// emit records a loop event. Sink failures are logged, never propagated.
func (uc *ExecuteTask) emit(ctx context.Context, in ExecuteTaskInput, kind, detail string) {
	err := uc.events.Emit(ctx, domain.Event{
		Time:   uc.clock.Now(),
		RunID:  in.RunID,
		TaskID: in.TaskID,
		Kind:   kind,
		Detail: detail,
	})
	if err != nil {
		uc.logger.Warn(in.TaskID, "events", fmt.Sprintf("emit failed: %v", err))
	}
}
