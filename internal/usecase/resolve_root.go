package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/beanloop/internal/domain"
)

// ResolveRootInput contains the parameters for resolving the traversal root.
type ResolveRootInput struct {
	Override string // Explicit root task id ("" = resume or auto-detect)
	RunID    string // Run id recorded with a newly persisted root
	DryRun   bool   // Resolve without persisting or clearing anything
}

// ResolveRootOutput contains the resolved root.
type ResolveRootOutput struct {
	Task     *domain.Task // Snapshot of the root task
	Resumed  bool         // A previously persisted root was reused
	Detected bool         // Auto-detection picked the root
}

// ResolveRoot decides which subtree the selector walks. Resolution order:
// explicit override, persisted root that is still unfinished, auto-detection
// among top-level workable tasks. A persisted root whose task has finished
// is cleared before auto-detection runs.
type ResolveRoot struct {
	tasks  domain.TaskStore
	roots  domain.RootStore
	clock  domain.Clock
	logger domain.Logger
}

// NewResolveRoot creates a new ResolveRoot use case.
func NewResolveRoot(
	tasks domain.TaskStore,
	roots domain.RootStore,
	clock domain.Clock,
	logger domain.Logger,
) *ResolveRoot {
	return &ResolveRoot{
		tasks:  tasks,
		roots:  roots,
		clock:  clock,
		logger: logger,
	}
}

// Execute resolves the traversal root. Returns ErrNoRoot when nothing is
// persisted and auto-detection finds no candidate; the caller reports idle.
func (uc *ResolveRoot) Execute(ctx context.Context, in ResolveRootInput) (*ResolveRootOutput, error) {
	// Explicit override wins and is persisted immediately.
	if in.Override != "" {
		task, err := uc.tasks.Show(ctx, in.Override)
		if err != nil {
			return nil, fmt.Errorf("fetch root %s: %w", in.Override, err)
		}
		if task == nil {
			return nil, fmt.Errorf("root %s: %w", in.Override, domain.ErrTaskNotFound)
		}
		if !in.DryRun {
			if err := uc.persist(task.ID, in.RunID); err != nil {
				return nil, err
			}
			uc.logger.Info("", "root", fmt.Sprintf("root set to %s (%s)", task.ID, task.Title))
		}
		return &ResolveRootOutput{Task: task}, nil
	}

	// Resume the persisted root while its task is still unfinished.
	state, err := uc.roots.Load()
	if err != nil {
		return nil, fmt.Errorf("load root state: %w", err)
	}
	if state != nil {
		task, err := uc.tasks.Show(ctx, state.TaskID)
		if err != nil {
			return nil, fmt.Errorf("fetch root %s: %w", state.TaskID, err)
		}
		if task != nil && !task.Status.IsTerminal() {
			return &ResolveRootOutput{Task: task, Resumed: true}, nil
		}
		if !in.DryRun {
			uc.logger.Info("", "root", fmt.Sprintf("root %s is finished, clearing", state.TaskID))
			if err := uc.roots.Clear(); err != nil {
				return nil, fmt.Errorf("clear root state: %w", err)
			}
		}
	}

	// Auto-detect among top-level workable tasks.
	top, err := uc.tasks.ListTopLevel(ctx, []domain.Status{domain.StatusTodo, domain.StatusInProgress})
	if err != nil {
		return nil, fmt.Errorf("list top-level tasks: %w", err)
	}
	candidates := make([]*domain.Task, 0, len(top))
	for _, t := range top {
		if t.IsTopLevel() {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil, domain.ErrNoRoot
	}
	domain.SortTopLevelOrder(candidates)
	picked := candidates[0]

	if !in.DryRun {
		if err := uc.persist(picked.ID, in.RunID); err != nil {
			return nil, err
		}
		uc.logger.Info("", "root", fmt.Sprintf("auto-detected root %s (%s)", picked.ID, picked.Title))
	}
	return &ResolveRootOutput{Task: picked, Detected: true}, nil
}

func (uc *ResolveRoot) persist(taskID, runID string) error {
	state := domain.RootState{
		TaskID: taskID,
		RunID:  runID,
		SetAt:  uc.clock.Now(),
	}
	if err := uc.roots.Save(state); err != nil {
		return fmt.Errorf("save root state: %w", err)
	}
	return nil
}
