package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/runoshun/beanloop/internal/domain"
)

// ReconcileTaskInput contains the parameters for reconciling a workspace.
type ReconcileTaskInput struct {
	Task   *domain.Task // Snapshot of the finished task
	Target string       // Branch the workspace merges into
}

// ReconcileTaskOutput contains the result of a reconciliation.
type ReconcileTaskOutput struct {
	Merged  bool   // False when the workspace introduced no changes
	Message string // Message used for the squash or merge record
}

// ReconcileTask folds a finished task's workspace back into its merge
// target. Leaf tasks squash into a single typed commit built from the task
// title and changelog; composite tasks keep their history behind an explicit
// merge commit. A workspace with no content difference produces no record at
// all. Conflicts abort the merge and put the task's workspace back as the
// active branch for a human to resolve.
type ReconcileTask struct {
	tasks  domain.TaskStore
	vc     domain.VersionControl
	gate   sync.Locker
	logger domain.Logger
}

// NewReconcileTask creates a new ReconcileTask use case.
func NewReconcileTask(
	tasks domain.TaskStore,
	vc domain.VersionControl,
	gate sync.Locker,
	logger domain.Logger,
) *ReconcileTask {
	return &ReconcileTask{
		tasks:  tasks,
		vc:     vc,
		gate:   gate,
		logger: logger,
	}
}

// Execute reconciles the task's workspace into the target branch. On success
// the workspace branch is deleted and the target stays checked out. Returns
// ErrMergeConflict (wrapped) when the merge cannot complete cleanly.
func (uc *ReconcileTask) Execute(_ context.Context, in ReconcileTaskInput) (*ReconcileTaskOutput, error) {
	uc.gate.Lock()
	defer uc.gate.Unlock()

	branch := domain.WorkspaceName(in.Task.ID)

	// A crash mid-merge leaves the tree conflicted; recover before anything.
	inProgress, err := uc.vc.IsMergeInProgress()
	if err != nil {
		return nil, fmt.Errorf("check merge state: %w", err)
	}
	if inProgress {
		uc.logger.Warn(in.Task.ID, "reconcile", "aborting interrupted merge")
		if err := uc.vc.AbortMerge(); err != nil {
			return nil, fmt.Errorf("abort interrupted merge: %w", err)
		}
	}

	if err := guardedCheckout(uc.vc, uc.tasks.DataDir(), in.Target); err != nil {
		return nil, err
	}

	hasDiff, err := uc.vc.HasDiff(branch, in.Target)
	if err != nil {
		return nil, fmt.Errorf("diff %s against %s: %w", branch, in.Target, err)
	}
	if !hasDiff {
		uc.logger.Info(in.Task.ID, "reconcile", fmt.Sprintf("workspace %s matches %s, nothing to merge", branch, in.Target))
		if err := uc.vc.DeleteBranch(branch); err != nil {
			return nil, fmt.Errorf("delete workspace %s: %w", branch, err)
		}
		return &ReconcileTaskOutput{Merged: false}, nil
	}

	var message string
	if in.Task.Type.IsComposite() {
		message = domain.MergeMessage(in.Task)
		err = uc.vc.MergeCommit(branch, message)
	} else {
		message = domain.SquashMessage(in.Task)
		err = uc.vc.SquashMerge(branch, message)
	}
	if err != nil {
		if errors.Is(err, domain.ErrMergeConflict) {
			uc.logger.Error(in.Task.ID, "reconcile", fmt.Sprintf("merge of %s conflicts, workspace preserved", branch))
			if abortErr := uc.vc.AbortMerge(); abortErr != nil {
				return nil, fmt.Errorf("abort conflicted merge: %w", abortErr)
			}
			if coErr := guardedCheckout(uc.vc, uc.tasks.DataDir(), branch); coErr != nil {
				return nil, coErr
			}
			return nil, fmt.Errorf("reconcile %s: %w", in.Task.ID, domain.ErrMergeConflict)
		}
		return nil, fmt.Errorf("reconcile %s: %w", in.Task.ID, err)
	}

	if err := uc.vc.DeleteBranch(branch); err != nil {
		return nil, fmt.Errorf("delete workspace %s: %w", branch, err)
	}

	uc.logger.Info(in.Task.ID, "reconcile", fmt.Sprintf("merged %s into %s", branch, in.Target))
	return &ReconcileTaskOutput{Merged: true, Message: message}, nil
}
