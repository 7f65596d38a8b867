package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/runoshun/beanloop/internal/domain"
)

// OpenWorkspaceInput contains the parameters for opening a task workspace.
type OpenWorkspaceInput struct {
	Task *domain.Task // Snapshot of the task to isolate
}

// OpenWorkspaceOutput contains the result of opening a workspace.
type OpenWorkspaceOutput struct {
	Branch  string // The task's workspace branch, now checked out
	Target  string // The branch reconciliation merges into
	Created bool   // The workspace was created rather than reused
}

// OpenWorkspace gives a task an exclusive branch to mutate. The full
// ancestor chain gets workspaces first, created oldest-first so each child
// branches off its parent's workspace; the task's own branch is then checked
// out through the bookkeeping guard. All of it happens under the workspace
// gate because only one branch can be active in the shared working tree.
type OpenWorkspace struct {
	tasks  domain.TaskStore
	vc     domain.VersionControl
	gate   sync.Locker
	logger domain.Logger
	trunk  string
}

// NewOpenWorkspace creates a new OpenWorkspace use case.
func NewOpenWorkspace(
	tasks domain.TaskStore,
	vc domain.VersionControl,
	gate sync.Locker,
	logger domain.Logger,
	trunk string,
) *OpenWorkspace {
	return &OpenWorkspace{
		tasks:  tasks,
		vc:     vc,
		gate:   gate,
		logger: logger,
		trunk:  trunk,
	}
}

// Execute ensures the task's workspace exists and makes it the active branch.
func (uc *OpenWorkspace) Execute(ctx context.Context, in OpenWorkspaceInput) (*OpenWorkspaceOutput, error) {
	uc.gate.Lock()
	defer uc.gate.Unlock()

	chain, err := uc.ancestorChain(ctx, in.Task)
	if err != nil {
		return nil, err
	}

	// Create missing ancestor workspaces oldest-first; each one bases the
	// next. The ancestors stay unchecked-out, only the task's own branch
	// becomes active.
	base := uc.trunk
	for _, ancestor := range chain {
		name := domain.WorkspaceName(ancestor.ID)
		exists, err := uc.vc.BranchExists(name)
		if err != nil {
			return nil, fmt.Errorf("check workspace %s: %w", name, err)
		}
		if !exists {
			if err := uc.vc.CreateBranch(name, base); err != nil {
				return nil, fmt.Errorf("create workspace %s: %w", name, err)
			}
			uc.logger.Debug(in.Task.ID, "workspace", fmt.Sprintf("created ancestor workspace %s from %s", name, base))
		}
		base = name
	}

	branch := domain.WorkspaceName(in.Task.ID)
	exists, err := uc.vc.BranchExists(branch)
	if err != nil {
		return nil, fmt.Errorf("check workspace %s: %w", branch, err)
	}
	if !exists {
		if err := uc.vc.CreateBranch(branch, base); err != nil {
			return nil, fmt.Errorf("create workspace %s: %w", branch, err)
		}
	}

	if err := guardedCheckout(uc.vc, uc.tasks.DataDir(), branch); err != nil {
		return nil, err
	}

	uc.logger.Info(in.Task.ID, "workspace", fmt.Sprintf("workspace %s active, target %s", branch, base))
	return &OpenWorkspaceOutput{
		Branch:  branch,
		Target:  base,
		Created: !exists,
	}, nil
}

// ancestorChain fetches the task's ancestors oldest-first. A missing parent
// record ends the walk, in which case the chain bases off the trunk.
func (uc *OpenWorkspace) ancestorChain(ctx context.Context, task *domain.Task) ([]*domain.Task, error) {
	var chain []*domain.Task
	seen := map[string]bool{task.ID: true}
	for parentID := task.ParentID; parentID != ""; {
		if seen[parentID] {
			return nil, fmt.Errorf("ancestor cycle at %s: %w", parentID, domain.ErrInvalidRecord)
		}
		seen[parentID] = true

		parent, err := uc.tasks.Show(ctx, parentID)
		if err != nil {
			return nil, fmt.Errorf("fetch ancestor %s: %w", parentID, err)
		}
		if parent == nil {
			uc.logger.Warn(task.ID, "workspace", fmt.Sprintf("ancestor %s not found, basing on %s", parentID, uc.trunk))
			break
		}
		chain = append([]*domain.Task{parent}, chain...)
		parentID = parent.ParentID
	}
	return chain, nil
}
