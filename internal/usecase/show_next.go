package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/runoshun/beanloop/internal/domain"
)

// ShowNextInput contains the parameters for the ShowNext use case.
type ShowNextInput struct {
	RootOverride string
}

// ShowNextOutput reports what the loop would do next. Task is nil when the
// selector finds nothing eligible; Root is nil when no root resolves at all.
// Detected is true when the root was picked from the top-level pool rather
// than persisted state or an override.
type ShowNextOutput struct {
	Root     *domain.Task
	Task     *domain.Task
	Detected bool
}

// ShowNext previews selection without side effects: root resolution runs in
// dry-run mode so nothing is persisted or cleared, which makes it safe to
// run alongside an active loop.
type ShowNext struct {
	tasks   domain.TaskStore
	resolve *ResolveRoot
}

// NewShowNext creates a new ShowNext use case.
func NewShowNext(tasks domain.TaskStore, resolve *ResolveRoot) *ShowNext {
	return &ShowNext{tasks: tasks, resolve: resolve}
}

// Execute resolves the root read-only and runs the selector once.
func (uc *ShowNext) Execute(ctx context.Context, in ShowNextInput) (*ShowNextOutput, error) {
	out := &ShowNextOutput{}

	res, err := uc.resolve.Execute(ctx, ResolveRootInput{Override: in.RootOverride, DryRun: true})
	if errors.Is(err, domain.ErrNoRoot) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	out.Detected = res.Detected

	// Detection hands back a shallow list entry; selection needs the tree.
	root, err := uc.tasks.Show(ctx, res.Task.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch root %s: %w", res.Task.ID, err)
	}
	if root == nil {
		return out, nil
	}
	out.Root = root

	nextID := domain.SelectNext(root)
	if nextID == "" {
		return out, nil
	}
	next, err := uc.tasks.Show(ctx, nextID)
	if err != nil {
		return nil, fmt.Errorf("fetch task %s: %w", nextID, err)
	}
	out.Task = next
	return out, nil
}
