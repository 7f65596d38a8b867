package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/beanloop/internal/domain"
	"github.com/runoshun/beanloop/internal/testutil"
)

func newTestReconcileTask(tasks *testutil.MockTaskStore, vc *testutil.MockVersionControl) *ReconcileTask {
	return NewReconcileTask(tasks, vc, &sync.Mutex{}, testutil.NopLogger{})
}

func TestReconcileTask_Execute_LeafSquashed(t *testing.T) {
	// Setup
	tasks := testutil.NewMockTaskStore()
	vc := testutil.NewMockVersionControl()
	vc.HasDiffResult["bean/bug-7"] = true
	uc := newTestReconcileTask(tasks, vc)
	task := &domain.Task{
		ID:     "bug#7",
		Title:  "Fix crash on empty input",
		Type:   domain.TypeBug,
		Status: domain.StatusCompleted,
		Body:   "Crash details.\n\n## Changelog\nFixed null pointer deref in the parser.",
	}

	// Execute
	out, err := uc.Execute(context.Background(), ReconcileTaskInput{Task: task, Target: "main"})

	// Assert
	require.NoError(t, err)
	assert.True(t, out.Merged)
	require.Len(t, vc.SquashCalls, 1)
	assert.Equal(t, "bean/bug-7", vc.SquashCalls[0][0])
	assert.Contains(t, out.Message, "fix: Fix crash on empty input")
	assert.Contains(t, out.Message, "Fixed null pointer deref in the parser.")
	assert.Contains(t, out.Message, "Bean: bug#7")
	assert.Equal(t, []string{"bean/bug-7"}, vc.Deleted)
	// The target is checked out before merging and stays active after.
	assert.Equal(t, []string{"main"}, vc.CheckedOut)
	assert.Empty(t, vc.MergeCalls)
}

func TestReconcileTask_Execute_CompositeMergeCommit(t *testing.T) {
	// Setup
	tasks := testutil.NewMockTaskStore()
	vc := testutil.NewMockVersionControl()
	vc.HasDiffResult["bean/epic-2"] = true
	uc := newTestReconcileTask(tasks, vc)
	task := &domain.Task{
		ID:     "epic#2",
		Title:  "Auth rework",
		Type:   domain.TypeEpic,
		Status: domain.StatusCompleted,
	}

	// Execute
	out, err := uc.Execute(context.Background(), ReconcileTaskInput{Task: task, Target: "bean/milestone-1"})

	// Assert
	require.NoError(t, err)
	assert.True(t, out.Merged)
	require.Len(t, vc.MergeCalls, 1)
	assert.Equal(t, "bean/epic-2", vc.MergeCalls[0][0])
	assert.Equal(t, "merge: Auth rework (epic#2)", out.Message)
	assert.Empty(t, vc.SquashCalls)
	assert.Equal(t, []string{"bean/epic-2"}, vc.Deleted)
}

func TestReconcileTask_Execute_NoDiffSkipsMerge(t *testing.T) {
	// Setup
	tasks := testutil.NewMockTaskStore()
	vc := testutil.NewMockVersionControl()
	uc := newTestReconcileTask(tasks, vc)
	task := &domain.Task{ID: "task#3", Title: "Docs pass", Type: domain.TypeTask, Status: domain.StatusCompleted}

	// Execute
	out, err := uc.Execute(context.Background(), ReconcileTaskInput{Task: task, Target: "main"})

	// Assert
	require.NoError(t, err)
	assert.False(t, out.Merged)
	assert.Empty(t, vc.SquashCalls)
	assert.Empty(t, vc.MergeCalls)
	assert.Equal(t, []string{"bean/task-3"}, vc.Deleted)
}

func TestReconcileTask_Execute_ConflictPreservesWorkspace(t *testing.T) {
	// Setup
	tasks := testutil.NewMockTaskStore()
	vc := testutil.NewMockVersionControl()
	vc.HasDiffResult["bean/bug-7"] = true
	vc.SquashErr = domain.ErrMergeConflict
	uc := newTestReconcileTask(tasks, vc)
	task := &domain.Task{ID: "bug#7", Title: "Fix crash", Type: domain.TypeBug, Status: domain.StatusCompleted}

	// Execute
	_, err := uc.Execute(context.Background(), ReconcileTaskInput{Task: task, Target: "main"})

	// Assert
	require.ErrorIs(t, err, domain.ErrMergeConflict)
	assert.Equal(t, 1, vc.AbortedMerges)
	// The workspace branch survives and comes back as the active branch.
	assert.Empty(t, vc.Deleted)
	assert.Equal(t, []string{"main", "bean/bug-7"}, vc.CheckedOut)
}

func TestReconcileTask_Execute_InterruptedMergeAborted(t *testing.T) {
	// Setup: a previous run died mid-merge.
	tasks := testutil.NewMockTaskStore()
	vc := testutil.NewMockVersionControl()
	vc.MergeInProgress = true
	uc := newTestReconcileTask(tasks, vc)
	task := &domain.Task{ID: "task#3", Title: "Docs pass", Type: domain.TypeTask, Status: domain.StatusCompleted}

	// Execute
	out, err := uc.Execute(context.Background(), ReconcileTaskInput{Task: task, Target: "main"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, vc.AbortedMerges)
	assert.False(t, out.Merged)
}

func TestReconcileTask_Execute_DirtyTreeRefused(t *testing.T) {
	// Setup
	tasks := testutil.NewMockTaskStore()
	vc := testutil.NewMockVersionControl()
	vc.StatusEntries = []domain.FileChange{{Path: "internal/server.go"}}
	uc := newTestReconcileTask(tasks, vc)
	task := &domain.Task{ID: "bug#7", Title: "Fix crash", Type: domain.TypeBug, Status: domain.StatusCompleted}

	// Execute
	_, err := uc.Execute(context.Background(), ReconcileTaskInput{Task: task, Target: "main"})

	// Assert
	require.ErrorIs(t, err, domain.ErrUncommittedChanges)
	assert.Empty(t, vc.SquashCalls)
}
