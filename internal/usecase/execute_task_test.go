package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/beanloop/internal/domain"
	"github.com/runoshun/beanloop/internal/testutil"
)

// executeFixture bundles the doubles behind an ExecuteTask wired like the
// container does it, sharing one workspace gate across open and reconcile.
type executeFixture struct {
	tasks  *testutil.MockTaskStore
	vc     *testutil.MockVersionControl
	runner *testutil.MockAgentRunner
	clock  *testutil.MockClock
	events *testutil.MockEventSink
	cfg    *domain.Config
	uc     *ExecuteTask
}

func newExecuteFixture(cfg *domain.Config) *executeFixture {
	f := &executeFixture{
		tasks:  testutil.NewMockTaskStore(),
		vc:     testutil.NewMockVersionControl(),
		runner: &testutil.MockAgentRunner{},
		clock:  &testutil.MockClock{NowTime: time.Date(2025, 11, 2, 9, 0, 0, 0, time.UTC)},
		events: &testutil.MockEventSink{},
		cfg:    cfg,
	}
	gate := &sync.Mutex{}
	logger := testutil.NopLogger{}
	open := NewOpenWorkspace(f.tasks, f.vc, gate, logger, cfg.Trunk)
	reconcile := NewReconcileTask(f.tasks, f.vc, gate, logger)
	f.uc = NewExecuteTask(f.tasks, f.vc, f.runner, f.clock, logger, f.events, gate, open, reconcile, cfg, "/tmp/repo")
	return f
}

func testConfig(isolation bool) *domain.Config {
	cfg := domain.NewDefaultConfig()
	cfg.Agent = "claude"
	cfg.BranchIsolation = isolation
	return cfg
}

func seedBug(f *executeFixture) {
	f.tasks.Tasks["bug#7"] = &domain.Task{
		ID:     "bug#7",
		Title:  "Fix crash on empty input",
		Type:   domain.TypeBug,
		Status: domain.StatusTodo,
	}
}

// completeOnRun simulates an agent that finishes the task through the
// tracker CLI during its run.
func completeOnRun(f *executeFixture, id string) {
	f.runner.OnRun = func(domain.AgentInvocation) {
		_ = f.tasks.SetStatus(context.Background(), id, domain.StatusCompleted)
	}
}

func TestExecuteTask_Execute_CompletedFirstIteration(t *testing.T) {
	// Setup
	f := newExecuteFixture(testConfig(false))
	seedBug(f)
	completeOnRun(f, "bug#7")

	// Execute
	out, err := f.uc.Execute(context.Background(), ExecuteTaskInput{TaskID: "bug#7", RunID: "run-1"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCompleted, out.Outcome)
	assert.Equal(t, 1, out.Iterations)
	require.Len(t, f.runner.Runs, 1)
	assert.Equal(t, "claude", f.runner.Runs[0].Agent)
	assert.Equal(t, "/tmp/repo", f.runner.Runs[0].Dir)
	assert.Contains(t, f.runner.Runs[0].Prompt, "Task: bug#7")
	assert.Equal(t, []string{domain.EventIteration, domain.EventAgentExit, domain.EventOutcome}, f.events.Kinds())
	assert.Equal(t, "1/5", f.events.Events[0].Detail)
	assert.Equal(t, "run-1", f.events.Events[0].RunID)
	assert.Equal(t, string(domain.OutcomeCompleted), f.events.Events[2].Detail)
	// Isolation off: the working tree never switches branches.
	assert.Empty(t, f.vc.CheckedOut)
}

func TestExecuteTask_Execute_CompletedWithIsolation(t *testing.T) {
	// Setup
	f := newExecuteFixture(testConfig(true))
	seedBug(f)
	completeOnRun(f, "bug#7")
	f.vc.HasDiffResult["bean/bug-7"] = true

	// Execute
	out, err := f.uc.Execute(context.Background(), ExecuteTaskInput{TaskID: "bug#7", RunID: "run-1"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCompleted, out.Outcome)
	require.Len(t, f.vc.CreatedBranch, 1)
	assert.Equal(t, [2]string{"bean/bug-7", "main"}, f.vc.CreatedBranch[0])
	assert.Equal(t, []string{"bean/bug-7", "main"}, f.vc.CheckedOut)
	require.Len(t, f.vc.SquashCalls, 1)
	assert.Equal(t, []string{"bean/bug-7"}, f.vc.Deleted)
	assert.Contains(t, f.events.Kinds(), domain.EventReconciled)
}

func TestExecuteTask_Execute_ClaimsTodoTask(t *testing.T) {
	// Setup
	cfg := testConfig(false)
	cfg.MaxIterations = 1
	f := newExecuteFixture(cfg)
	seedBug(f)

	// Execute
	out, err := f.uc.Execute(context.Background(), ExecuteTaskInput{TaskID: "bug#7"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, f.tasks.StatusSet["bug#7"])
	assert.Equal(t, domain.OutcomeExhausted, out.Outcome)
	assert.Equal(t, 1, out.Iterations)
}

func TestExecuteTask_Execute_ClaimFailureIsBestEffort(t *testing.T) {
	// Setup: tracker writes fail, reads keep working.
	f := newExecuteFixture(testConfig(false))
	seedBug(f)
	f.tasks.SetStatusErr = errors.New("bean: write failed")
	f.runner.OnRun = func(domain.AgentInvocation) {
		f.tasks.Tasks["bug#7"].Status = domain.StatusCompleted
	}

	// Execute
	out, err := f.uc.Execute(context.Background(), ExecuteTaskInput{TaskID: "bug#7"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCompleted, out.Outcome)
}

func TestExecuteTask_Execute_CircuitBreakerTrips(t *testing.T) {
	// Setup
	f := newExecuteFixture(testConfig(false))
	seedBug(f)
	f.runner.ExitCodes = []int{1}

	// Execute
	out, err := f.uc.Execute(context.Background(), ExecuteTaskInput{TaskID: "bug#7"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCircuitBroken, out.Outcome)
	assert.Equal(t, 1, out.Iterations)
	assert.Len(t, f.runner.Runs, 3)
	assert.Equal(t, []string{domain.TagFailed}, f.tasks.TagsAdded["bug#7"])
	// Two retry delays: the third failure trips the breaker immediately.
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, f.clock.Slept)
}

func TestExecuteTask_Execute_CircuitBreakerResetsOnSuccess(t *testing.T) {
	// Setup: two failures, one clean run, then three failures.
	f := newExecuteFixture(testConfig(false))
	seedBug(f)
	f.runner.ExitCodes = []int{1, 1, 0, 1, 1, 1}

	// Execute
	out, err := f.uc.Execute(context.Background(), ExecuteTaskInput{TaskID: "bug#7"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCircuitBroken, out.Outcome)
	assert.Equal(t, 2, out.Iterations)
	assert.Len(t, f.runner.Runs, 6)
}

func TestExecuteTask_Execute_CircuitBrokenLeavesWorkspaceActive(t *testing.T) {
	// Setup
	f := newExecuteFixture(testConfig(true))
	seedBug(f)
	f.runner.ExitCodes = []int{1}

	// Execute
	out, err := f.uc.Execute(context.Background(), ExecuteTaskInput{TaskID: "bug#7"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCircuitBroken, out.Outcome)
	// The branch stays checked out for inspection, nothing is restored.
	assert.Equal(t, []string{"bean/bug-7"}, f.vc.CheckedOut)
	assert.Empty(t, f.vc.Deleted)
}

func TestExecuteTask_Execute_ControlTagStopsAttempt(t *testing.T) {
	// Setup: the agent tags the task blocked instead of finishing it.
	f := newExecuteFixture(testConfig(true))
	seedBug(f)
	f.runner.OnRun = func(domain.AgentInvocation) {
		_ = f.tasks.AddTag(context.Background(), "bug#7", domain.TagBlocked)
	}

	// Execute
	out, err := f.uc.Execute(context.Background(), ExecuteTaskInput{TaskID: "bug#7"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeStuck, out.Outcome)
	assert.Equal(t, 1, out.Iterations)
	assert.Len(t, f.runner.Runs, 1)
	// Target restored, workspace branch kept for later.
	assert.Equal(t, []string{"bean/bug-7", "main"}, f.vc.CheckedOut)
	assert.Empty(t, f.vc.Deleted)
}

func TestExecuteTask_Execute_ExhaustedRestoresTarget(t *testing.T) {
	// Setup
	cfg := testConfig(true)
	cfg.MaxIterations = 2
	f := newExecuteFixture(cfg)
	seedBug(f)

	// Execute
	out, err := f.uc.Execute(context.Background(), ExecuteTaskInput{TaskID: "bug#7"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeExhausted, out.Outcome)
	assert.Equal(t, 2, out.Iterations)
	assert.Len(t, f.runner.Runs, 2)
	assert.Equal(t, []string{"bean/bug-7", "main"}, f.vc.CheckedOut)
}

func TestExecuteTask_Execute_FetchFailedInitially(t *testing.T) {
	// Setup
	f := newExecuteFixture(testConfig(false))
	f.tasks.ShowErr = errors.New("bean: exploded")

	// Execute
	out, err := f.uc.Execute(context.Background(), ExecuteTaskInput{TaskID: "bug#7"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFetchFailed, out.Outcome)
	assert.Zero(t, out.Iterations)
	assert.Empty(t, f.runner.Runs)
	assert.Equal(t, []string{domain.EventOutcome}, f.events.Kinds())
}

func TestExecuteTask_Execute_FetchFailedMidAttempt(t *testing.T) {
	// Setup: the record disappears while the agent is running.
	f := newExecuteFixture(testConfig(true))
	seedBug(f)
	f.runner.OnRun = func(domain.AgentInvocation) {
		delete(f.tasks.Tasks, "bug#7")
	}

	// Execute
	out, err := f.uc.Execute(context.Background(), ExecuteTaskInput{TaskID: "bug#7"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFetchFailed, out.Outcome)
	assert.Equal(t, 1, out.Iterations)
	assert.Equal(t, []string{"bean/bug-7", "main"}, f.vc.CheckedOut)
}

func TestExecuteTask_Execute_DryRun(t *testing.T) {
	// Setup
	f := newExecuteFixture(testConfig(true))
	f.tasks.Tasks["epic#2"] = &domain.Task{ID: "epic#2", Title: "Auth rework", Type: domain.TypeEpic, Status: domain.StatusInProgress}
	f.tasks.Tasks["bug#7"] = &domain.Task{
		ID:       "bug#7",
		Title:    "Fix crash on empty input",
		Type:     domain.TypeBug,
		Status:   domain.StatusTodo,
		ParentID: "epic#2",
	}

	// Execute
	out, err := f.uc.Execute(context.Background(), ExecuteTaskInput{TaskID: "bug#7", DryRun: true})

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out.Prompt, "Task: bug#7")
	assert.Contains(t, out.Prompt, "Fix crash on empty input")
	assert.Contains(t, out.Prompt, "Parent: epic#2")
	assert.Empty(t, f.runner.Runs)
	assert.Empty(t, f.tasks.StatusSet)
	assert.Empty(t, f.events.Events)
	assert.Empty(t, f.vc.CheckedOut)
	assert.Empty(t, f.vc.CreatedBranch)
}

func TestExecuteTask_Execute_ReviewPromptForComposite(t *testing.T) {
	// Setup
	f := newExecuteFixture(testConfig(false))
	f.tasks.Tasks["milestone#1"] = &domain.Task{
		ID:     "milestone#1",
		Title:  "Ship v1",
		Type:   domain.TypeMilestone,
		Status: domain.StatusInProgress,
		Children: []*domain.Task{
			{ID: "task#2", Title: "Wire storage", Type: domain.TypeTask, Status: domain.StatusCompleted},
		},
	}

	// Execute
	out, err := f.uc.Execute(context.Background(), ExecuteTaskInput{TaskID: "milestone#1", DryRun: true})

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out.Prompt, "Mode: Review")
	assert.Contains(t, out.Prompt, "task#2")
}

func TestExecuteTask_Execute_UnknownAgentFatal(t *testing.T) {
	// Setup
	f := newExecuteFixture(testConfig(false))
	seedBug(f)
	f.runner.RunErr = domain.ErrUnknownAgent

	// Execute
	_, err := f.uc.Execute(context.Background(), ExecuteTaskInput{TaskID: "bug#7"})

	// Assert
	require.ErrorIs(t, err, domain.ErrUnknownAgent)
	assert.Len(t, f.runner.Runs, 1)
}

func TestExecuteTask_Execute_SpawnErrorCountsAsFailure(t *testing.T) {
	// Setup
	f := newExecuteFixture(testConfig(false))
	seedBug(f)
	f.runner.RunErr = errors.New("spawn: executable not found")

	// Execute
	out, err := f.uc.Execute(context.Background(), ExecuteTaskInput{TaskID: "bug#7"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCircuitBroken, out.Outcome)
	assert.Len(t, f.runner.Runs, 3)
	// The synthetic exit code -1 shows up in the event trail.
	var exits []string
	for _, e := range f.events.Events {
		if e.Kind == domain.EventAgentExit {
			exits = append(exits, e.Detail)
		}
	}
	assert.Equal(t, []string{"-1", "-1", "-1"}, exits)
}

func TestExecuteTask_Execute_CancelPreservesInterruptedWork(t *testing.T) {
	// Setup: cancellation surfaces as a runner error with a dead context.
	f := newExecuteFixture(testConfig(false))
	seedBug(f)
	f.runner.RunErr = context.Canceled
	f.vc.StatusEntries = []domain.FileChange{{Path: "internal/server.go"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Execute
	_, err := f.uc.Execute(ctx, ExecuteTaskInput{TaskID: "bug#7"})

	// Assert
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.vc.AddAllCalls)
	assert.Equal(t, []string{domain.WipMessage("bug#7", 1)}, f.vc.Commits)
}

func TestExecuteTask_Execute_ScrappedMidAttemptKeepsIterating(t *testing.T) {
	// Setup: only a completed status or a control tag ends the attempt early;
	// a scrap mid-run lets the remaining budget play out.
	cfg := testConfig(false)
	cfg.MaxIterations = 2
	f := newExecuteFixture(cfg)
	seedBug(f)
	f.runner.OnRun = func(domain.AgentInvocation) {
		_ = f.tasks.SetStatus(context.Background(), "bug#7", domain.StatusScrapped)
	}

	// Execute
	out, err := f.uc.Execute(context.Background(), ExecuteTaskInput{TaskID: "bug#7"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeExhausted, out.Outcome)
	assert.Len(t, f.runner.Runs, 2)
}

func TestExecuteTask_Execute_ReconcileConflictPropagates(t *testing.T) {
	// Setup
	f := newExecuteFixture(testConfig(true))
	seedBug(f)
	completeOnRun(f, "bug#7")
	f.vc.HasDiffResult["bean/bug-7"] = true
	f.vc.SquashErr = domain.ErrMergeConflict

	// Execute
	_, err := f.uc.Execute(context.Background(), ExecuteTaskInput{TaskID: "bug#7"})

	// Assert
	require.ErrorIs(t, err, domain.ErrMergeConflict)
	// Reconciliation put the conflicted workspace back as the active branch.
	assert.Equal(t, []string{"bean/bug-7", "main", "bean/bug-7"}, f.vc.CheckedOut)
}

func TestExecuteTask_Execute_FailedIterationRepeatsCount(t *testing.T) {
	// Setup: failures burn retries, not iteration budget.
	f := newExecuteFixture(testConfig(false))
	seedBug(f)
	f.runner.ExitCodes = []int{1, 0}
	completed := false
	f.runner.OnRun = func(domain.AgentInvocation) {
		if completed {
			_ = f.tasks.SetStatus(context.Background(), "bug#7", domain.StatusCompleted)
		}
		completed = true
	}

	// Execute
	out, err := f.uc.Execute(context.Background(), ExecuteTaskInput{TaskID: "bug#7"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCompleted, out.Outcome)
	assert.Equal(t, 1, out.Iterations)
	assert.Len(t, f.runner.Runs, 2)
	var details []string
	for _, e := range f.events.Events {
		if e.Kind == domain.EventIteration {
			details = append(details, e.Detail)
		}
	}
	assert.Equal(t, []string{"1/5", "1/5"}, details)
}
