package domain

import (
	"context"
	"time"
)

// TaskStore queries and mutates tasks in the external tracker. All reads
// return bounded-depth snapshots; the tracker, not this engine, owns the
// records.
type TaskStore interface {
	// Show retrieves a task and its descendants/blockers to the configured
	// depth. Returns nil if the task does not exist.
	Show(ctx context.Context, id string) (*Task, error)

	// ListTopLevel retrieves parentless tasks matching any of the statuses.
	ListTopLevel(ctx context.Context, statuses []Status) ([]*Task, error)

	// SetStatus updates a task's status.
	SetStatus(ctx context.Context, id string, status Status) error

	// AddTag adds a tag to a task.
	AddTag(ctx context.Context, id string, tag string) error

	// Create creates a new task and returns its id.
	Create(ctx context.Context, spec TaskSpec) (string, error)

	// DataDir returns the tracker's data directory relative to the repo
	// root. Used to tell tracker bookkeeping apart from real changes.
	DataDir() string

	// IsAvailable checks that the tracker is usable in this repository.
	IsAvailable() bool
}

// TaskSpec describes a task to create.
type TaskSpec struct {
	Title    string
	Type     Type
	Priority Priority
	ParentID string
	Body     string
}

// FileChange is one entry from the version-control status listing.
type FileChange struct {
	Path      string
	Untracked bool
	Added     bool
}

// VersionControl provides the branch workspace operations the loop needs.
// All merge methods return ErrMergeConflict when the merge cannot complete
// cleanly; the conflicted state is left for AbortMerge.
type VersionControl interface {
	// CurrentBranch returns the name of the checked-out branch.
	CurrentBranch() (string, error)

	// BranchExists checks if a branch exists.
	BranchExists(name string) (bool, error)

	// CreateBranch creates a branch from the given base without switching.
	CreateBranch(name, base string) error

	// Checkout switches the working tree to the branch.
	Checkout(name string) error

	// HasDiff reports whether the branch introduces content changes over base.
	HasDiff(name, base string) (bool, error)

	// SquashMerge folds all of branch into a single staged change on the
	// current branch and commits it with the message.
	SquashMerge(branch, message string) error

	// MergeCommit merges branch into the current branch with an explicit
	// merge commit.
	MergeCommit(branch, message string) error

	// DeleteBranch deletes a fully merged branch.
	DeleteBranch(name string) error

	// CommitStaged commits the staged changes.
	CommitStaged(message string) error

	// AmendLast folds the staged changes into the previous commit.
	AmendLast() error

	// LastMessage returns the subject line of the latest commit.
	LastMessage() (string, error)

	// HasUncommittedChanges checks for any uncommitted changes.
	HasUncommittedChanges() (bool, error)

	// IsMergeInProgress reports whether a merge was left unfinished.
	IsMergeInProgress() (bool, error)

	// AbortMerge aborts an in-progress merge.
	AbortMerge() error

	// Status lists changed paths in the working tree.
	Status() ([]FileChange, error)

	// DiffText returns the unified diff of unstaged changes under paths.
	DiffText(paths []string) (string, error)

	// Add stages the given paths.
	Add(paths []string) error

	// AddAll stages everything, including untracked files.
	AddAll() error

	// Restore discards unstaged changes under the given paths.
	Restore(paths []string) error
}

// RootState is the persisted traversal root.
type RootState struct {
	TaskID string    `yaml:"task_id"`
	RunID  string    `yaml:"run_id,omitempty"`
	SetAt  time.Time `yaml:"set_at"`
}

// RootStore persists the traversal root across process restarts.
type RootStore interface {
	// Load returns the stored root, or nil when none is set.
	Load() (*RootState, error)

	// Save stores the root.
	Save(state RootState) error

	// Clear removes the stored root.
	Clear() error
}

// AgentInvocation describes one agent run.
type AgentInvocation struct {
	Agent  string // Backend name from config
	Model  string // Model identifier ("" = backend default)
	Prompt string
	TaskID string
	Dir    string // Working directory for the subprocess
}

// AgentRunner executes the external coding agent. Run blocks until the
// process exits and returns its exit code; output is logged, never parsed.
// Cancelling the context kills the process.
type AgentRunner interface {
	Run(ctx context.Context, inv AgentInvocation) (int, error)
}

// Notification describes a user-facing event.
type Notification struct {
	TaskID  string
	Title   string
	Outcome string
	Message string
}

// Notifier delivers notifications. Implementations must swallow their own
// failures; notifying is never allowed to break the loop.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// PauseFlag is the operator toggle that holds the loop between tasks. The
// flag is shared across processes; pause and resume flip it from a separate
// invocation while a run is in flight.
type PauseFlag interface {
	// IsPaused reports whether the flag is set.
	IsPaused() bool

	// Set raises the flag.
	Set() error

	// Clear lowers the flag. Clearing an unset flag is a no-op.
	Clear() error
}

// ConfigLoader loads configuration from files and the environment.
type ConfigLoader interface {
	// Load returns the merged configuration (defaults + global + repo + env).
	Load() (*Config, error)
}

// Logger writes categorized log lines to the global log and, when a task id
// is given, to that task's log file.
type Logger interface {
	Debug(taskID string, category string, msg string)
	Info(taskID string, category string, msg string)
	Warn(taskID string, category string, msg string)
	Error(taskID string, category string, msg string)
}

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep pauses for the duration unless the context ends first.
	Sleep(ctx context.Context, d time.Duration)
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Sleep pauses for the duration unless the context ends first.
func (RealClock) Sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
