// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/runoshun/beanloop/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
	Slept   []time.Duration
	OnSleep func(d time.Duration) // Invoked per Sleep; lets tests flip state mid-wait
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	return m.NowTime
}

// Sleep records the duration and returns immediately.
func (m *MockClock) Sleep(_ context.Context, d time.Duration) {
	m.Slept = append(m.Slept, d)
	if m.OnSleep != nil {
		m.OnSleep(d)
	}
}

// MockTaskStore is a test double for domain.TaskStore. Tasks maps ids to
// stored records; TopLevel is returned by ListTopLevel. Reads return deep
// copies, like the real tracker decoding fresh JSON per call, so status and
// tag changes only become visible through a new fetch. All methods are safe
// for concurrent use so daemon tests can exercise parallel slots.
type MockTaskStore struct {
	mu           sync.Mutex
	Tasks        map[string]*domain.Task
	TopLevel     []*domain.Task
	ShowErr      error
	ShowErrFor   map[string]error
	ListErr      error
	SetStatusErr error
	AddTagErr    error
	CreateErr    error

	StatusSet map[string]domain.Status
	TagsAdded map[string][]string
	Created   []domain.TaskSpec
	ShowCalls []string
	ListCalls int

	DataDirPath string
	Available   bool
}

// NewMockTaskStore creates a MockTaskStore with initialized maps.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{
		Tasks:       make(map[string]*domain.Task),
		ShowErrFor:  make(map[string]error),
		StatusSet:   make(map[string]domain.Status),
		TagsAdded:   make(map[string][]string),
		DataDirPath: ".beans",
		Available:   true,
	}
}

// Show retrieves a copy of the stored task by id.
func (m *MockTaskStore) Show(_ context.Context, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ShowCalls = append(m.ShowCalls, id)
	if err, ok := m.ShowErrFor[id]; ok {
		return nil, err
	}
	if m.ShowErr != nil {
		return nil, m.ShowErr
	}
	return cloneTask(m.Tasks[id]), nil
}

// ListTopLevel returns copies of the configured top-level tasks filtered by
// status.
func (m *MockTaskStore) ListTopLevel(_ context.Context, statuses []domain.Status) ([]*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	match := func(s domain.Status) bool {
		for _, want := range statuses {
			if s == want {
				return true
			}
		}
		return len(statuses) == 0
	}
	var out []*domain.Task
	for _, t := range m.TopLevel {
		if match(t.Status) {
			out = append(out, cloneTask(t))
		}
	}
	return out, nil
}

// SetStatus records the status change and mirrors it into the stored task.
func (m *MockTaskStore) SetStatus(_ context.Context, id string, status domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetStatusErr != nil {
		return m.SetStatusErr
	}
	m.StatusSet[id] = status
	if t, ok := m.Tasks[id]; ok {
		t.Status = status
	}
	return nil
}

// AddTag records the tag addition and mirrors it into the stored task.
func (m *MockTaskStore) AddTag(_ context.Context, id string, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AddTagErr != nil {
		return m.AddTagErr
	}
	m.TagsAdded[id] = append(m.TagsAdded[id], tag)
	if t, ok := m.Tasks[id]; ok {
		t.Tags = append(t.Tags, tag)
	}
	return nil
}

// Create records the task spec and returns a generated id.
func (m *MockTaskStore) Create(_ context.Context, spec domain.TaskSpec) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	m.Created = append(m.Created, spec)
	return fmt.Sprintf("%s#%d", spec.Type, len(m.Created)), nil
}

// ListCount reports how many times ListTopLevel has been called.
func (m *MockTaskStore) ListCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ListCalls
}

// cloneTask deep-copies a task snapshot. Stored children are shared between
// the tree and the Tasks map, so mutations through SetStatus or AddTag show
// up in the next fetched copy.
func cloneTask(t *domain.Task) *domain.Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Tags = append([]string(nil), t.Tags...)
	c.BlockedBy = append([]domain.TaskRef(nil), t.BlockedBy...)
	if t.Children != nil {
		c.Children = make([]*domain.Task, len(t.Children))
		for i, child := range t.Children {
			c.Children[i] = cloneTask(child)
		}
	}
	return &c
}

// DataDir returns the configured tracker data directory.
func (m *MockTaskStore) DataDir() string {
	return m.DataDirPath
}

// IsAvailable returns the configured availability.
func (m *MockTaskStore) IsAvailable() bool {
	return m.Available
}

// MockVersionControl is a test double for domain.VersionControl. Branches
// tracks existing branch names; Current is the checked-out branch. Methods
// are safe for concurrent use so daemon tests can exercise parallel slots.
type MockVersionControl struct {
	mu       sync.Mutex
	Branches map[string]bool
	Current  string

	CreateBranchErr error
	CheckoutErr     error
	CheckoutErrFor  map[string]error
	SquashErr       error
	MergeErr        error
	DeleteErr       error
	CommitErr       error

	HasDiffResult   map[string]bool
	Uncommitted     bool
	MergeInProgress bool
	StatusEntries   []domain.FileChange
	DiffTextResult  string
	LastMsg         string

	CheckedOut     []string
	CreatedBranch  [][2]string
	SquashCalls    [][2]string
	MergeCalls     [][2]string
	Deleted        []string
	Commits        []string
	Amended        int
	AbortedMerges  int
	AddedPaths     [][]string
	AddAllCalls    int
	RestoredPaths  [][]string
	StatusReturned int
}

// NewMockVersionControl creates a MockVersionControl positioned on trunk.
func NewMockVersionControl() *MockVersionControl {
	return &MockVersionControl{
		Branches:       map[string]bool{"main": true},
		Current:        "main",
		CheckoutErrFor: make(map[string]error),
		HasDiffResult:  make(map[string]bool),
	}
}

// CurrentBranch returns the checked-out branch.
func (m *MockVersionControl) CurrentBranch() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Current, nil
}

// BranchExists checks the Branches map.
func (m *MockVersionControl) BranchExists(name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Branches[name], nil
}

// CreateBranch records the creation and registers the branch.
func (m *MockVersionControl) CreateBranch(name, base string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateBranchErr != nil {
		return m.CreateBranchErr
	}
	m.CreatedBranch = append(m.CreatedBranch, [2]string{name, base})
	m.Branches[name] = true
	return nil
}

// Checkout records the switch and updates Current.
func (m *MockVersionControl) Checkout(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.CheckoutErrFor[name]; ok {
		return err
	}
	if m.CheckoutErr != nil {
		return m.CheckoutErr
	}
	m.CheckedOut = append(m.CheckedOut, name)
	m.Current = name
	return nil
}

// HasDiff returns the configured result for the branch, default false.
func (m *MockVersionControl) HasDiff(name, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.HasDiffResult[name], nil
}

// SquashMerge records the call and fails with SquashErr when set.
func (m *MockVersionControl) SquashMerge(branch, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SquashCalls = append(m.SquashCalls, [2]string{branch, message})
	return m.SquashErr
}

// MergeCommit records the call and fails with MergeErr when set.
func (m *MockVersionControl) MergeCommit(branch, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MergeCalls = append(m.MergeCalls, [2]string{branch, message})
	return m.MergeErr
}

// DeleteBranch records the deletion.
func (m *MockVersionControl) DeleteBranch(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.Deleted = append(m.Deleted, name)
	delete(m.Branches, name)
	return nil
}

// CommitStaged records the commit message.
func (m *MockVersionControl) CommitStaged(message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CommitErr != nil {
		return m.CommitErr
	}
	m.Commits = append(m.Commits, message)
	m.LastMsg = message
	return nil
}

// AmendLast counts amends.
func (m *MockVersionControl) AmendLast() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Amended++
	return nil
}

// LastMessage returns the configured last commit subject.
func (m *MockVersionControl) LastMessage() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LastMsg, nil
}

// HasUncommittedChanges returns the configured flag.
func (m *MockVersionControl) HasUncommittedChanges() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Uncommitted, nil
}

// IsMergeInProgress returns the configured flag.
func (m *MockVersionControl) IsMergeInProgress() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.MergeInProgress, nil
}

// AbortMerge counts aborts and clears the in-progress flag.
func (m *MockVersionControl) AbortMerge() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AbortedMerges++
	m.MergeInProgress = false
	return nil
}

// Status returns the configured entries.
func (m *MockVersionControl) Status() ([]domain.FileChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusReturned++
	return m.StatusEntries, nil
}

// DiffText returns the configured diff.
func (m *MockVersionControl) DiffText(_ []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.DiffTextResult, nil
}

// Add records staged paths.
func (m *MockVersionControl) Add(paths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AddedPaths = append(m.AddedPaths, paths)
	return nil
}

// AddAll counts stage-everything calls.
func (m *MockVersionControl) AddAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AddAllCalls++
	return nil
}

// Restore records discarded paths.
func (m *MockVersionControl) Restore(paths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RestoredPaths = append(m.RestoredPaths, paths)
	return nil
}

// MockRootStore is a test double for domain.RootStore.
type MockRootStore struct {
	mu       sync.Mutex
	State    *domain.RootState
	LoadErr  error
	SaveErr  error
	Saved    []domain.RootState
	Cleared  int
	ClearErr error
}

// Load returns the stored state.
func (m *MockRootStore) Load() (*domain.RootState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.State, nil
}

// Save stores the state.
func (m *MockRootStore) Save(state domain.RootState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saved = append(m.Saved, state)
	m.State = &state
	return nil
}

// Clear removes the stored state.
func (m *MockRootStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.Cleared++
	m.State = nil
	return nil
}

// MockAgentRunner is a test double for domain.AgentRunner. ExitCodes is
// consumed one run at a time; when exhausted the last entry repeats. OnRun
// stands in for the agent's side effects: it is invoked per run so tests can
// update the task store the way a real agent drives the tracker CLI.
type MockAgentRunner struct {
	mu        sync.Mutex
	ExitCodes []int
	RunErr    error
	Runs      []domain.AgentInvocation
	OnRun     func(inv domain.AgentInvocation)
}

// Run records the invocation, applies OnRun, and pops the next exit code.
func (m *MockAgentRunner) Run(_ context.Context, inv domain.AgentInvocation) (int, error) {
	m.mu.Lock()
	m.Runs = append(m.Runs, inv)
	onRun := m.OnRun
	err := m.RunErr
	code := 0
	if len(m.ExitCodes) > 0 {
		code = m.ExitCodes[0]
		if len(m.ExitCodes) > 1 {
			m.ExitCodes = m.ExitCodes[1:]
		}
	}
	m.mu.Unlock()

	if onRun != nil {
		onRun(inv)
	}
	if err != nil {
		return -1, err
	}
	return code, nil
}

// RunCount returns how many runs were recorded.
func (m *MockAgentRunner) RunCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Runs)
}

// MockNotifier is a test double for domain.Notifier.
type MockNotifier struct {
	mu            sync.Mutex
	Notifications []domain.Notification
}

// Notify records the notification.
func (m *MockNotifier) Notify(_ context.Context, n domain.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Notifications = append(m.Notifications, n)
}

// Count returns how many notifications were recorded.
func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Notifications)
}

// MockEventSink is a test double for domain.EventSink.
type MockEventSink struct {
	mu     sync.Mutex
	Events []domain.Event
}

// Emit records the event.
func (m *MockEventSink) Emit(_ context.Context, e domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, e)
	return nil
}

// Kinds returns the emitted event kinds in order.
func (m *MockEventSink) Kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	kinds := make([]string, len(m.Events))
	for i, e := range m.Events {
		kinds[i] = e.Kind
	}
	return kinds
}

// MockPauseFlag is a test double for domain.PauseFlag.
type MockPauseFlag struct {
	Paused bool
}

// IsPaused reports the stored flag.
func (m *MockPauseFlag) IsPaused() bool {
	return m.Paused
}

// Set raises the stored flag.
func (m *MockPauseFlag) Set() error {
	m.Paused = true
	return nil
}

// Clear lowers the stored flag.
func (m *MockPauseFlag) Clear() error {
	m.Paused = false
	return nil
}

// NopLogger is a domain.Logger that discards everything.
type NopLogger struct{}

// Debug discards the message.
func (NopLogger) Debug(string, string, string) {}

// Info discards the message.
func (NopLogger) Info(string, string, string) {}

// Warn discards the message.
func (NopLogger) Warn(string, string, string) {}

// Error discards the message.
func (NopLogger) Error(string, string, string) {}

// RecordingLogger is a domain.Logger that keeps formatted lines for
// assertions.
type RecordingLogger struct {
	mu    sync.Mutex
	Lines []string
}

func (l *RecordingLogger) log(level, taskID, category, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Lines = append(l.Lines, fmt.Sprintf("%s %s %s %s", level, taskID, category, msg))
}

// Debug records the message.
func (l *RecordingLogger) Debug(taskID, category, msg string) {
	l.log("DEBUG", taskID, category, msg)
}

// Info records the message.
func (l *RecordingLogger) Info(taskID, category, msg string) {
	l.log("INFO", taskID, category, msg)
}

// Warn records the message.
func (l *RecordingLogger) Warn(taskID, category, msg string) {
	l.log("WARN", taskID, category, msg)
}

// Error records the message.
func (l *RecordingLogger) Error(taskID, category, msg string) {
	l.log("ERROR", taskID, category, msg)
}

// MockConfigLoader is a test double for domain.ConfigLoader.
type MockConfigLoader struct {
	Config  *domain.Config
	LoadErr error
}

// NewMockConfigLoader returns a loader serving the default config.
func NewMockConfigLoader() *MockConfigLoader {
	return &MockConfigLoader{Config: domain.NewDefaultConfig()}
}

// Load returns the configured config.
func (m *MockConfigLoader) Load() (*domain.Config, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Config, nil
}
