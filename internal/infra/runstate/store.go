// Package runstate persists the live run snapshot and the pause flag under
// the loop state directory, for the status and watch commands.
package runstate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/runoshun/beanloop/internal/domain"
)

// Run phases recorded in the snapshot.
const (
	PhaseRunning = "running"
	PhaseIdle    = "idle"
	PhasePaused  = "paused"
	PhaseDone    = "done"
)

// recentLimit caps the outcome ring kept in the snapshot.
const recentLimit = 20

// TaskResult is one finished attempt in the recent ring.
type TaskResult struct {
	TaskID  string    `json:"task_id"`
	Outcome string    `json:"outcome"`
	Time    time.Time `json:"time"`
}

// State is the snapshot of the current (or last) run.
// Written by the process driving the loop, read by `beanloop status`.
type State struct {
	PID       int          `json:"pid"`
	RunID     string       `json:"run_id"`
	StartedAt time.Time    `json:"started_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Phase     string       `json:"state"`
	Completed int          `json:"completed"`
	Failed    int          `json:"failed"`
	Active    []string     `json:"active,omitempty"`
	Recent    []TaskResult `json:"recent,omitempty"`
}

// Store maintains the run snapshot as an event sink backed by a JSON file.
// A flock on a sibling lock file guards concurrent writers, so parallel
// daemon slots and a status read in another process stay consistent.
type Store struct {
	path     string
	lockPath string
}

// New creates a Store for the given loop state directory.
// The file does not need to exist; it is created on the first event.
func New(loopDir string) *Store {
	path := domain.RunStatePath(loopDir)
	return &Store{
		path:     path,
		lockPath: path + ".lock",
	}
}

// Emit folds one loop event into the snapshot.
func (s *Store) Emit(_ context.Context, e domain.Event) error {
	return s.withLockWrite(func(st *State) error {
		st.UpdatedAt = e.Time
		if e.RunID != "" {
			st.RunID = e.RunID
		}

		switch e.Kind {
		case domain.EventRunStarted:
			*st = State{
				PID:       os.Getpid(),
				RunID:     e.RunID,
				StartedAt: e.Time,
				UpdatedAt: e.Time,
				Phase:     PhaseRunning,
			}
		case domain.EventSelected:
			st.Phase = PhaseRunning
			if !slices.Contains(st.Active, e.TaskID) {
				st.Active = append(st.Active, e.TaskID)
			}
		case domain.EventOutcome:
			st.Active = slices.DeleteFunc(st.Active, func(id string) bool {
				return id == e.TaskID
			})
			st.Recent = append([]TaskResult{{
				TaskID:  e.TaskID,
				Outcome: e.Detail,
				Time:    e.Time,
			}}, st.Recent...)
			if len(st.Recent) > recentLimit {
				st.Recent = st.Recent[:recentLimit]
			}
			outcome := domain.Outcome(e.Detail)
			if outcome == domain.OutcomeCompleted {
				st.Completed++
			}
			if outcome.Failed() {
				st.Failed++
			}
		case domain.EventIdle:
			st.Phase = PhaseIdle
		case domain.EventPaused:
			st.Phase = PhasePaused
		case domain.EventRunDone:
			st.Phase = PhaseDone
			st.Active = nil
		}
		return nil
	})
}

// Read returns the last persisted snapshot, or nil when no run has written one.
func (s *Store) Read() (*State, error) {
	lock, err := s.acquireLock(syscall.LOCK_SH)
	if err != nil {
		return nil, err
	}
	defer s.releaseLock(lock)

	return s.read()
}

// withLockWrite executes fn with an exclusive lock and writes the result.
func (s *Store) withLockWrite(fn func(*State) error) error {
	lock, err := s.acquireLock(syscall.LOCK_EX)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	st, err := s.read()
	if err != nil {
		return err
	}
	if st == nil {
		st = &State{}
	}

	if err := fn(st); err != nil {
		return err
	}

	return s.write(st)
}

func (s *Store) acquireLock(lockType int) (*os.File, error) {
	// Ensure lock file directory exists
	dir := filepath.Dir(s.lockPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(lock.Fd()), lockType); err != nil {
		_ = lock.Close()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	return lock, nil
}

func (s *Store) releaseLock(lock *os.File) {
	_ = syscall.Flock(int(lock.Fd()), syscall.LOCK_UN)
	_ = lock.Close()
}

func (s *Store) read() (*State, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read run state: %w", err)
	}

	var st State
	if err := json.Unmarshal(content, &st); err != nil {
		return nil, fmt.Errorf("parse run state: %w", err)
	}

	return &st, nil
}

func (s *Store) write(st *State) error {
	content, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run state: %w", err)
	}

	// Write to temp file first, then rename for atomicity
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath) // Clean up
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// Ensure Store implements EventSink.
var _ domain.EventSink = (*Store)(nil)
