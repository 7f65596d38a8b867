package domain

import (
	"context"
	"time"
)

// Event kinds emitted by the loop.
const (
	EventRunStarted = "run-started"
	EventSelected   = "selected"
	EventIteration  = "iteration"
	EventAgentExit  = "agent-exit"
	EventOutcome    = "outcome"
	EventReconciled = "reconciled"
	EventIdle       = "idle"
	EventPaused     = "paused"
	EventRunDone    = "run-done"
)

// Event is one observable step of a run, written to the event log for the
// watch view and for post-mortem reading.
type Event struct {
	Time   time.Time `json:"time"`
	RunID  string    `json:"run_id,omitempty"`
	TaskID string    `json:"task_id,omitempty"`
	Kind   string    `json:"kind"`
	Detail string    `json:"detail,omitempty"`
}

// EventSink records loop events. Implementations must be safe for concurrent
// use; emit failures are the sink's problem, not the loop's.
type EventSink interface {
	Emit(ctx context.Context, e Event) error
}
