package domain

// Status represents the lifecycle state of a task in the tracker.
type Status string

const (
	StatusDraft      Status = "draft"       // Not ready for work
	StatusTodo       Status = "todo"        // Ready, awaiting selection
	StatusInProgress Status = "in-progress" // Claimed by a running loop
	StatusCompleted  Status = "completed"   // Work finished and accepted
	StatusScrapped   Status = "scrapped"    // Abandoned, counts as done
)

// AllStatuses returns all valid status values.
func AllStatuses() []Status {
	return []Status{
		StatusDraft,
		StatusTodo,
		StatusInProgress,
		StatusCompleted,
		StatusScrapped,
	}
}

// transitions defines the status changes this engine is allowed to request.
// The tracker owns the full lifecycle; the loop only claims work and the
// agent moves tasks to their terminal states through the tracker CLI.
var transitions = map[Status][]Status{
	StatusDraft:      {StatusTodo, StatusScrapped},
	StatusTodo:       {StatusInProgress, StatusScrapped},
	StatusInProgress: {StatusCompleted, StatusScrapped, StatusTodo},
	StatusCompleted:  {},
	StatusScrapped:   {},
}

// CanTransitionTo returns true if the status can transition to the target status.
func (s Status) CanTransitionTo(target Status) bool {
	allowed, ok := transitions[s]
	if !ok {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusScrapped
}

// IsWorkable returns true if a task in this status may be selected for work.
func (s Status) IsWorkable() bool {
	return s == StatusTodo || s == StatusInProgress
}

// IsValid returns true if the status is a known valid value.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusTodo, StatusInProgress, StatusCompleted, StatusScrapped:
		return true
	default:
		return false
	}
}
