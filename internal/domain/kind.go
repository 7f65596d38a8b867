package domain

// Type classifies a task. Composite types group other tasks and are merged
// with full history; leaf types are executed directly and squashed.
type Type string

const (
	TypeMilestone Type = "milestone"
	TypeEpic      Type = "epic"
	TypeFeature   Type = "feature"
	TypeTask      Type = "task"
	TypeBug       Type = "bug"
)

// IsComposite returns true for types that group child tasks.
func (t Type) IsComposite() bool {
	return t == TypeMilestone || t == TypeEpic || t == TypeFeature
}

// Rank orders types for root auto-detection. Lower ranks are picked first;
// unknown types sort last.
func (t Type) Rank() int {
	switch t {
	case TypeMilestone:
		return 0
	case TypeEpic:
		return 1
	case TypeFeature:
		return 2
	default:
		return 3
	}
}

// CommitPrefix returns the conventional-commit prefix used when a leaf task
// of this type is squashed into its merge target.
func (t Type) CommitPrefix() string {
	switch t {
	case TypeFeature:
		return "feat"
	case TypeBug:
		return "fix"
	default:
		return "chore"
	}
}

// Priority orders sibling tasks during selection. The zero value means the
// tracker left priority unset, which ranks the same as normal.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
	PriorityDeferred Priority = "deferred"
)

// Rank orders priorities for selection. Lower ranks are picked first.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityLow:
		return 3
	case PriorityDeferred:
		return 4
	default:
		return 2
	}
}
