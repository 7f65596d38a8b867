package domain

import "errors"

// Domain errors.
var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrMergeConflict      = errors.New("merge conflict exists")
	ErrUncommittedChanges = errors.New("uncommitted changes exist")
	ErrNotGitRepository   = errors.New("not a git repository (or any of the parent directories)")
	ErrUnknownAgent       = errors.New("unknown agent backend")
	ErrTrackerUnavailable = errors.New("tracker data directory not found")
	ErrInvalidRecord      = errors.New("tracker returned an invalid record")
	ErrNoRoot             = errors.New("no traversal root configured")
)
