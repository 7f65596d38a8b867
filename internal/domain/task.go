// Package domain contains core business entities and interfaces.
package domain

import (
	"sort"
	"strings"
)

// Control tags mark a task as needing human intervention. A tagged task is
// never selected until the tag is removed.
const (
	TagBlocked = "blocked"
	TagFailed  = "failed"
)

// TaskRef is a lightweight reference to another task, carrying only the
// fields needed for blocking checks.
type TaskRef struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
}

// Task represents a unit of work fetched from the tracker. A fetched task is
// a bounded-depth snapshot: Children recursively carry the same shape down to
// the fetch depth, deeper levels are truncated by the tracker query.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Type      Type      `json:"type"`
	Status    Status    `json:"status"`
	Priority  Priority  `json:"priority,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	ParentID  string    `json:"parent,omitempty"`
	Body      string    `json:"body,omitempty"`
	Children  []*Task   `json:"children,omitempty"`
	BlockedBy []TaskRef `json:"blocked_by,omitempty"`
}

// IsTopLevel returns true if the task has no parent.
func (t *Task) IsTopLevel() bool {
	return t.ParentID == ""
}

// HasControlTag returns true if any control tag is present.
func (t *Task) HasControlTag() bool {
	for _, tag := range t.Tags {
		if tag == TagBlocked || tag == TagFailed {
			return true
		}
	}
	return false
}

// Blocked returns true if any blocker has not reached a terminal status.
func (t *Task) Blocked() bool {
	for _, ref := range t.BlockedBy {
		if !ref.Status.IsTerminal() {
			return true
		}
	}
	return false
}

// ChildrenDone returns true if every child has reached a terminal status.
// A task with no children is trivially done.
func (t *Task) ChildrenDone() bool {
	for _, c := range t.Children {
		if !c.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// Eligible reports whether the task may be worked on right now: workable
// status, no control tags, all blockers finished, and (for composite types)
// all children finished.
func (t *Task) Eligible() bool {
	if !t.Status.IsWorkable() {
		return false
	}
	if t.HasControlTag() {
		return false
	}
	if t.Blocked() {
		return false
	}
	if t.Type.IsComposite() && !t.ChildrenDone() {
		return false
	}
	return true
}

// ChangelogText extracts the changelog section from the task body: the lines
// following a "## Changelog" heading up to the next heading. Returns "" when
// the body has no such section.
func (t *Task) ChangelogText() string {
	lines := strings.Split(t.Body, "\n")
	start := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			continue
		}
		heading := strings.ToLower(strings.TrimSpace(strings.TrimLeft(trimmed, "#")))
		if start == -1 {
			if heading == "changelog" {
				start = i + 1
			}
			continue
		}
		return strings.TrimSpace(strings.Join(lines[start:i], "\n"))
	}
	if start == -1 {
		return ""
	}
	return strings.TrimSpace(strings.Join(lines[start:], "\n"))
}

// SortWorkOrder sorts tasks into selection order: in-progress before todo,
// then by priority rank, then by id for determinism. The sort is stable so
// equal tasks keep the tracker's ordering.
func SortWorkOrder(tasks []*Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		ap := a.Status == StatusInProgress
		bp := b.Status == StatusInProgress
		if ap != bp {
			return ap
		}
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		return a.ID < b.ID
	})
}

// SortTopLevelOrder sorts top-level tasks for root auto-detection: by type
// rank (milestones first), then priority rank, then id.
func SortTopLevelOrder(tasks []*Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Type.Rank() != b.Type.Rank() {
			return a.Type.Rank() < b.Type.Rank()
		}
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		return a.ID < b.ID
	})
}
