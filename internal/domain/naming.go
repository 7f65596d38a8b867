package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// WorkspaceName returns the branch name for a task's isolated workspace.
// Format: bean/<id>, with runes git refuses in ref names replaced by '-'.
// Tracker ids embed their type (e.g. "bug#7" becomes "bean/bug-7"), so the
// name keys the workspace by type and id together.
func WorkspaceName(taskID string) string {
	return "bean/" + sanitizeRef(taskID)
}

// sanitizeRef maps a tracker id onto a safe branch name component.
func sanitizeRef(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-' || r == '/':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// SquashMessage builds the commit message for a squashed leaf workspace:
// a typed subject, the task's changelog text, and a task-id footer.
func SquashMessage(task *Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", task.Type.CommitPrefix(), task.Title)
	if changelog := task.ChangelogText(); changelog != "" {
		b.WriteString("\n")
		b.WriteString(changelog)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nBean: %s\n", task.ID)
	return b.String()
}

// MergeMessage builds the commit message for a history-preserving merge of a
// composite task's workspace.
func MergeMessage(task *Task) string {
	return fmt.Sprintf("merge: %s (%s)", task.Title, task.ID)
}

// WipMessage builds the commit message for incidental changes bundled during
// an iteration.
func WipMessage(taskID string, iteration int) string {
	return fmt.Sprintf("wip: %s iteration %d", taskID, iteration)
}

// WipPrefix returns the subject prefix shared by a task's wip commits. Used
// to decide whether tracker-only changes can be folded into the last commit.
func WipPrefix(taskID string) string {
	return fmt.Sprintf("wip: %s ", taskID)
}

// RecordsMessage is the commit message used when new tracker records are
// persisted before a workspace switch.
func RecordsMessage() string {
	return "chore: bean records"
}

// TaskLogPath returns the path to a task's log file.
func TaskLogPath(loopDir string, taskID string) string {
	return filepath.Join(loopDir, "logs", fmt.Sprintf("bean-%s.log", sanitizeRef(taskID)))
}

// GlobalLogPath returns the path to the global log file.
func GlobalLogPath(loopDir string) string {
	return filepath.Join(loopDir, "logs", "beanloop.log")
}

// EventLogPath returns the path to the daemon event log.
func EventLogPath(loopDir string) string {
	return filepath.Join(loopDir, "events.jsonl")
}

// RunStatePath returns the path to the daemon run-state file.
func RunStatePath(loopDir string) string {
	return filepath.Join(loopDir, "daemon.json")
}

// PausePath returns the path to the pause flag file.
func PausePath(loopDir string) string {
	return filepath.Join(loopDir, "pause")
}
