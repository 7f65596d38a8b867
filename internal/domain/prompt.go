package domain

import (
	"fmt"
	"strings"
)

// PromptMode selects which kind of work the agent is asked to do.
type PromptMode string

const (
	// PromptModeImplement asks the agent to carry out a leaf task.
	PromptModeImplement PromptMode = "implement"

	// PromptModeReview asks the agent to sign off a composite task whose
	// children are all finished.
	PromptModeReview PromptMode = "review"
)

// PromptModeFor returns the prompt mode appropriate for a task's type.
func PromptModeFor(t Type) PromptMode {
	if t.IsComposite() {
		return PromptModeReview
	}
	return PromptModeImplement
}

// BuildPrompt renders the agent prompt for a task. The parent snapshot may be
// nil when the task is top-level or the parent could not be fetched; the
// prompt then simply omits the parent context section.
func BuildPrompt(task *Task, parent *Task, mode PromptMode) string {
	if mode == PromptModeReview {
		return buildReviewPrompt(task)
	}
	return buildImplementPrompt(task, parent)
}

func buildImplementPrompt(task *Task, parent *Task) string {
	sections := []string{
		"Mode: Implementation",
		"Task: " + task.ID,
		"Title: " + task.Title,
	}
	if parent != nil {
		sections = append(sections, fmt.Sprintf("Parent: %s (%s)", parent.ID, parent.Title))
	}
	if body := strings.TrimSpace(task.Body); body != "" {
		sections = append(sections, "Description:\n"+body)
	}
	if len(task.Children) > 0 {
		sections = append(sections, "Sub-tasks:\n"+summarizeTasks(task.Children))
	}
	sections = append(sections, implementInstructions(task.ID))
	return strings.Join(sections, "\n\n")
}

func buildReviewPrompt(task *Task) string {
	sections := []string{
		"Mode: Review",
		"Task: " + task.ID,
		"Title: " + task.Title,
	}
	if body := strings.TrimSpace(task.Body); body != "" {
		sections = append(sections, "Description:\n"+body)
	}
	done := make([]*Task, 0, len(task.Children))
	for _, c := range task.Children {
		if c.Status.IsTerminal() {
			done = append(done, c)
		}
	}
	if len(done) > 0 {
		sections = append(sections, "Completed sub-tasks:\n"+summarizeTasks(done))
	}
	sections = append(sections, reviewInstructions(task.ID))
	return strings.Join(sections, "\n\n")
}

// summarizeTasks renders one line per task: id, status, title.
func summarizeTasks(tasks []*Task) string {
	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		lines = append(lines, fmt.Sprintf("- %s [%s] %s", t.ID, t.Status, t.Title))
	}
	return strings.Join(lines, "\n")
}

func implementInstructions(taskID string) string {
	return fmt.Sprintf(`Instructions:
- Implement this task completely, then set its status to completed with the tracker CLI.
- Record what changed in the "## Changelog" section of the task body.
- If you cannot proceed, create a new task describing what is missing, link it as a blocker of %s, and tag %s with %q.`,
		taskID, taskID, TagBlocked)
}

func reviewInstructions(taskID string) string {
	return fmt.Sprintf(`Instructions:
- Review the completed sub-tasks as a whole.
- If the combined result is acceptable, set %s to completed with the tracker CLI.
- If anything is missing, create follow-up tasks under %s instead of completing it.`,
		taskID, taskID)
}
