package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPromptModeFor(t *testing.T) {
	assert.Equal(t, PromptModeReview, PromptModeFor(TypeMilestone))
	assert.Equal(t, PromptModeReview, PromptModeFor(TypeEpic))
	assert.Equal(t, PromptModeReview, PromptModeFor(TypeFeature))
	assert.Equal(t, PromptModeImplement, PromptModeFor(TypeTask))
	assert.Equal(t, PromptModeImplement, PromptModeFor(TypeBug))
}

func TestBuildPrompt_Implement(t *testing.T) {
	task := &Task{
		ID:    "task#9",
		Title: "Add retry",
		Type:  TypeTask,
		Body:  "Retry transient failures.",
		Children: []*Task{
			{ID: "task#10", Title: "Sub work", Status: StatusTodo},
		},
	}
	parent := &Task{ID: "epic#2", Title: "Resilience"}

	prompt := BuildPrompt(task, parent, PromptModeImplement)

	assert.Contains(t, prompt, "Mode: Implementation")
	assert.Contains(t, prompt, "Task: task#9")
	assert.Contains(t, prompt, "Parent: epic#2 (Resilience)")
	assert.Contains(t, prompt, "Retry transient failures.")
	assert.Contains(t, prompt, "task#10 [todo] Sub work")
	assert.Contains(t, prompt, TagBlocked, "must tell the agent how to flag a dead end")
}

func TestBuildPrompt_ImplementWithoutParent(t *testing.T) {
	task := &Task{ID: "task#1", Title: "Solo", Type: TypeTask}
	prompt := BuildPrompt(task, nil, PromptModeImplement)

	assert.NotContains(t, prompt, "Parent:")
	assert.Contains(t, prompt, "Task: task#1")
}

func TestBuildPrompt_Review(t *testing.T) {
	task := &Task{
		ID:    "epic#2",
		Title: "Resilience",
		Type:  TypeEpic,
		Children: []*Task{
			{ID: "task#9", Title: "Add retry", Status: StatusCompleted},
			{ID: "task#10", Title: "Dropped", Status: StatusScrapped},
			{ID: "task#11", Title: "Open", Status: StatusTodo},
		},
	}

	prompt := BuildPrompt(task, nil, PromptModeReview)

	assert.Contains(t, prompt, "Mode: Review")
	assert.Contains(t, prompt, "task#9 [completed] Add retry")
	assert.Contains(t, prompt, "task#10 [scrapped] Dropped")
	assert.False(t, strings.Contains(prompt, "task#11"), "unfinished children are not listed for sign-off")
}
