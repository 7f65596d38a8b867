package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTask_Eligible(t *testing.T) {
	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"todo leaf", Task{Type: TypeTask, Status: StatusTodo}, true},
		{"in-progress leaf", Task{Type: TypeBug, Status: StatusInProgress}, true},
		{"draft", Task{Type: TypeTask, Status: StatusDraft}, false},
		{"completed", Task{Type: TypeTask, Status: StatusCompleted}, false},
		{"scrapped", Task{Type: TypeTask, Status: StatusScrapped}, false},
		{"blocked tag", Task{Type: TypeTask, Status: StatusTodo, Tags: []string{TagBlocked}}, false},
		{"failed tag", Task{Type: TypeTask, Status: StatusTodo, Tags: []string{TagFailed}}, false},
		{"ordinary tag", Task{Type: TypeTask, Status: StatusTodo, Tags: []string{"api"}}, true},
		{
			"open blocker",
			Task{Type: TypeTask, Status: StatusTodo, BlockedBy: []TaskRef{{ID: "x", Status: StatusTodo}}},
			false,
		},
		{
			"finished blockers",
			Task{Type: TypeTask, Status: StatusTodo, BlockedBy: []TaskRef{
				{ID: "x", Status: StatusCompleted},
				{ID: "y", Status: StatusScrapped},
			}},
			true,
		},
		{
			"composite with open child",
			Task{Type: TypeEpic, Status: StatusTodo, Children: []*Task{{ID: "c", Status: StatusTodo}}},
			false,
		},
		{
			"composite with finished children",
			Task{Type: TypeEpic, Status: StatusTodo, Children: []*Task{{ID: "c", Status: StatusCompleted}}},
			true,
		},
		{"composite without children", Task{Type: TypeFeature, Status: StatusTodo}, true},
		{
			"leaf ignores child completion",
			Task{Type: TypeTask, Status: StatusTodo, Children: []*Task{{ID: "c", Status: StatusTodo}}},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.Eligible())
		})
	}
}

func TestTask_ChangelogText(t *testing.T) {
	task := &Task{Body: `Some intro.

## Changelog

Fixed null pointer
Added regression test

## Notes

unrelated`}
	assert.Equal(t, "Fixed null pointer\nAdded regression test", task.ChangelogText())
}

func TestTask_ChangelogText_AtEndOfBody(t *testing.T) {
	task := &Task{Body: "## Changelog\nFixed crash on startup"}
	assert.Equal(t, "Fixed crash on startup", task.ChangelogText())
}

func TestTask_ChangelogText_Missing(t *testing.T) {
	task := &Task{Body: "Just a description.\n\n## Notes\nnothing"}
	assert.Equal(t, "", task.ChangelogText())

	empty := &Task{}
	assert.Equal(t, "", empty.ChangelogText())
}

func TestTask_ChangelogText_CaseInsensitiveHeading(t *testing.T) {
	task := &Task{Body: "### CHANGELOG\nReworked selector"}
	assert.Equal(t, "Reworked selector", task.ChangelogText())
}

func TestSortTopLevelOrder(t *testing.T) {
	tasks := []*Task{
		{ID: "f1", Type: TypeFeature, Status: StatusTodo, Priority: PriorityCritical},
		{ID: "m1", Type: TypeMilestone, Status: StatusTodo, Priority: PriorityLow},
		{ID: "e2", Type: TypeEpic, Status: StatusTodo, Priority: PriorityHigh},
		{ID: "e1", Type: TypeEpic, Status: StatusTodo, Priority: PriorityHigh},
		{ID: "t1", Type: TypeTask, Status: StatusTodo, Priority: PriorityCritical},
	}
	SortTopLevelOrder(tasks)

	got := make([]string, len(tasks))
	for i, task := range tasks {
		got[i] = task.ID
	}
	assert.Equal(t, []string{"m1", "e1", "e2", "f1", "t1"}, got)
}
