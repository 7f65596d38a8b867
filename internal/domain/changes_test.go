package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTimestampNoise(t *testing.T) {
	noise := `diff --git a/.beans/bug-7.json b/.beans/bug-7.json
index 1111111..2222222 100644
--- a/.beans/bug-7.json
+++ b/.beans/bug-7.json
@@ -4,5 +4,5 @@
-  "updated_at": "2026-08-21T10:00:00Z",
+  "updated_at": "2026-08-22T11:30:00Z",
`
	assert.True(t, IsTimestampNoise(noise))

	real := `--- a/.beans/bug-7.json
+++ b/.beans/bug-7.json
@@ -2,5 +2,5 @@
-  "status": "todo",
+  "status": "in-progress",
-  "updated_at": "2026-08-21T10:00:00Z",
+  "updated_at": "2026-08-22T11:30:00Z",
`
	assert.False(t, IsTimestampNoise(real))

	assert.False(t, IsTimestampNoise(""), "empty diff is not noise")
}

func TestPartitionChanges(t *testing.T) {
	changes := []FileChange{
		{Path: ".beans/bug-7.json"},
		{Path: ".beans/epic-2.json", Untracked: true},
		{Path: "src/main.go"},
		{Path: ".beansprout/x"},
	}
	tracker, other := PartitionChanges(changes, ".beans")

	trackerPaths := make([]string, len(tracker))
	for i, c := range tracker {
		trackerPaths[i] = c.Path
	}
	assert.Equal(t, []string{".beans/bug-7.json", ".beans/epic-2.json"}, trackerPaths)

	otherPaths := make([]string, len(other))
	for i, c := range other {
		otherPaths[i] = c.Path
	}
	assert.Equal(t, []string{"src/main.go", ".beansprout/x"}, otherPaths)
}
