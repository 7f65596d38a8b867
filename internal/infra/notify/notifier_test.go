package notify

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/beanloop/internal/domain"
	"github.com/runoshun/beanloop/internal/testutil"
)

func TestCommand_Notify_RendersTemplate(t *testing.T) {
	original := CommandContext
	defer func() { CommandContext = original }()

	var rendered string
	CommandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		rendered = args[1]
		return exec.CommandContext(ctx, "true")
	}

	n := NewCommand(`notify-send beanloop "{{.TaskID}}: {{.Outcome}}"`, testutil.NopLogger{})
	n.Notify(context.Background(), domain.Notification{
		TaskID:  "bug#7",
		Outcome: "completed",
	})

	assert.Equal(t, `notify-send beanloop "bug#7: completed"`, rendered)
}

func TestCommand_Notify_RunsCommand(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "notified.txt")

	n := NewCommand("echo {{.TaskID}} > "+marker, testutil.NopLogger{})
	n.Notify(context.Background(), domain.Notification{TaskID: "task#1"})

	content, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Contains(t, string(content), "task#1")
}

func TestCommand_Notify_BadTemplate(t *testing.T) {
	logger := &testutil.RecordingLogger{}
	n := NewCommand("echo {{.Bogus", logger)

	// Must not panic; failure is logged and swallowed
	n.Notify(context.Background(), domain.Notification{TaskID: "task#1"})
	require.NotEmpty(t, logger.Lines)
	assert.Contains(t, logger.Lines[0], "WARN")
}

func TestCommand_Notify_CommandFailure(t *testing.T) {
	logger := &testutil.RecordingLogger{}
	n := NewCommand("exit 3", logger)

	n.Notify(context.Background(), domain.Notification{TaskID: "task#1"})
	require.NotEmpty(t, logger.Lines)
	assert.Contains(t, logger.Lines[0], "WARN")
}

func TestFromConfig(t *testing.T) {
	cfg := domain.NewDefaultConfig()

	_, isNop := FromConfig(cfg, false, testutil.NopLogger{}).(Nop)
	assert.True(t, isNop, "no command configured")

	cfg.Notify.Command = "echo hi"
	_, isNop = FromConfig(cfg, false, testutil.NopLogger{}).(Nop)
	assert.False(t, isNop)

	_, isNop = FromConfig(cfg, true, testutil.NopLogger{}).(Nop)
	assert.True(t, isNop, "silent forces nop")
}
