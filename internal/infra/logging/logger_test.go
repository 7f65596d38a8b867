package logging

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/runoshun/beanloop/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // default
		{"", slog.LevelInfo},        // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseLevel(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestLogger_Info(t *testing.T) {
	loopDir := t.TempDir()
	logger := New(loopDir, slog.LevelInfo)
	defer func() { _ = logger.Close() }()

	logger.Info("bug#7", "engine", "test message")

	// Verify global log
	content, err := os.ReadFile(domain.GlobalLogPath(loopDir))
	require.NoError(t, err)
	assert.Contains(t, string(content), "[INFO]")
	assert.Contains(t, string(content), "[bean-bug#7]")
	assert.Contains(t, string(content), "[engine]")
	assert.Contains(t, string(content), "test message")

	// Verify task log
	taskContent, err := os.ReadFile(domain.TaskLogPath(loopDir, "bug#7"))
	require.NoError(t, err)
	assert.Contains(t, string(taskContent), "[INFO]")
	assert.Contains(t, string(taskContent), "[bean-bug#7]")
	assert.Contains(t, string(taskContent), "test message")
}

func TestLogger_GlobalLogOnly(t *testing.T) {
	loopDir := t.TempDir()
	logger := New(loopDir, slog.LevelInfo)
	defer func() { _ = logger.Close() }()

	// Empty taskID logs to the global file only
	logger.Info("", "daemon", "global message")

	content, err := os.ReadFile(domain.GlobalLogPath(loopDir))
	require.NoError(t, err)
	assert.Contains(t, string(content), "[global]")
	assert.Contains(t, string(content), "global message")
}

func TestLogger_LevelFiltering(t *testing.T) {
	loopDir := t.TempDir()
	logger := New(loopDir, slog.LevelWarn) // Only warn and above
	defer func() { _ = logger.Close() }()

	logger.Debug("", "engine", "debug message")
	logger.Info("", "engine", "info message")
	logger.Warn("", "engine", "warn message")
	logger.Error("", "engine", "error message")

	content, err := os.ReadFile(domain.GlobalLogPath(loopDir))
	require.NoError(t, err)
	assert.NotContains(t, string(content), "debug message")
	assert.NotContains(t, string(content), "info message")
	assert.Contains(t, string(content), "warn message")
	assert.Contains(t, string(content), "error message")
}

func TestLogger_Disabled(t *testing.T) {
	logger := New("", slog.LevelInfo)
	defer func() { _ = logger.Close() }()

	// Must not panic or create files
	logger.Info("task#1", "engine", "dropped")
}

func TestLogger_TaskWriter(t *testing.T) {
	loopDir := t.TempDir()
	logger := New(loopDir, slog.LevelInfo)
	defer func() { _ = logger.Close() }()

	w := logger.TaskWriter("bug#7")
	_, err := w.Write([]byte("raw agent output\n"))
	require.NoError(t, err)

	content, err := os.ReadFile(domain.TaskLogPath(loopDir, "bug#7"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "raw agent output")
}

func TestLogger_TaskWriter_Disabled(t *testing.T) {
	logger := New("", slog.LevelInfo)

	w := logger.TaskWriter("bug#7")
	n, err := w.Write([]byte("dropped"))
	assert.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestLogger_AppendsAcrossEntries(t *testing.T) {
	loopDir := t.TempDir()
	logger := New(loopDir, slog.LevelInfo)
	defer func() { _ = logger.Close() }()

	logger.Info("task#1", "engine", "first")
	logger.Info("task#1", "engine", "second")

	content, err := os.ReadFile(domain.TaskLogPath(loopDir, "task#1"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	assert.Len(t, lines, 2)
}
