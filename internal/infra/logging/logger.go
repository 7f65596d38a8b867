// Package logging provides file-based logging for beanloop.
// It outputs logs to both a global log file (.git/beanloop/logs/beanloop.log)
// and task-specific log files (.git/beanloop/logs/bean-<id>.log).
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/runoshun/beanloop/internal/domain"
)

// Ensure Logger implements domain.Logger interface.
var _ domain.Logger = (*Logger)(nil)

// Logger writes formatted log lines to files. Task-scoped entries go to both
// the global log and the task's own log.
type Logger struct {
	globalFile *os.File
	taskFiles  map[string]*os.File
	loopDir    string
	mu         sync.Mutex
	level      slog.Level
}

// New creates a new Logger that writes to the loop log directory.
// If loopDir is empty, logging is disabled (returns a no-op logger).
func New(loopDir string, level slog.Level) *Logger {
	return &Logger{
		loopDir:   loopDir,
		level:     level,
		taskFiles: make(map[string]*os.File),
	}
}

// ParseLevel parses a log level string into slog.Level.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ensureLogsDir creates the logs directory if it doesn't exist.
func (l *Logger) ensureLogsDir() error {
	logsDir := filepath.Join(l.loopDir, "logs")
	return os.MkdirAll(logsDir, 0o750)
}

// ensureGlobalFile opens or returns the global log file.
func (l *Logger) ensureGlobalFile() (*os.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.globalFile != nil {
		return l.globalFile, nil
	}

	if err := l.ensureLogsDir(); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}

	path := domain.GlobalLogPath(l.loopDir)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // Log file readable by owner and group
	if err != nil {
		return nil, fmt.Errorf("open global log file: %w", err)
	}
	l.globalFile = f
	return f, nil
}

// ensureTaskFile opens or returns the task log file.
func (l *Logger) ensureTaskFile(taskID string) (*os.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if f, ok := l.taskFiles[taskID]; ok {
		return f, nil
	}

	if err := l.ensureLogsDir(); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}

	path := domain.TaskLogPath(l.loopDir, taskID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // Log file readable by owner and group
	if err != nil {
		return nil, fmt.Errorf("open task log file: %w", err)
	}
	l.taskFiles[taskID] = f
	return f, nil
}

// TaskWriter returns a writer that appends raw output to the task log,
// used to stream agent stdout/stderr. Returns io.Discard when logging is
// disabled or the file cannot be opened.
func (l *Logger) TaskWriter(taskID string) io.Writer {
	if l.loopDir == "" || taskID == "" {
		return io.Discard
	}
	f, err := l.ensureTaskFile(taskID)
	if err != nil {
		return io.Discard
	}
	return f
}

// Close closes all open log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lastErr error
	if l.globalFile != nil {
		if err := l.globalFile.Close(); err != nil {
			lastErr = err
		}
		l.globalFile = nil
	}
	for id, f := range l.taskFiles {
		if err := f.Close(); err != nil {
			lastErr = err
		}
		delete(l.taskFiles, id)
	}
	return lastErr
}

// formatLog formats a log entry.
// Format: [2025-12-30T09:32:51Z] [INFO] [bean-task#1] [category] message
func formatLog(t time.Time, level slog.Level, taskID, category, msg string) string {
	taskStr := "global"
	if taskID != "" {
		taskStr = "bean-" + taskID
	}
	return fmt.Sprintf("[%s] [%s] [%s] [%s] %s\n",
		t.Format(time.RFC3339),
		levelToString(level),
		taskStr,
		category,
		msg,
	)
}

func levelToString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelInfo:
		return "INFO"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// log writes a log entry to appropriate files based on taskID.
// If taskID is empty, logs only to the global log.
// Otherwise, logs to both global and task-specific log.
func (l *Logger) log(level slog.Level, taskID, category, msg string) {
	if l.loopDir == "" {
		return // Logging disabled
	}

	if level < l.level {
		return
	}

	entry := formatLog(time.Now(), level, taskID, category, msg)

	if gf, err := l.ensureGlobalFile(); err == nil {
		_, _ = io.WriteString(gf, entry)
	}

	if taskID != "" {
		if tf, err := l.ensureTaskFile(taskID); err == nil {
			_, _ = io.WriteString(tf, entry)
		}
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(taskID string, category, msg string) {
	l.log(slog.LevelDebug, taskID, category, msg)
}

// Info logs an info message.
func (l *Logger) Info(taskID string, category, msg string) {
	l.log(slog.LevelInfo, taskID, category, msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(taskID string, category, msg string) {
	l.log(slog.LevelWarn, taskID, category, msg)
}

// Error logs an error message.
func (l *Logger) Error(taskID string, category, msg string) {
	l.log(slog.LevelError, taskID, category, msg)
}
