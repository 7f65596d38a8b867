// Package events records loop events to the JSONL event log read by the
// watch view.
package events

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/runoshun/beanloop/internal/domain"
)

// FileSink appends events to a JSONL file, one object per line. The file is
// opened per emit so a tailing reader in another process never holds the
// sink back.
type FileSink struct {
	path string
	mu   sync.Mutex
}

// NewFileSink creates a FileSink writing to the event log of the given loop
// state directory.
func NewFileSink(loopDir string) *FileSink {
	return &FileSink{path: domain.EventLogPath(loopDir)}
}

// Emit appends the event to the log file.
func (s *FileSink) Emit(_ context.Context, e domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// Nop discards every event.
type Nop struct{}

// Emit discards the event.
func (Nop) Emit(context.Context, domain.Event) error {
	return nil
}

// Multi fans each event out to every sink. Every sink sees the event even
// when an earlier one fails; the first error is returned.
type Multi []domain.EventSink

// Emit forwards the event to all sinks.
func (m Multi) Emit(ctx context.Context, e domain.Event) error {
	var firstErr error
	for _, s := range m {
		if err := s.Emit(ctx, e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ReadLog returns all events currently in the log file at path. A missing
// file is an empty log. Lines that do not parse are skipped; a torn final
// line from an in-flight append must not break readers.
func ReadLog(path string) ([]domain.Event, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer file.Close()

	var out []domain.Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var e domain.Event
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}
	return out, nil
}

// Ensure sinks implement EventSink.
var (
	_ domain.EventSink = (*FileSink)(nil)
	_ domain.EventSink = Nop{}
	_ domain.EventSink = Multi{}
)
