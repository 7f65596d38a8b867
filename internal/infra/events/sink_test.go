package events

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/beanloop/internal/domain"
	"github.com/runoshun/beanloop/internal/testutil"
)

func TestFileSink_AppendsJSONL(t *testing.T) {
	loopDir := t.TempDir()
	sink := NewFileSink(loopDir)

	at := time.Date(2025, 11, 2, 9, 0, 0, 0, time.UTC)
	err := sink.Emit(context.Background(), domain.Event{
		Time:   at,
		RunID:  "run-1",
		TaskID: "bug#7",
		Kind:   domain.EventSelected,
	})
	require.NoError(t, err)

	err = sink.Emit(context.Background(), domain.Event{
		Time:   at.Add(time.Minute),
		RunID:  "run-1",
		TaskID: "bug#7",
		Kind:   domain.EventOutcome,
		Detail: string(domain.OutcomeCompleted),
	})
	require.NoError(t, err)

	content, err := os.ReadFile(domain.EventLogPath(loopDir))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"kind":"selected"`)
	assert.Contains(t, lines[0], `"task_id":"bug#7"`)
	assert.Contains(t, lines[1], `"detail":"completed"`)
}

func TestFileSink_CreatesStateDirectory(t *testing.T) {
	loopDir := filepath.Join(t.TempDir(), "beanloop")
	sink := NewFileSink(loopDir)

	err := sink.Emit(context.Background(), domain.Event{Kind: domain.EventIdle})
	require.NoError(t, err)

	_, err = os.Stat(domain.EventLogPath(loopDir))
	assert.NoError(t, err)
}

func TestFileSink_StampsMissingTime(t *testing.T) {
	loopDir := t.TempDir()
	sink := NewFileSink(loopDir)

	require.NoError(t, sink.Emit(context.Background(), domain.Event{Kind: domain.EventIdle}))

	got, err := ReadLog(domain.EventLogPath(loopDir))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Time.IsZero())
}

func TestReadLog_RoundTrip(t *testing.T) {
	loopDir := t.TempDir()
	sink := NewFileSink(loopDir)

	at := time.Date(2025, 11, 2, 9, 0, 0, 0, time.UTC)
	want := []domain.Event{
		{Time: at, RunID: "run-1", Kind: domain.EventRunStarted},
		{Time: at.Add(time.Second), RunID: "run-1", TaskID: "bug#7", Kind: domain.EventSelected},
		{Time: at.Add(time.Minute), RunID: "run-1", Kind: domain.EventRunDone},
	}
	for _, e := range want {
		require.NoError(t, sink.Emit(context.Background(), e))
	}

	got, err := ReadLog(domain.EventLogPath(loopDir))
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Kind, got[i].Kind)
		assert.Equal(t, want[i].TaskID, got[i].TaskID)
		assert.True(t, got[i].Time.Equal(want[i].Time))
	}
}

func TestReadLog_MissingFile(t *testing.T) {
	got, err := ReadLog(filepath.Join(t.TempDir(), "events.jsonl"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReadLog_SkipsTornLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	content := `{"time":"2025-11-02T09:00:00Z","kind":"run-started","run_id":"run-1"}` + "\n" +
		`{"time":"2025-11-02T09:01:00Z","kind":"sel`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))

	got, err := ReadLog(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.EventRunStarted, got[0].Kind)
}

func TestNop_DiscardsEvents(t *testing.T) {
	err := Nop{}.Emit(context.Background(), domain.Event{Kind: domain.EventIdle})
	assert.NoError(t, err)
}

type failingSink struct{ err error }

func (f failingSink) Emit(context.Context, domain.Event) error { return f.err }

func TestMulti_FansOut(t *testing.T) {
	a := &testutil.MockEventSink{}
	b := &testutil.MockEventSink{}

	m := Multi{a, b}
	require.NoError(t, m.Emit(context.Background(), domain.Event{Kind: domain.EventIdle}))

	assert.Equal(t, []string{domain.EventIdle}, a.Kinds())
	assert.Equal(t, []string{domain.EventIdle}, b.Kinds())
}

func TestMulti_AllSinksSeeEventOnError(t *testing.T) {
	boom := errors.New("boom")
	rec := &testutil.MockEventSink{}

	m := Multi{failingSink{err: boom}, rec}
	err := m.Emit(context.Background(), domain.Event{Kind: domain.EventIdle})

	assert.ErrorIs(t, err, boom)
	assert.Len(t, rec.Events, 1)
}
