package audit

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct {
	mu     sync.Mutex
	recs   []Record
	fail   bool
	closed bool
	gate   chan struct{}
}

func (m *memSink) Write(_ context.Context, rec Record) error {
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("disk full")
	}
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func TestLoggerDeliversToAllSinks(t *testing.T) {
	a, b := &memSink{}, &memSink{}
	l, err := NewLogger(8, nil, a, b)
	require.NoError(t, err)

	l.Record(Record{Kind: KindPromptGeneration, Prompt: "p", Provider: "deepseek"})
	l.Record(Record{Kind: KindChatTurn, Prompt: "q", Provider: "openai"})
	require.NoError(t, l.Close())

	for _, s := range []*memSink{a, b} {
		require.Len(t, s.recs, 2)
		assert.NotEmpty(t, s.recs[0].ID)
		assert.False(t, s.recs[0].CreatedAt.IsZero())
		assert.Equal(t, KindChatTurn, s.recs[1].Kind)
		assert.True(t, s.closed)
	}
}

func TestLoggerDropsWhenQueueFull(t *testing.T) {
	sink := &memSink{gate: make(chan struct{})}
	l, err := NewLogger(1, nil, sink)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		// None of these may block even though the sink is stuck.
		for i := 0; i < 10; i++ {
			l.Record(Record{Kind: KindChatTurn})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	close(sink.gate)
	require.NoError(t, l.Close())
	assert.Less(t, len(sink.recs), 10)
	assert.GreaterOrEqual(t, len(sink.recs), 1)
}

func TestLoggerSinkFailureIsSwallowed(t *testing.T) {
	sink := &memSink{fail: true}
	l, err := NewLogger(4, nil, sink)
	require.NoError(t, err)

	l.Record(Record{Kind: KindCodeGeneration})
	require.NoError(t, l.Close())
	assert.Empty(t, sink.recs)
}

func TestLoggerRecordAfterClose(t *testing.T) {
	sink := &memSink{}
	l, err := NewLogger(4, nil, sink)
	require.NoError(t, err)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	l.Record(Record{Kind: KindChatTurn})
	assert.Empty(t, sink.recs)
}

func TestNewLoggerRejectsZeroQueue(t *testing.T) {
	_, err := NewLogger(0, nil)
	assert.Error(t, err)
}

func TestNDJSONSinkWritesPerUserFile(t *testing.T) {
	dir := t.TempDir()
	global := filepath.Join(dir, "global", "all.ndjson")
	sink, err := NewNDJSONSink(filepath.Join(dir, "users"), global)
	require.NoError(t, err)

	rec := Record{ID: "r1", Kind: KindCodeGeneration, UserID: "../u/1", Provider: "deepseek", Prompt: "p", Response: "<html></html>", CreatedAt: time.Now().UTC()}
	require.NoError(t, sink.Write(context.Background(), rec))
	require.NoError(t, sink.Write(context.Background(), Record{ID: "r2", Kind: KindChatTurn, Provider: "openai", Prompt: "q"}))

	data, err := os.ReadFile(filepath.Join(dir, "users", ".._u_1.ndjson"))
	require.NoError(t, err)
	var got Record
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &got))
	assert.Equal(t, "r1", got.ID)
	assert.Equal(t, "<html></html>", got.Response)

	_, err = os.Stat(filepath.Join(dir, "users", "anonymous.ndjson"))
	require.NoError(t, err)

	all, err := os.ReadFile(global)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(all)), "\n"), 2)
}

func TestSQLiteSinkAppendsAndLists(t *testing.T) {
	sink, err := NewSQLiteSink(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, sink.Write(ctx, Record{ID: "a", Kind: KindPromptGeneration, UserID: "u1", RequestRef: "Pendulum", Provider: "deepseek", Prompt: "p1", Response: "r1", CreatedAt: base}))
	require.NoError(t, sink.Write(ctx, Record{ID: "b", Kind: KindChatTurn, UserID: "u1", SessionID: "s1", Provider: "openai", Prompt: "p2", CreatedAt: base.Add(time.Second)}))
	require.NoError(t, sink.Write(ctx, Record{ID: "c", Kind: KindChatTurn, UserID: "u2", Provider: "openai", Prompt: "p3", CreatedAt: base}))

	recs, err := sink.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].ID)
	assert.Equal(t, KindPromptGeneration, recs[0].Kind)
	assert.Equal(t, "Pendulum", recs[0].RequestRef)
	assert.True(t, base.Equal(recs[0].CreatedAt))
	assert.Equal(t, "", recs[1].Response)
	assert.Equal(t, "s1", recs[1].SessionID)

	// Records are append-only: a duplicate ID is refused.
	assert.Error(t, sink.Write(ctx, Record{ID: "a", Kind: KindChatTurn, Provider: "openai", Prompt: "x", CreatedAt: base}))
}
