package generator

import (
	"context"
	"errors"
	"sync"

	"simulation_builder/audit"
)

// scriptedLLM replays queued replies and records every call it receives.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   [][]Message
	opts    []Options
	// block, when set, is waited on before answering.
	block chan struct{}
}

func (s *scriptedLLM) Complete(ctx context.Context, msgs []Message, opts Options) (string, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]Message, len(msgs))
	copy(cp, msgs)
	s.calls = append(s.calls, cp)
	s.opts = append(s.opts, opts)

	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return "", err
		}
	}
	if len(s.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

func (s *scriptedLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// memRecorder keeps records in memory.
type memRecorder struct {
	mu   sync.Mutex
	recs []audit.Record
}

func (m *memRecorder) Record(rec audit.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
}

func (m *memRecorder) records() []audit.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.Record, len(m.recs))
	copy(out, m.recs)
	return out
}
