// Package audit keeps an append-only trail of every prompt sent to a model and
// the response that came back.
package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"simulation_builder/logger"
)

// Kind says which engine step produced a record.
type Kind string

const (
	KindPromptGeneration Kind = "prompt-generation"
	KindCodeGeneration   Kind = "code-generation"
	KindChatTurn         Kind = "chat-turn"
)

// Record is one prompt/response exchange. Records are never mutated once queued.
type Record struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	UserID     string    `json:"user_id,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	RequestRef string    `json:"request_ref,omitempty"`
	Provider   string    `json:"provider"`
	Prompt     string    `json:"prompt"`
	Response   string    `json:"response,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Recorder accepts records. Implementations must not block or fail the caller.
type Recorder interface {
	Record(rec Record)
}

// Sink persists records. Sinks are only called from the Logger's writer goroutine.
type Sink interface {
	Write(ctx context.Context, rec Record) error
	Close() error
}

// Nop discards every record.
type Nop struct{}

func (Nop) Record(Record) {}

// Logger queues records and writes them to its sinks on a single goroutine.
// Record never blocks: when the queue is full the record is dropped and a
// warning is logged.
type Logger struct {
	sinks  []Sink
	queue  chan Record
	log    *logger.Logger
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewLogger(queueSize int, log *logger.Logger, sinks ...Sink) (*Logger, error) {
	if queueSize <= 0 {
		return nil, errors.New("audit queue size must be > 0")
	}
	if log == nil {
		log = logger.Nop()
	}
	l := &Logger{
		sinks: sinks,
		queue: make(chan Record, queueSize),
		log:   log,
	}
	l.wg.Add(1)
	go l.run()
	return l, nil
}

func (l *Logger) Record(rec Record) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.log.Warn("audit logger closed, dropping record", "kind", rec.Kind, "id", rec.ID)
		return
	}
	select {
	case l.queue <- rec:
	default:
		l.log.Warn("audit queue full, dropping record", "kind", rec.Kind, "id", rec.ID, "queue_size", cap(l.queue))
	}
}

func (l *Logger) run() {
	defer l.wg.Done()
	for rec := range l.queue {
		for _, s := range l.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.Write(ctx, rec); err != nil {
				l.log.Warn("audit sink write failed", "kind", rec.Kind, "id", rec.ID, "error", err)
			}
			cancel()
		}
	}
}

// Close drains the queue and closes the sinks.
func (l *Logger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	l.wg.Wait()
	var errs []error
	for _, s := range l.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
