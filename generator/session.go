package generator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"simulation_builder/audit"
)

// State of a refinement session.
type State int32

const (
	StateIdle State = iota
	StateAwaiting
)

func (s State) String() string {
	if s == StateAwaiting {
		return "awaiting"
	}
	return "idle"
}

// Session holds the conversation and the current code of one simulation being refined.
// At most one turn runs at a time; a second Submit while one is in flight is rejected.
type Session struct {
	ID        string
	Caller    Caller
	CreatedAt time.Time

	agent *Agent
	state atomic.Int32

	mu       sync.RWMutex
	history  []Message
	artifact string
}

// TurnResult is the outcome of one accepted user message.
type TurnResult struct {
	Display  string
	Raw      string
	Code     string
	Updated  bool
	Kind     UpdateKind
	Backend  Backend
	FellBack bool
}

// NewSession creates an empty session. Its history holds only the system message.
func NewSession(id string, caller Caller, agent *Agent) *Session {
	return &Session{
		ID:        id,
		Caller:    caller,
		CreatedAt: time.Now(),
		agent:     agent,
		history:   []Message{{Role: RoleSystem, Content: refinementInstruction}},
	}
}

// RestoreSession rebuilds a session from history and code held by a client.
// System entries in the supplied history are dropped; the session supplies its own.
func RestoreSession(id string, caller Caller, agent *Agent, history []Message, code string) *Session {
	s := NewSession(id, caller, agent)
	for _, m := range history {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			continue
		}
		s.history = append(s.history, m)
	}
	s.artifact = code
	return s
}

// Submit sends one user message and applies the reply. On failure nothing is
// committed and the session is idle again.
func (s *Session) Submit(ctx context.Context, text string) (TurnResult, error) {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateAwaiting)) {
		return TurnResult{}, ErrSessionBusy
	}
	defer s.state.Store(int32(StateIdle))

	user := Message{Role: RoleUser, Content: text}
	s.mu.RLock()
	outbound := make([]Message, 0, len(s.history)+1)
	outbound = append(outbound, s.history...)
	s.mu.RUnlock()
	outbound = append(outbound, user)

	reply, err := s.agent.gw.Generate(ctx, Call{
		Preferred: s.Caller.Preferred,
		Messages:  outbound,
		Options:   s.agent.options(chatOptions),
		Fallback:  true,
	})
	if err != nil {
		s.agent.log.Warn("chat turn failed", "session_id", s.ID, "user_id", s.Caller.UserID, "error", err)
		return TurnResult{}, fmt.Errorf("%w: %w", ErrRefinementFailed, err)
	}

	ex := ExtractCode(reply.Text)
	res := TurnResult{
		Display:  displayText(reply.Text),
		Raw:      reply.Text,
		Updated:  ex.Found,
		Kind:     ex.Kind,
		Backend:  reply.Backend,
		FellBack: reply.FellBack,
	}

	s.mu.Lock()
	if ex.Found {
		s.artifact = ex.Code
	}
	s.history = append(s.history, user, Message{Role: RoleAssistant, Content: res.Display})
	res.Code = s.artifact
	s.mu.Unlock()

	s.agent.rec.Record(audit.Record{
		Kind:      audit.KindChatTurn,
		UserID:    s.Caller.UserID,
		SessionID: s.ID,
		Provider:  string(reply.Backend),
		Prompt:    text,
		Response:  reply.Text,
	})
	s.agent.log.Info("chat turn committed", "session_id", s.ID, "backend", reply.Backend, "fell_back", reply.FellBack, "update", ex.Kind)
	return res, nil
}

// History returns a copy of the committed conversation, system message first.
func (s *Session) History() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// Artifact returns the current code.
func (s *Session) Artifact() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artifact
}

func (s *Session) State() State {
	return State(s.state.Load())
}
