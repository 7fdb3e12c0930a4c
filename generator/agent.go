package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"simulation_builder/audit"
	"simulation_builder/logger"
)

var (
	promptOptions = Options{Temperature: 0.5, MaxTokens: 5000}
	codeOptions   = Options{Temperature: 0.7, MaxTokens: 4000}
	chatOptions   = Options{Temperature: 0.7, MaxTokens: 2000}
)

// Agent runs the one-shot generation steps and opens refinement sessions.
type Agent struct {
	gw      *Gateway
	rec     audit.Recorder
	log     *logger.Logger
	timeout time.Duration
}

// AgentOption tweaks an Agent at construction.
type AgentOption func(*Agent)

// WithCallTimeout bounds every backend call made by the agent and its sessions.
func WithCallTimeout(d time.Duration) AgentOption {
	return func(a *Agent) { a.timeout = d }
}

func NewAgent(gw *Gateway, rec audit.Recorder, log *logger.Logger, opts ...AgentOption) (*Agent, error) {
	if gw == nil {
		return nil, errors.New("llm gateway is required")
	}
	if rec == nil {
		rec = audit.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	a := &Agent{gw: gw, rec: rec, log: log}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// SynthesizePrompt turns a simulation request into a build prompt written by the model.
func (a *Agent) SynthesizePrompt(ctx context.Context, caller Caller, req SimulationRequest) (string, error) {
	rendered := BuildSimulationPrompt(req)
	reply, err := a.gw.Generate(ctx, Call{
		Preferred: caller.Preferred,
		Messages:  promptGenerationMessages(rendered),
		Options:   a.options(promptOptions),
	})
	if err != nil {
		a.log.Error("prompt generation failed", "user_id", caller.UserID, "preferred", caller.Preferred, "error", err)
		return "", fmt.Errorf("generate prompt: %w", err)
	}

	a.rec.Record(audit.Record{
		Kind:       audit.KindPromptGeneration,
		UserID:     caller.UserID,
		RequestRef: req.Name,
		Provider:   string(reply.Backend),
		Prompt:     rendered,
		Response:   reply.Text,
	})
	a.log.Info("prompt generated", "user_id", caller.UserID, "backend", reply.Backend, "name", req.Name)
	return strings.TrimSpace(reply.Text), nil
}

// GenerateCode asks the model for a single-file simulation built from prompt.
// A reply wrapped in an html/javascript/css fence is unwrapped.
func (a *Agent) GenerateCode(ctx context.Context, caller Caller, prompt string) (string, error) {
	code, _, err := a.generateCode(ctx, caller, prompt, "")
	return code, err
}

func (a *Agent) generateCode(ctx context.Context, caller Caller, prompt, sessionID string) (string, Backend, error) {
	reply, err := a.gw.Generate(ctx, Call{
		Preferred: caller.Preferred,
		Messages:  codeGenerationMessages(prompt),
		Options:   a.options(codeOptions),
	})
	if err != nil {
		a.log.Error("code generation failed", "user_id", caller.UserID, "preferred", caller.Preferred, "error", err)
		return "", "", fmt.Errorf("generate code: %w", err)
	}

	a.rec.Record(audit.Record{
		Kind:      audit.KindCodeGeneration,
		UserID:    caller.UserID,
		SessionID: sessionID,
		Provider:  string(reply.Backend),
		Prompt:    prompt,
		Response:  reply.Text,
	})

	code := strings.TrimSpace(reply.Text)
	if ex := ExtractCode(reply.Text); ex.Found {
		code = ex.Code
	}
	a.log.Info("code generated", "user_id", caller.UserID, "backend", reply.Backend, "bytes", len(code))
	return code, reply.Backend, nil
}

// StartSession generates the first version of the code from prompt and opens a
// session whose first turn is that exchange.
func (a *Agent) StartSession(ctx context.Context, id string, caller Caller, prompt string) (*Session, error) {
	code, _, err := a.generateCode(ctx, caller, prompt, id)
	if err != nil {
		return nil, err
	}
	s := NewSession(id, caller, a)
	s.history = append(s.history,
		Message{Role: RoleUser, Content: prompt},
		Message{Role: RoleAssistant, Content: generatedAck},
	)
	s.artifact = code
	return s, nil
}

func (a *Agent) options(base Options) Options {
	base.Timeout = a.timeout
	return base
}
