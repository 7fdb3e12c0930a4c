package generator

import (
	"context"
	"errors"

	"simulation_builder/logger"
)

// Call is one request to the gateway.
type Call struct {
	Preferred Backend
	Messages  []Message
	Options   Options
	// Fallback allows exactly one retry on the other backend after a call failure.
	// Only chat turns set it.
	Fallback bool
}

// Reply is the text a backend returned and which backend produced it.
type Reply struct {
	Text     string
	Backend  Backend
	FellBack bool
}

// Gateway dispatches calls to the configured backends. A backend missing from the
// map has no credentials. Gateway holds no mutable state and is safe to share.
type Gateway struct {
	backends map[Backend]LLMClient
	log      *logger.Logger
}

func NewGateway(backends map[Backend]LLMClient, log *logger.Logger) (*Gateway, error) {
	if len(backends) == 0 {
		return nil, errors.New("at least one llm backend is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	m := make(map[Backend]LLMClient, len(backends))
	for b, c := range backends {
		if c != nil {
			m[b] = c
		}
	}
	return &Gateway{backends: m, log: log}, nil
}

// Configured reports whether the backend has a client.
func (g *Gateway) Configured(b Backend) bool {
	_, ok := g.backends[b]
	return ok
}

// Generate runs the call against the preferred backend, then, if allowed, once
// against the other one. A missing preferred backend is a configuration error and
// is returned as is.
func (g *Gateway) Generate(ctx context.Context, call Call) (Reply, error) {
	preferred := call.Preferred
	if preferred == "" {
		preferred = DefaultBackend
	}

	text, err := g.attempt(ctx, preferred, call)
	if err == nil {
		return Reply{Text: text, Backend: preferred}, nil
	}

	var callErr *CallError
	if !call.Fallback || !errors.As(err, &callErr) {
		return Reply{}, err
	}

	other := preferred.Other()
	if !g.Configured(other) {
		g.log.Warn("fallback backend not configured", "preferred", preferred, "fallback", other, "error", err)
		return Reply{}, err
	}
	g.log.Warn("llm call failed, falling back", "preferred", preferred, "fallback", other, "error", err)

	text, fbErr := g.attempt(ctx, other, call)
	if fbErr != nil {
		return Reply{}, errors.Join(err, fbErr)
	}
	return Reply{Text: text, Backend: other, FellBack: true}, nil
}

func (g *Gateway) attempt(ctx context.Context, b Backend, call Call) (string, error) {
	client, ok := g.backends[b]
	if !ok {
		return "", &ConfigError{Backend: b}
	}
	if call.Options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, call.Options.Timeout)
		defer cancel()
	}
	g.log.Debug("llm request", "backend", b, "messages", len(call.Messages), "max_tokens", call.Options.MaxTokens)
	text, err := client.Complete(ctx, call.Messages, call.Options)
	if err != nil {
		return "", &CallError{Backend: b, Err: err}
	}
	return text, nil
}
