package generator

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// LLMClient abstracts one text-generation backend so it can be swapped or mocked.
type LLMClient interface {
	Complete(ctx context.Context, msgs []Message, opts Options) (string, error)
}

// Options are the sampling settings shared by every backend.
type Options struct {
	Temperature float64
	MaxTokens   int
	// Timeout bounds a single backend call. Zero means the transport decides.
	Timeout time.Duration
}

// LLMSettings is the base configuration handed to concrete backends.
type LLMSettings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// Backend names one of the two interchangeable providers.
type Backend string

const (
	// BackendOpenAI is backend A.
	BackendOpenAI Backend = "openai"
	// BackendDeepSeek is backend B and the default preference.
	BackendDeepSeek Backend = "deepseek"

	DefaultBackend = BackendDeepSeek
)

// Other returns the alternate backend used for fallback.
func (b Backend) Other() Backend {
	if b == BackendOpenAI {
		return BackendDeepSeek
	}
	return BackendOpenAI
}

// ParseBackend maps a user preference value to a Backend. Empty means default.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return DefaultBackend, nil
	case BackendOpenAI, BackendDeepSeek:
		return b, nil
	default:
		return "", fmt.Errorf("llm provider %s not supported", s)
	}
}
