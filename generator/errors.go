package generator

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderUnavailable means the backend has no credentials configured. Never retried.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrProviderCallFailed means the backend call failed after any permitted fallback.
	ErrProviderCallFailed = errors.New("provider call failed")
	// ErrRefinementFailed wraps any failure of a chat turn.
	ErrRefinementFailed = errors.New("refinement failed")
	// ErrSessionBusy is returned when a turn is submitted while another is in flight.
	ErrSessionBusy = errors.New("session busy: a turn is already in flight")
)

// ConfigError reports a backend that cannot be used because it is not configured.
type ConfigError struct {
	Backend Backend
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: credentials for %s are not configured", ErrProviderUnavailable, e.Backend)
}

func (e *ConfigError) Is(target error) bool { return target == ErrProviderUnavailable }

// CallError reports a transport, HTTP or malformed-response failure from a backend.
type CallError struct {
	Backend Backend
	Err     error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrProviderCallFailed, e.Backend, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

func (e *CallError) Is(target error) bool { return target == ErrProviderCallFailed }
