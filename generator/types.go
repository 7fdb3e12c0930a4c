package generator

import (
	"fmt"
	"strings"
)

// Tier is a low/medium/high selection from the simulation form.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// ParseTier accepts the wire value of a tier. Empty input is allowed and stays empty.
func ParseTier(s string) (Tier, error) {
	switch t := Tier(strings.ToLower(strings.TrimSpace(s))); t {
	case "", TierLow, TierMedium, TierHigh:
		return t, nil
	default:
		return "", fmt.Errorf("unknown tier %q (want low, medium or high)", s)
	}
}

// SimulationRequest describes the simulation a user asked for.
type SimulationRequest struct {
	Name          string `json:"name"`
	Subject       string `json:"subject"`
	Department    string `json:"department"`
	Course        string `json:"course"`
	Description   string `json:"description"`
	Complexity    Tier   `json:"complexity"`
	Interactivity Tier   `json:"interactivity"`
}

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation. Order is the conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Caller carries per-call identity and the user's preferred backend.
type Caller struct {
	UserID    string
	Preferred Backend
}
