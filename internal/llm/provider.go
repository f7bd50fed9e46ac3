// Package llm abstracts the reasoning backend behind a single capability:
// propose the next action given the task history. The execution loop never
// branches on provider identity.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskpilot/internal/config"
	"taskpilot/internal/models"
)

// Message is one turn of the conversation shown to the backend.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// ToolDecl declares one invokable tool to the backend.
type ToolDecl struct {
	Name        string
	Description string
	Schema      map[string]any
}

// Request is the full context for one proposal round.
type Request struct {
	System   string
	Messages []Message
	Tools    []ToolDecl
}

// Response is the backend's raw answer: free text plus zero or more
// structured tool calls. Interpretation (completion sentinels, choosing
// the first call) belongs to the engine.
type Response struct {
	Text      string
	Proposals []models.ActionProposal
	// Malformed is set when the backend answered but its tool call could
	// not be parsed. The engine records this as a denied iteration rather
	// than a provider failure.
	Malformed string
}

// ProviderError reports a transport or API failure from the backend.
type ProviderError struct {
	Provider  string
	Status    int
	Message   string
	Retryable bool
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Retryable reports whether err is a provider error worth retrying.
func Retryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// Provider is the reasoning backend capability.
type Provider interface {
	Name() string
	Propose(ctx context.Context, req Request) (*Response, error)
}

// New selects a provider implementation from configuration.
func New(cfg config.LLMConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAI(cfg), nil
	case "anthropic":
		return newAnthropic(cfg), nil
	case "google":
		return newGoogle(cfg), nil
	case "ollama", "":
		return newOllama(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
