package ai

import (
	"context"

	"github.com/pkg/errors"
)

// Sentinel errors reported by providers. Callers classify with errors.Is.
var (
	// ErrNotConfigured means no provider credentials were supplied at startup.
	ErrNotConfigured = errors.New("generative AI provider is not configured")

	// ErrUnavailable marks a transient upstream condition that is safe to
	// retry, as opposed to a permanent rejection.
	ErrUnavailable = errors.New("generative AI provider temporarily unavailable")
)

// Message represents a single chat message for LLM requests.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// ChatRequest defines the input to an LLM chat completion.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature *float64
}

// ChatResponse is a normalized response from an LLM.
type ChatResponse struct {
	Content string
	Model   string
}

// Provider defines the LLM interface used by the app.
type Provider interface {
	CreateChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// IsUnavailable reports whether err is a transient-unavailable condition.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// Disabled returns a Provider that always fails with ErrNotConfigured. It
// replaces a nil provider handle so "not configured" is an explicit variant.
func Disabled(reason string) Provider {
	return disabled{reason: reason}
}

// Configured reports whether p can serve requests.
func Configured(p Provider) bool {
	if p == nil {
		return false
	}
	_, off := p.(disabled)
	return !off
}

type disabled struct {
	reason string
}

func (d disabled) CreateChatCompletion(context.Context, ChatRequest) (ChatResponse, error) {
	return ChatResponse{}, errors.Wrap(ErrNotConfigured, d.reason)
}
