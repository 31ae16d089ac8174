// Package chat orchestrates a single chat request: identity resolution,
// context fetch, prompt construction, and the model call with bounded retry.
package chat

import (
	"context"
	"log/slog"
	"time"

	"collegehub_ai/pkg/ai"
	"collegehub_ai/pkg/prompt"

	"github.com/pkg/errors"
)

const (
	// Temperature and retry constants follow the upstream contract and stay
	// hard-coded rather than configurable.
	temperature = 0.5
	maxAttempts = 3
	baseBackoff = 1 * time.Second

	previewLimit = 120
)

var (
	// ErrInvalidContext means the upstream returned something that is not a
	// structured document.
	ErrInvalidContext = errors.New("invalid context data")

	// ErrExhausted means every model attempt failed with a transient error.
	ErrExhausted = errors.New("gemini service unavailable after retries")
)

// ContextFetcher reads a user's raw context document.
type ContextFetcher interface {
	Fetch(ctx context.Context, userID string) (any, error)
}

// IdentityResolver produces the effective user id for a request.
type IdentityResolver interface {
	Resolve(authHeader, bodyUserID, cookieUserID string) (string, error)
}

// Request is the inbound chat payload.
type Request struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
	History []Turn `json:"history"`
}

// Meta carries request credentials and origin that live outside the body.
type Meta struct {
	AuthHeader   string
	CookieUserID string
	RemoteIP     string
	RequestID    string
}

// Response is the outbound chat payload.
type Response struct {
	UserID string `json:"user_id"`
	Reply  string `json:"response"`
}

// Service ties the chat pipeline together. All state is request-scoped; the
// service itself is immutable after construction and safe for concurrent use.
type Service struct {
	llm      ai.Provider
	contexts ContextFetcher
	resolver IdentityResolver
	model    string
	sleep    func(time.Duration)
}

// NewService constructs the orchestrator. Pass ai.Disabled(...) as llm when
// no API key is configured.
func NewService(llm ai.Provider, contexts ContextFetcher, resolver IdentityResolver, model string) *Service {
	return &Service{
		llm:      llm,
		contexts: contexts,
		resolver: resolver,
		model:    model,
		sleep:    time.Sleep,
	}
}

// Chat handles one request end to end.
func (s *Service) Chat(ctx context.Context, req Request, meta Meta) (Response, error) {
	userID, err := s.resolver.Resolve(meta.AuthHeader, req.UserID, meta.CookieUserID)
	if err != nil {
		return Response{}, err
	}

	if !ai.Configured(s.llm) {
		return Response{}, errors.Wrap(ai.ErrNotConfigured, "AI service not initialized or invalid API key")
	}

	raw, err := s.contexts.Fetch(ctx, userID)
	if err != nil {
		return Response{}, err
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return Response{}, errors.Wrapf(ErrInvalidContext, "got %T", raw)
	}

	// One line per request; never the full message, prompt, or reply.
	slog.Info("chat request",
		"request_id", meta.RequestID,
		"user", displayName(doc),
		"user_id", userID,
		"remote", meta.RemoteIP,
		"message_preview", previewMessage(req.Message),
	)

	systemPrompt := prompt.Build(doc)
	messages := append([]ai.Message{{Role: "system", Content: systemPrompt}}, FormatConversation(req.History, req.Message)...)

	reply, err := s.generateWithRetry(ctx, messages)
	if err != nil {
		return Response{}, err
	}
	return Response{UserID: userID, Reply: reply}, nil
}

// generateWithRetry calls the model up to maxAttempts times, retrying only
// transient-unavailable failures with doubling backoff (1, 2, 4, ... units).
func (s *Service) generateWithRetry(ctx context.Context, messages []ai.Message) (string, error) {
	temp := temperature
	req := ai.ChatRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: &temp,
	}

	delay := baseBackoff
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := s.llm.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp.Content, nil
		}
		lastErr = err
		if !ai.IsUnavailable(err) {
			return "", errors.Wrap(err, "gemini API error")
		}
		if attempt < maxAttempts {
			slog.Warn("gemini unavailable, retrying",
				"attempt", attempt,
				"backoff", delay.String(),
			)
			s.sleep(delay)
			delay *= 2
		}
	}
	return "", errors.Wrap(ErrExhausted, lastErr.Error())
}

// previewMessage bounds what ends up in logs to previewLimit characters with
// an ellipsis marker.
func previewMessage(message string) string {
	runes := []rune(message)
	if len(runes) <= previewLimit {
		return message
	}
	return string(runes[:previewLimit]) + "..."
}

func displayName(doc map[string]any) string {
	for _, key := range []string{"username", "first_name"} {
		if name, ok := doc[key].(string); ok && name != "" {
			return name
		}
	}
	return "Unknown"
}
