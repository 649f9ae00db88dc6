// Package genai wraps an external text-generation service behind a small
// interface. Generation is best-effort everywhere: any failure (timeout,
// limit, unusable output) yields a deterministic fallback, never an error.
package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/community-chat/ratelimit"
)

// Completer is the black-box text generator. Implementations must honor the
// context's deadline.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ErrUnavailable is returned by the stock completer, which has no backing
// service and exists to exercise the fallback path end to end.
var ErrUnavailable = errors.New("text generation unavailable")

// UnavailableCompleter always fails, pushing every caller onto fallbacks.
type UnavailableCompleter struct{}

// Complete implements Completer.
func (UnavailableCompleter) Complete(context.Context, string, string) (string, error) {
	return "", ErrUnavailable
}

// Action classes for per-user generation budgets.
const (
	ActionGenerateContent ratelimit.Action = "generate_content"
	ActionGenerateMessage ratelimit.Action = "generate_message"
)

// maxPromptInput caps any caller-supplied text interpolated into a prompt.
// Oversized inputs are truncated, not rejected; prompts are ours, not the
// user's.
const maxPromptInput = 500

// defaultTimeout is the ceiling on one generation call.
const defaultTimeout = 30 * time.Second

// RoomContent is generated room metadata.
type RoomContent struct {
	Name        string
	Description string
	Topic       string
}

// fallbackContent is returned whenever room-content generation fails.
var fallbackContent = RoomContent{
	Name:        "Community Discussion Room",
	Description: "A friendly space to share experiences and tips",
	Topic:       "General Discussion",
}

// Service generates room descriptions and opening messages.
type Service struct {
	completer Completer
	limiter   *ratelimit.Limiter
	timeout   time.Duration
	logger    types.Logger
}

// NewService creates a generation service with per-user budgets of 5 content
// and 10 message generations per minute.
func NewService(completer Completer, logger types.Logger) *Service {
	return &Service{
		completer: completer,
		limiter: ratelimit.NewLimiter(
			ratelimit.WithLimit(ActionGenerateContent, 5, time.Minute),
			ratelimit.WithLimit(ActionGenerateMessage, 10, time.Minute),
		),
		timeout: defaultTimeout,
		logger:  logger,
	}
}

// GenerateRoomContent produces a name, description and topic for a new room.
func (s *Service) GenerateRoomContent(ctx context.Context, userID string) RoomContent {
	if userID != "" && !s.limiter.Allow(userID, ActionGenerateContent) {
		return fallbackContent
	}

	const system = "You generate chat room content for a community. " +
		"Always respond in the exact format requested: Title, Description, Topic."
	const prompt = "Generate content for a community chat room. Provide three lines:\n" +
		"Title: [an inviting room title]\n" +
		"Description: [a short description, 2-3 sentences]\n" +
		"Topic: [a relevant discussion topic]"

	resp, err := s.complete(ctx, system, prompt)
	if err != nil {
		s.logger.Warn("Room content generation failed, using fallback", "error", err)
		return fallbackContent
	}

	content := fallbackContent
	if v, ok := parseField(resp, "Title"); ok {
		content.Name = v
	}
	if v, ok := parseField(resp, "Description"); ok {
		content.Description = v
	}
	if v, ok := parseField(resp, "Topic"); ok {
		content.Topic = v
	}
	return content
}

// GenerateOpeningMessage produces the first message posted into a new room.
func (s *Service) GenerateOpeningMessage(ctx context.Context, userID, roomName, topic, description string) string {
	safeName := SanitizePromptInput(roomName)
	if safeName == "" {
		safeName = "this room"
	}
	safeTopic := SanitizePromptInput(topic)
	if safeTopic == "" {
		safeTopic = "General Discussion"
	}
	fallback := fmt.Sprintf(
		"Welcome to %s! Let's talk about %s. Please share your experiences and thoughts.",
		safeName, safeTopic,
	)

	if userID != "" && !s.limiter.Allow(userID, ActionGenerateMessage) {
		return fallback
	}

	const system = "You generate warm opening messages for community chat rooms. " +
		"Respond with only the message text, no formatting, no prefixes."
	prompt := fmt.Sprintf(
		"Write a friendly opening message for a community chat room.\n"+
			"Room name: %q\nTopic: %q\nDescription: %q\n"+
			"Welcome members warmly, introduce the topic briefly and invite "+
			"participation. At most 3-4 sentences. Message text only.",
		safeName, safeTopic, SanitizePromptInput(description),
	)

	resp, err := s.complete(ctx, system, prompt)
	if err != nil {
		s.logger.Warn("Opening message generation failed, using fallback", "error", err)
		return fallback
	}

	msg := cleanMessage(resp)
	if msg == "" || len(msg) > 500 {
		return fallback
	}
	return msg
}

// complete runs the completer under the service timeout. A completer that
// ignores the deadline is abandoned rather than waited on.
func (s *Service) complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := s.completer.Complete(ctx, system, prompt)
		ch <- result{text, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.text, r.err
	}
}

// SanitizePromptInput strips angle brackets, trims whitespace and truncates
// to the prompt input cap.
func SanitizePromptInput(input string) string {
	cleaned := strings.NewReplacer("<", "", ">", "").Replace(input)
	cleaned = strings.TrimSpace(cleaned)
	if len(cleaned) > maxPromptInput {
		cleaned = cleaned[:maxPromptInput]
	}
	return cleaned
}

// parseField extracts a "Label: value" line from a model response.
func parseField(resp, label string) (string, bool) {
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := cutPrefixFold(line, label+":")
		if !ok {
			continue
		}
		if v := strings.TrimSpace(rest); v != "" {
			return v, true
		}
	}
	return "", false
}

// cutPrefixFold is strings.CutPrefix with ASCII case-insensitive matching.
func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

// cleanMessage strips surrounding quotes and markdown emphasis left over by
// chatty models.
func cleanMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	msg = strings.Trim(msg, `"'`)
	msg = strings.ReplaceAll(msg, "**", "")
	msg = strings.ReplaceAll(msg, "*", "")
	return strings.TrimSpace(msg)
}
