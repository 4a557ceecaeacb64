package services

import (
	"context"
	"strings"

	"github.com/square-key-labs/strawgo-lisa/src/dialog"
	"github.com/square-key-labs/strawgo-lisa/src/processors"
)

// AIService is the base interface for services that live in a pipeline
type AIService interface {
	processors.FrameProcessor

	// Service lifecycle
	Initialize(ctx context.Context) error
	Cleanup() error
}

// STTService converts a live audio stream to interim and final transcripts
type STTService interface {
	AIService

	// Configuration
	SetLanguage(lang string)
	SetModel(model string)
}

// Chat roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a message in the conversation
type ChatMessage struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// ChatParams tunes a single completion
type ChatParams struct {
	System      string
	Temperature float64
	MaxTokens   int
	// JSON asks the provider for a JSON object response
	JSON bool
}

// ChatCompleter is a language model provider. Both the intent classifier and
// the response composer call it; missing credentials surface as
// voiceerr.KindProviderUnavailable.
type ChatCompleter interface {
	Name() string
	CompleteChat(ctx context.Context, messages []ChatMessage, params ChatParams) (string, error)
}

// FromHistory converts dialogue turns to chat messages, keeping the last n
func FromHistory(history []dialog.Turn, n int) []ChatMessage {
	if n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	msgs := make([]ChatMessage, 0, len(history))
	for _, t := range history {
		role := RoleUser
		if t.Speaker == dialog.SpeakerAssistant {
			role = RoleAssistant
		}
		msgs = append(msgs, ChatMessage{Role: role, Content: t.Text})
	}
	return msgs
}

// StripCodeFence removes a surrounding ```json ... ``` block if present
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		// drop the language hint line
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
