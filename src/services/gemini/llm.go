package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/square-key-labs/strawgo-lisa/src/logger"
	"github.com/square-key-labs/strawgo-lisa/src/services"
	"github.com/square-key-labs/strawgo-lisa/src/voiceerr"
)

// LLMService provides chat completions using Google Gemini
type LLMService struct {
	client      *lazyClient
	model       string
	temperature float64
	log         *logger.Logger
}

// LLMConfig holds configuration for Gemini
type LLMConfig struct {
	ClientConfig
	Model       string // e.g., "gemini-2.5-flash"
	Temperature float64
}

// NewLLMService creates a new Gemini LLM service
func NewLLMService(config LLMConfig) *LLMService {
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}
	return &LLMService{
		client:      &lazyClient{config: config.ClientConfig},
		model:       config.Model,
		temperature: config.Temperature,
		log:         logger.WithPrefix("Gemini"),
	}
}

func (s *LLMService) Name() string {
	return "gemini"
}

func (s *LLMService) SetModel(model string) {
	s.model = model
}

// CompleteChat sends one generate-content call built from the chat messages
func (s *LLMService) CompleteChat(ctx context.Context, messages []services.ChatMessage, params services.ChatParams) (string, error) {
	client, err := s.client.get(ctx)
	if err != nil {
		return "", err
	}

	contents, system := toContents(messages)
	if params.System != "" {
		system = strings.TrimSpace(params.System + "\n\n" + system)
	}

	temperature := s.temperature
	if params.Temperature > 0 {
		temperature = params.Temperature
	}
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(temperature)),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if params.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(params.MaxTokens)
	}
	if params.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := client.Models.GenerateContent(ctx, s.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", voiceerr.ProviderFailure(s.Name(), fmt.Errorf("empty completion"))
	}
	s.log.Debug("Completion: %d chars", len(text))
	return text, nil
}

// toContents maps chat roles to Gemini roles. System messages are folded
// into the returned system instruction.
func toContents(messages []services.ChatMessage) ([]*genai.Content, string) {
	var contents []*genai.Content
	var system []string
	for _, m := range messages {
		switch m.Role {
		case services.RoleSystem:
			system = append(system, m.Content)
		case services.RoleAssistant:
			// Gemini uses "model" instead of "assistant"
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents, strings.Join(system, "\n\n")
}
