package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/square-key-labs/strawgo-lisa/src/logger"
	"github.com/square-key-labs/strawgo-lisa/src/services"
	"github.com/square-key-labs/strawgo-lisa/src/voiceerr"
)

const defaultBaseURL = "https://api.openai.com/v1"

// LLMService provides chat completions using OpenAI
type LLMService struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	client      *http.Client
	log         *logger.Logger
}

// LLMConfig holds configuration for OpenAI
type LLMConfig struct {
	APIKey      string
	Model       string // e.g., "gpt-4o-mini"
	BaseURL     string
	Temperature float64
	HTTPClient  *http.Client
}

// NewLLMService creates a new OpenAI LLM service
func NewLLMService(config LLMConfig) *LLMService {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &LLMService{
		apiKey:      config.APIKey,
		model:       config.Model,
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		temperature: config.Temperature,
		client:      config.HTTPClient,
		log:         logger.WithPrefix("OpenAI"),
	}
}

func (s *LLMService) Name() string {
	return "openai"
}

func (s *LLMService) SetModel(model string) {
	s.model = model
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// CompleteChat sends one non-streaming chat completion
func (s *LLMService) CompleteChat(ctx context.Context, messages []services.ChatMessage, params services.ChatParams) (string, error) {
	if s.apiKey == "" {
		return "", voiceerr.Unavailable(s.Name(), "OPENAI_API_KEY not set")
	}

	msgs := make([]chatMessage, 0, len(messages)+1)
	if params.System != "" {
		msgs = append(msgs, chatMessage{Role: services.RoleSystem, Content: params.System})
	}
	for _, m := range messages {
		msgs = append(msgs, chatMessage{Role: m.Role, Content: m.Content})
	}

	temperature := s.temperature
	if params.Temperature > 0 {
		temperature = params.Temperature
	}
	body := chatRequest{
		Model:       s.model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   params.MaxTokens,
	}
	if params.JSON {
		body.ResponseFormat = map[string]string{"type": "json_object"}
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", voiceerr.ProviderFailure(s.Name(), fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", voiceerr.ProviderFailure(s.Name(), fmt.Errorf("decode response: %w", err))
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", voiceerr.ProviderFailure(s.Name(), fmt.Errorf("empty completion"))
	}

	text := out.Choices[0].Message.Content
	s.log.Debug("Completion: %d chars", len(text))
	return text, nil
}
