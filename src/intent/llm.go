package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/square-key-labs/strawgo-lisa/src/dialog"
	"github.com/square-key-labs/strawgo-lisa/src/services"
	"github.com/square-key-labs/strawgo-lisa/src/voiceerr"
)

const historyTurns = 6

const classifyPrompt = `You classify requests spoken to LISA, the voice assistant of a glass order management system.
Reply with one JSON object and nothing else:
{"intent": one of CREATE_ORDER, SEARCH_ORDERS, SEARCH_CUSTOMERS, GENERATE_PDF, GREETING, HELP, END_CONVERSATION, GENERAL,
 "confidence": number between 0 and 1,
 "parameters": {"customerName", "glassType", "quantity", "dimensions", "thickness", "dateRange", "status", "orderNumber"; only those mentioned},
 "emotion": one of neutral, positive, frustrated, confused,
 "requiresUserInput": true if you must ask the user something before acting,
 "topic": short label such as order_creation, order_search, customer_search, pdf, greeting, help, goodbye, general}
dateRange is one of today, yesterday, this_week, last_week, this_month, last_month.`

// LLMClassifier asks a chat model for a JSON classification
type LLMClassifier struct {
	llm services.ChatCompleter
}

// NewLLMClassifier wraps a chat provider
func NewLLMClassifier(llm services.ChatCompleter) *LLMClassifier {
	return &LLMClassifier{llm: llm}
}

func (c *LLMClassifier) Name() string {
	return c.llm.Name()
}

type llmClassification struct {
	Intent            string         `json:"intent"`
	Confidence        *float64       `json:"confidence"`
	Parameters        map[string]any `json:"parameters"`
	Emotion           string         `json:"emotion"`
	RequiresUserInput bool           `json:"requiresUserInput"`
	Topic             string         `json:"topic"`
}

func (c *LLMClassifier) Classify(ctx context.Context, text string, history []dialog.Turn) (dialog.IntentResult, error) {
	msgs := services.FromHistory(history, historyTurns)
	msgs = append(msgs, services.ChatMessage{Role: services.RoleUser, Content: text})

	raw, err := c.llm.CompleteChat(ctx, msgs, services.ChatParams{
		System:      classifyPrompt,
		Temperature: 0.1,
		JSON:        true,
		MaxTokens:   300,
	})
	if err != nil {
		return dialog.IntentResult{}, err
	}
	return parseClassification(c.Name(), raw, text)
}

// parseClassification validates model output. Anything that is not a JSON
// object with an intent is a provider error.
func parseClassification(provider, raw, text string) (dialog.IntentResult, error) {
	var out llmClassification
	if err := json.Unmarshal([]byte(services.StripCodeFence(raw)), &out); err != nil {
		return dialog.IntentResult{}, voiceerr.ProviderFailure(provider, fmt.Errorf("malformed classification: %w", err))
	}
	if strings.TrimSpace(out.Intent) == "" {
		return dialog.IntentResult{}, voiceerr.ProviderFailure(provider, fmt.Errorf("classification without intent"))
	}

	result := dialog.IntentResult{
		Intent:            dialog.NormalizeIntent(out.Intent),
		Confidence:        0.8,
		Parameters:        normalizeParams(out.Parameters),
		Emotion:           dialog.NormalizeEmotion(out.Emotion),
		RequiresUserInput: out.RequiresUserInput,
		Topic:             out.Topic,
		Provider:          provider,
	}
	if out.Confidence != nil {
		result.Confidence = dialog.ClampConfidence(*out.Confidence)
	}
	if result.Topic == "" {
		result.Topic = TopicFor(result.Intent)
	}

	// fill gaps the model left with what the rules can see
	for k, v := range ExtractSlots(text) {
		if _, ok := result.Parameters[k]; !ok {
			result.Parameters[k] = v
		}
	}
	return result, nil
}

// normalizeParams drops empty values and turns JSON numbers for quantity into ints
func normalizeParams(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case nil:
			continue
		case string:
			if strings.TrimSpace(t) == "" {
				continue
			}
			if k == SlotQuantity {
				if n, ok := atoiPositive(strings.TrimSpace(t)); ok {
					out[k] = n
				}
				continue
			}
			out[k] = strings.TrimSpace(t)
		case float64:
			if k == SlotQuantity {
				if t > 0 {
					out[k] = int(t)
				}
				continue
			}
			out[k] = t
		default:
			out[k] = v
		}
	}
	return out
}
