// Package dialog holds the value types exchanged between the classifier,
// the composer, the executor and the conversation engine.
package dialog

import (
	"strings"
	"time"
)

// Speaker identifies who produced a turn
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one entry of a session's conversation history
type Turn struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// Utterance is a transcript delivered by the transport or the STT stage
type Utterance struct {
	SessionID  string
	Transcript string
	IsFinal    bool
	Timestamp  time.Time
}

// Intent is the classified purpose of an utterance. Providers may return
// values outside the known set; those are kept verbatim.
type Intent string

const (
	IntentCreateOrder     Intent = "CREATE_ORDER"
	IntentSearchOrders    Intent = "SEARCH_ORDERS"
	IntentSearchCustomers Intent = "SEARCH_CUSTOMERS"
	IntentGeneratePDF     Intent = "GENERATE_PDF"
	IntentGreeting        Intent = "GREETING"
	IntentHelp            Intent = "HELP"
	IntentEndConversation Intent = "END_CONVERSATION"
	IntentGeneral         Intent = "GENERAL"
)

// KnownIntents lists the closed intent set in classifier priority order.
var KnownIntents = []Intent{
	IntentGreeting,
	IntentEndConversation,
	IntentCreateOrder,
	IntentSearchOrders,
	IntentSearchCustomers,
	IntentGeneratePDF,
	IntentHelp,
	IntentGeneral,
}

// NormalizeIntent upper-cases a provider label. Empty labels become GENERAL.
func NormalizeIntent(raw string) Intent {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	if s == "" {
		return IntentGeneral
	}
	return Intent(s)
}

// IsKnown reports whether the intent belongs to the closed set.
func (i Intent) IsKnown() bool {
	for _, k := range KnownIntents {
		if k == i {
			return true
		}
	}
	return false
}

// Emotion is the detected user sentiment
type Emotion string

const (
	EmotionNeutral    Emotion = "neutral"
	EmotionPositive   Emotion = "positive"
	EmotionFrustrated Emotion = "frustrated"
	EmotionConfused   Emotion = "confused"
)

// NormalizeEmotion maps provider labels onto the four supported emotions.
func NormalizeEmotion(raw string) Emotion {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive", "excited", "happy":
		return EmotionPositive
	case "frustrated", "angry", "annoyed":
		return EmotionFrustrated
	case "confused", "uncertain":
		return EmotionConfused
	default:
		return EmotionNeutral
	}
}

// IntentResult is the classifier output for one utterance
type IntentResult struct {
	Intent            Intent         `json:"intent"`
	Confidence        float64        `json:"confidence"`
	Parameters        map[string]any `json:"parameters,omitempty"`
	Emotion           Emotion        `json:"emotion"`
	RequiresUserInput bool           `json:"requiresUserInput"`
	Topic             string         `json:"topic,omitempty"`
	Provider          string         `json:"provider,omitempty"`
}

// ClampConfidence bounds c to [0,1].
func ClampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

// Param returns a string parameter or "".
func (r IntentResult) Param(key string) string {
	if r.Parameters == nil {
		return ""
	}
	if v, ok := r.Parameters[key].(string); ok {
		return v
	}
	return ""
}

// Response is what the engine hands back to the transport for one event
type Response struct {
	Text              string  `json:"text"`
	Action            string  `json:"action,omitempty"`
	Data              any     `json:"data,omitempty"`
	ShouldSpeak       bool    `json:"shouldSpeak"`
	FillerWord        string  `json:"fillerWord,omitempty"`
	IsThinking        bool    `json:"isThinking"`
	Confidence        float64 `json:"confidence"`
	Intent            Intent  `json:"intent,omitempty"`
	Emotion           Emotion `json:"emotion,omitempty"`
	RequiresUserInput bool    `json:"requiresUserInput"`
}

// Silent is the no-op response: nothing to say, nothing to do.
func Silent() Response {
	return Response{}
}

// IsSilent reports whether the response carries nothing for the client.
func (r Response) IsSilent() bool {
	return !r.ShouldSpeak && r.Text == "" && r.Action == ""
}
