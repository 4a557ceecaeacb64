package intent

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/square-key-labs/strawgo-lisa/src/dialog"
	"github.com/square-key-labs/strawgo-lisa/src/logger"
)

// Topics label what the conversation is about; silence fillers are picked by topic
const (
	TopicOrderCreation  = "order_creation"
	TopicOrderSearch    = "order_search"
	TopicCustomerSearch = "customer_search"
	TopicPDF            = "pdf"
	TopicGreeting       = "greeting"
	TopicHelp           = "help"
	TopicGoodbye        = "goodbye"
	TopicGeneral        = "general"
)

// RuleProviderName identifies results produced by the keyword rules
const RuleProviderName = "rules"

// maxRuleInput bounds the text the regexes scan
const maxRuleInput = 4000

// TopicFor maps an intent to its filler topic
func TopicFor(i dialog.Intent) string {
	switch i {
	case dialog.IntentCreateOrder:
		return TopicOrderCreation
	case dialog.IntentSearchOrders:
		return TopicOrderSearch
	case dialog.IntentSearchCustomers:
		return TopicCustomerSearch
	case dialog.IntentGeneratePDF:
		return TopicPDF
	case dialog.IntentGreeting:
		return TopicGreeting
	case dialog.IntentHelp:
		return TopicHelp
	case dialog.IntentEndConversation:
		return TopicGoodbye
	default:
		return TopicGeneral
	}
}

type rule struct {
	intent     dialog.Intent
	confidence float64
	patterns   []*regexp.Regexp
}

func (r rule) matches(text string) bool {
	for _, p := range r.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// rules in priority order; the first match wins
var rules = []rule{
	{
		intent:     dialog.IntentGreeting,
		confidence: 0.85,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^\W*(?:hi|hello|hey|hiya|howdy|greetings|good\s+(?:morning|afternoon|evening))\b`),
			regexp.MustCompile(`^\W*(?:hi|hello|hey)\s+lisa\b`),
		},
	},
	{
		intent:     dialog.IntentEndConversation,
		confidence: 0.9,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(?:stop|bye|goodbye|good\s+bye|quit|exit|hang\s+up|see\s+you|farewell)\b`),
			regexp.MustCompile(`\bend\s+(?:the\s+|this\s+)?(?:conversation|call|chat|session)\b`),
			regexp.MustCompile(`\b(?:that'?s|that\s+is)\s+all\b|\bi'?m\s+done\b|\bwe'?re\s+done\b|\bno\s+more\s+questions\b`),
		},
	},
	{
		intent:     dialog.IntentCreateOrder,
		confidence: 0.85,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(?:create|new|place|make|add|start|book|submit)\b[^.?!]*\border\b`),
			regexp.MustCompile(`\bi\s+(?:want|need|would\s+like|'d\s+like)\s+to\s+order\b`),
			regexp.MustCompile(`\border\s+(?:some|\d+|a|an)\b[^.?!]*\b(?:glass|panels?|sheets?|panes?|mirrors?)\b`),
		},
	},
	{
		intent:     dialog.IntentSearchOrders,
		confidence: 0.85,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(?:show|find|search|list|look\s*up|get|display|view|check|see|pull\s+up)\b[^.?!]*\borders?\b`),
			regexp.MustCompile(`\borders?\s+(?:from|for|in|placed|created|made|with|status)\b`),
			regexp.MustCompile(`\b(?:where|what)\s+(?:is|are|'s)\s+(?:my|the|our)\s+orders?\b`),
			regexp.MustCompile(`\b(?:pending|open|recent|latest)\s+orders\b`),
		},
	},
	{
		intent:     dialog.IntentSearchCustomers,
		confidence: 0.8,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(?:customers?|clients?)\b`),
		},
	},
	{
		intent:     dialog.IntentGeneratePDF,
		confidence: 0.8,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(?:pdf|report|invoice|print|export|download|quote\s+sheet)\b`),
		},
	},
	{
		intent:     dialog.IntentHelp,
		confidence: 0.8,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(?:help|assist|assistance|support)\b`),
			regexp.MustCompile(`\bwhat\s+can\s+you\s+do\b|\bhow\s+do\s+i\b|\bhow\s+does\s+this\s+work\b|\bwhat\s+are\s+my\s+options\b`),
		},
	},
}

var emotionRules = []struct {
	emotion dialog.Emotion
	re      *regexp.Regexp
}{
	{dialog.EmotionFrustrated, regexp.MustCompile(`\b(?:frustrat\w*|annoy\w*|angry|ridiculous|useless|terrible|awful|not\s+working|doesn'?t\s+work|still\s+wrong|come\s+on|seriously)\b`)},
	{dialog.EmotionConfused, regexp.MustCompile(`\b(?:confus\w*|don'?t\s+understand|do\s+not\s+understand|what\s+do\s+you\s+mean|unclear|i'?m\s+lost|not\s+sure|huh)\b`)},
	{dialog.EmotionPositive, regexp.MustCompile(`\b(?:great|awesome|thanks|thank\s+you|perfect|excellent|love|wonderful|amazing|nice|fantastic)\b`)},
}

// DetectEmotion returns the first matching emotion or neutral
func DetectEmotion(text string) dialog.Emotion {
	lower := strings.ToLower(text)
	for _, e := range emotionRules {
		if e.re.MatchString(lower) {
			return e.emotion
		}
	}
	return dialog.EmotionNeutral
}

// RuleClassifier is the deterministic keyword classifier. It never returns
// an error.
type RuleClassifier struct{}

// NewRuleClassifier creates the keyword classifier
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

func (c *RuleClassifier) Name() string {
	return RuleProviderName
}

// Classify always succeeds
func (c *RuleClassifier) Classify(ctx context.Context, text string, history []dialog.Turn) (dialog.IntentResult, error) {
	return c.Match(text), nil
}

// Match classifies text. A panic inside matching degrades to GENERAL.
func (c *RuleClassifier) Match(text string) (result dialog.IntentResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("[RuleClassifier] recovered: %v", r)
			result = generalResult()
		}
	}()

	text = strings.ToValidUTF8(text, "")
	if len(text) > maxRuleInput {
		text = truncateRunes(text, maxRuleInput)
	}
	lower := strings.ToLower(strings.TrimSpace(text))

	result = generalResult()
	for _, r := range rules {
		if r.matches(lower) {
			result.Intent = r.intent
			result.Confidence = r.confidence
			break
		}
	}

	result.Topic = TopicFor(result.Intent)
	result.Emotion = DetectEmotion(lower)
	result.Parameters = ExtractSlots(text)
	if result.Intent == dialog.IntentCreateOrder {
		result.RequiresUserInput = len(MissingSlots(result.Parameters)) > 0
	}
	return result
}

func generalResult() dialog.IntentResult {
	return dialog.IntentResult{
		Intent:     dialog.IntentGeneral,
		Confidence: 0.5,
		Parameters: map[string]any{},
		Emotion:    dialog.EmotionNeutral,
		Topic:      TopicGeneral,
		Provider:   RuleProviderName,
	}
}

// MissingSlots lists required order slots absent from params, in ask order
func MissingSlots(params map[string]any) []string {
	var missing []string
	for _, s := range RequiredOrderSlots {
		v, ok := params[s]
		if !ok || v == nil || v == "" || v == 0 {
			missing = append(missing, s)
		}
	}
	return missing
}

func truncateRunes(s string, maxBytes int) string {
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
