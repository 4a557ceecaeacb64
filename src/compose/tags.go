package compose

import (
	"regexp"
	"strings"

	"github.com/square-key-labs/strawgo-lisa/src/actions"
	"github.com/square-key-labs/strawgo-lisa/src/dialog"
)

var (
	actionTag        = regexp.MustCompile(`(?i)\[\s*ACTION\s*:\s*([a-z_\-]+)\s*\]`)
	anyTag           = regexp.MustCompile(`\[[^\[\]]*\]`)
	spaces           = regexp.MustCompile(`\s+`)
	spaceBeforePunct = regexp.MustCompile(`\s+([.,!?;:])`)
)

// actionAliases renames model tags onto the executor vocabulary
var actionAliases = map[string]string{
	"search":           actions.SearchOrders,
	"results":          actions.SearchOrders,
	"find":             actions.SearchOrders,
	"search_orders":    actions.SearchOrders,
	"create":           actions.CreateOrder,
	"order":            actions.CreateOrder,
	"new_order":        actions.CreateOrder,
	"create_order":     actions.CreateOrder,
	"customers":        actions.SearchCustomers,
	"search_customers": actions.SearchCustomers,
	"pdf":              actions.GeneratePDF,
	"report":           actions.GeneratePDF,
	"generate_pdf":     actions.GeneratePDF,
	"end":              actions.EndConversation,
	"goodbye":          actions.EndConversation,
	"end_conversation": actions.EndConversation,
	"help":             actions.ShowHelp,
	"show_help":        actions.ShowHelp,
}

// CanonicalAction maps a raw tag name to the executor vocabulary. Unknown
// names are returned lower-cased.
func CanonicalAction(raw string) string {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_")
	if canon, ok := actionAliases[name]; ok {
		return canon
	}
	return name
}

// ExtractAction finds the first action tag in text and returns its canonical
// name together with the text minus every action tag. No tag yields "".
func ExtractAction(text string) (string, string) {
	m := actionTag.FindStringSubmatch(text)
	if m == nil {
		return "", text
	}
	return CanonicalAction(m[1]), actionTag.ReplaceAllString(text, "")
}

// StripTags removes every bracketed annotation and tidies whitespace
func StripTags(text string) string {
	text = anyTag.ReplaceAllString(text, " ")
	text = spaces.ReplaceAllString(text, " ")
	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}

// DefaultAction is the action an intent implies when the model gave no tag
func DefaultAction(r dialog.IntentResult) string {
	switch r.Intent {
	case dialog.IntentSearchOrders:
		return actions.SearchOrders
	case dialog.IntentCreateOrder:
		if r.RequiresUserInput {
			return ""
		}
		return actions.CreateOrder
	case dialog.IntentSearchCustomers:
		return actions.SearchCustomers
	case dialog.IntentGeneratePDF:
		return actions.GeneratePDF
	case dialog.IntentEndConversation:
		return actions.EndConversation
	default:
		return ""
	}
}

type emotionPrefix struct {
	prefix  string
	markers []string
}

var emotionPrefixes = map[dialog.Emotion]emotionPrefix{
	dialog.EmotionFrustrated: {
		prefix:  "I understand this is frustrating. ",
		markers: []string{"sorry", "apolog", "frustrat", "understand"},
	},
	dialog.EmotionConfused: {
		prefix:  "Let me clarify. ",
		markers: []string{"clarify", "let me explain", "to be clear", "in other words"},
	},
	dialog.EmotionPositive: {
		prefix:  "Great! ",
		markers: []string{"great", "glad", "wonderful", "happy", "excellent"},
	},
}

// ApplyEmotion prefixes text with an opener for the emotion unless the text
// already addresses it
func ApplyEmotion(emotion dialog.Emotion, text string) string {
	p, ok := emotionPrefixes[emotion]
	if !ok || strings.TrimSpace(text) == "" {
		return text
	}
	lower := strings.ToLower(text)
	for _, m := range p.markers {
		if strings.Contains(lower, m) {
			return text
		}
	}
	return p.prefix + text
}
