package compose

import "github.com/square-key-labs/strawgo-lisa/src/intent"

// Filler pools
const (
	PoolOrderCreation = "order_creation"
	PoolSearch        = "search"
	PoolGeneral       = "general"
)

// InterimAcks are spoken while the user is still talking
var InterimAcks = []string{
	"Mm-hmm.",
	"I see.",
	"Okay.",
	"Right.",
	"Got it.",
}

// InterruptionPhrases re-engage after the user barges in
var InterruptionPhrases = []string{
	"Sorry, go ahead.",
	"Yes?",
	"I'm listening.",
	"Go on, I'm listening.",
}

// SilenceFillers nudge the user after a pause, keyed by pool
var SilenceFillers = map[string][]string{
	PoolOrderCreation: {
		"Take your time. What else should go on the order?",
		"Whenever you're ready, tell me the next detail for the order.",
		"I'm still here. Shall we continue with the order?",
	},
	PoolSearch: {
		"Would you like me to narrow that search down?",
		"Is there a customer or date range you'd like me to look for?",
		"I'm here whenever you want to search again.",
	},
	PoolGeneral: {
		"I'm still here if you need anything.",
		"Take your time.",
		"Is there anything I can help you with?",
	},
}

// ThinkingFiller is spoken before an action runs
const ThinkingFiller = "Let me check."

// SilencePool picks the filler pool for a conversation topic
func SilencePool(topic string) string {
	switch topic {
	case intent.TopicOrderCreation:
		return PoolOrderCreation
	case intent.TopicOrderSearch, intent.TopicCustomerSearch, intent.TopicPDF:
		return PoolSearch
	default:
		return PoolGeneral
	}
}
