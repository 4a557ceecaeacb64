package compose

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/square-key-labs/strawgo-lisa/src/dialog"
	"github.com/square-key-labs/strawgo-lisa/src/intent"
	"github.com/square-key-labs/strawgo-lisa/src/services"
)

// Response styles
const (
	StyleProfessional = "professional"
	StyleFriendly     = "friendly"
	StyleConcise      = "concise"
)

// Request is what a generator needs to phrase one reply
type Request struct {
	Text    string
	Intent  dialog.IntentResult
	History []dialog.Turn
	Style   string
}

// Generator phrases the reply text. Output may carry an [ACTION:name] tag.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

const generateHistoryTurns = 8

var styleInstructions = map[string]string{
	StyleProfessional: "Speak in a calm, professional tone.",
	StyleFriendly:     "Speak in a warm, friendly tone.",
	StyleConcise:      "Answer in as few words as possible.",
}

const generatePrompt = `You are LISA, the voice assistant of a glass order management system.
%s
Replies are spoken aloud: one or two short sentences, no lists, no markdown.
When the user wants something done, end your reply with exactly one tag:
[ACTION:search] to find orders, [ACTION:create] to create an order, [ACTION:customers] to look up customers,
[ACTION:pdf] to prepare a report, [ACTION:help] to explain features, [ACTION:end] to end the conversation.
Never invent order numbers or results; they are read out after your reply.`

// LLMGenerator asks a chat model to phrase the reply
type LLMGenerator struct {
	llm services.ChatCompleter
}

// NewLLMGenerator wraps a chat provider
func NewLLMGenerator(llm services.ChatCompleter) *LLMGenerator {
	return &LLMGenerator{llm: llm}
}

func (g *LLMGenerator) Name() string {
	return g.llm.Name()
}

func (g *LLMGenerator) Generate(ctx context.Context, req Request) (string, error) {
	msgs := services.FromHistory(req.History, generateHistoryTurns)
	msgs = append(msgs, services.ChatMessage{
		Role:    services.RoleUser,
		Content: fmt.Sprintf("%s\n\n(classified as %s%s)", req.Text, req.Intent.Intent, describeParams(req.Intent.Parameters)),
	})

	return g.llm.CompleteChat(ctx, msgs, services.ChatParams{
		System:      systemPrompt(req.Style),
		Temperature: 0.6,
		MaxTokens:   150,
	})
}

func systemPrompt(style string) string {
	instr, ok := styleInstructions[strings.ToLower(style)]
	if !ok {
		instr = styleInstructions[StyleProfessional]
	}
	return fmt.Sprintf(generatePrompt, instr)
}

func describeParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, params[k]))
	}
	return "; " + strings.Join(parts, ", ")
}

// TemplateGenerator phrases replies from fixed templates. It never fails.
type TemplateGenerator struct{}

// NewTemplateGenerator creates the template generator
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

func (g *TemplateGenerator) Name() string {
	return "templates"
}

func (g *TemplateGenerator) Generate(ctx context.Context, req Request) (string, error) {
	return g.Render(req), nil
}

// Render is Generate without the context
func (g *TemplateGenerator) Render(req Request) string {
	r := req.Intent
	switch r.Intent {
	case dialog.IntentGreeting:
		return "Hello! I'm LISA, your glass order assistant. I can find orders, create new ones or look up customers. What would you like to do?"
	case dialog.IntentSearchOrders:
		return "Let me look up those orders for you. [ACTION:search]"
	case dialog.IntentCreateOrder:
		if missing := intent.MissingSlots(r.Parameters); len(missing) > 0 {
			return AskForSlot(missing[0])
		}
		return fmt.Sprintf("I'll create an order for %v %s glass for %s. [ACTION:create]",
			r.Parameters[intent.SlotQuantity], r.Param(intent.SlotGlassType), r.Param(intent.SlotCustomerName))
	case dialog.IntentSearchCustomers:
		return "Let me find that customer. [ACTION:customers]"
	case dialog.IntentGeneratePDF:
		return "I'll prepare that report for you. [ACTION:pdf]"
	case dialog.IntentHelp:
		return "I can search orders by customer, date or status, create new glass orders, look up customers and prepare PDF reports. [ACTION:help]"
	case dialog.IntentEndConversation:
		return goodbyeText + " [ACTION:end]"
	default:
		return "I'm not sure I caught that. You can ask me to find orders, create an order or look up a customer."
	}
}

var slotQuestions = map[string]string{
	intent.SlotCustomerName: "Which customer is this order for?",
	intent.SlotGlassType:    "What type of glass do you need? For example tempered, laminated or frosted.",
	intent.SlotQuantity:     "How many pieces do you need?",
	intent.SlotDimensions:   "What dimensions should the glass be?",
	intent.SlotThickness:    "How thick should the glass be?",
}

// AskForSlot returns the question that fills slot
func AskForSlot(slot string) string {
	if q, ok := slotQuestions[slot]; ok {
		return q
	}
	return "Could you give me a few more details?"
}
