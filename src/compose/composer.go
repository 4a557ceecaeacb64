// Package compose turns classifier output and action results into the text
// LISA speaks. Model output is post-processed deterministically: action tags
// are extracted and stripped, then an emotion opener may be prefixed.
package compose

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/square-key-labs/strawgo-lisa/src/actions"
	"github.com/square-key-labs/strawgo-lisa/src/dialog"
	"github.com/square-key-labs/strawgo-lisa/src/fallback"
	"github.com/square-key-labs/strawgo-lisa/src/logger"
)

const (
	goodbyeText   = "Thank you for using LISA. Goodbye!"
	noSessionText = "There is no active conversation."
	wrapUpText    = "We've been talking for quite a while. Is there anything else I can help you with before we wrap up?"
)

var apologies = map[dialog.Emotion]string{
	dialog.EmotionNeutral:    "Sorry, something went wrong on my side. Could you say that again?",
	dialog.EmotionFrustrated: "I'm really sorry, something went wrong on my side. Let's try that once more.",
	dialog.EmotionConfused:   "Sorry, I got mixed up there. Could you put that another way?",
}

// Composer phrases replies through a generator chain that always ends with
// the templates
type Composer struct {
	generators []Generator
	templates  *TemplateGenerator
	timeout    time.Duration
	style      string
	log        *logger.Logger
}

// NewComposer creates a composer. timeout bounds each generator call; style
// is used when a request carries none.
func NewComposer(timeout time.Duration, style string, generators ...Generator) *Composer {
	return &Composer{
		generators: generators,
		templates:  NewTemplateGenerator(),
		timeout:    timeout,
		style:      style,
		log:        logger.WithPrefix("Composer"),
	}
}

// Compose produces the response for a classified utterance
func (c *Composer) Compose(ctx context.Context, req Request) dialog.Response {
	if req.Style == "" {
		req.Style = c.style
	}

	raw := c.generate(ctx, req)
	action, rest := ExtractAction(raw)
	if action == "" {
		action = DefaultAction(req.Intent)
	}
	if action == actions.CreateOrder && req.Intent.RequiresUserInput {
		action = ""
	}

	text := ApplyEmotion(req.Intent.Emotion, StripTags(rest))
	return dialog.Response{
		Text:              text,
		Action:            action,
		ShouldSpeak:       text != "",
		Confidence:        req.Intent.Confidence,
		Intent:            req.Intent.Intent,
		Emotion:           req.Intent.Emotion,
		RequiresUserInput: req.Intent.RequiresUserInput,
	}
}

func (c *Composer) generate(ctx context.Context, req Request) string {
	if len(c.generators) == 0 {
		return c.templates.Render(req)
	}

	attempts := make([]fallback.Attempt[string], 0, len(c.generators))
	for _, g := range c.generators {
		g := g
		attempts = append(attempts, fallback.Attempt[string]{
			Name: g.Name(),
			Run: func(ctx context.Context) (string, error) {
				text, err := g.Generate(ctx, req)
				if err == nil && strings.TrimSpace(text) == "" {
					return "", errEmptyReply
				}
				return text, err
			},
		})
	}

	text, name, err := fallback.First(ctx, c.timeout, attempts...)
	if err != nil {
		c.log.Warn("All generators failed, using templates: %v", err)
		return c.templates.Render(req)
	}
	c.log.Debug("Reply generated by %s", name)
	return text
}

var errEmptyReply = errors.New("empty reply")

// DescribeResult attaches an action result to resp and appends its summary
func (c *Composer) DescribeResult(resp dialog.Response, res actions.Result) dialog.Response {
	resp.Data = res
	if res.Message == "" {
		return resp
	}
	if resp.Text == "" {
		resp.Text = res.Message
	} else {
		resp.Text = resp.Text + " " + res.Message
	}
	resp.ShouldSpeak = true
	return resp
}

// AskSlot is the response asking for a missing order detail
func (c *Composer) AskSlot(slot string, r dialog.IntentResult) dialog.Response {
	text := ApplyEmotion(r.Emotion, AskForSlot(slot))
	return dialog.Response{
		Text:              text,
		ShouldSpeak:       true,
		Confidence:        r.Confidence,
		Intent:            dialog.IntentCreateOrder,
		Emotion:           r.Emotion,
		RequiresUserInput: true,
	}
}

// Greeting opens a conversation
func (c *Composer) Greeting() dialog.Response {
	text := c.templates.Render(Request{Intent: dialog.IntentResult{Intent: dialog.IntentGreeting}})
	return dialog.Response{
		Text:              text,
		ShouldSpeak:       true,
		Confidence:        1,
		Intent:            dialog.IntentGreeting,
		Emotion:           dialog.EmotionNeutral,
		RequiresUserInput: true,
	}
}

// WrapUp is the fixed reply once a conversation exceeds its length cap
func (c *Composer) WrapUp() dialog.Response {
	return dialog.Response{
		Text:              wrapUpText,
		ShouldSpeak:       true,
		Confidence:        1,
		RequiresUserInput: true,
	}
}

// Apology replaces a turn that failed internally
func (c *Composer) Apology(emotion dialog.Emotion) dialog.Response {
	text, ok := apologies[emotion]
	if !ok {
		text = apologies[dialog.EmotionNeutral]
	}
	return dialog.Response{
		Text:        text,
		ShouldSpeak: true,
		Confidence:  0.1,
		Emotion:     emotion,
	}
}

// Goodbye closes a conversation
func (c *Composer) Goodbye(r dialog.IntentResult) dialog.Response {
	return dialog.Response{
		Text:        goodbyeText,
		Action:      actions.EndConversation,
		ShouldSpeak: true,
		Confidence:  r.Confidence,
		Intent:      dialog.IntentEndConversation,
		Emotion:     r.Emotion,
	}
}

// NoSession answers requests for a conversation that no longer exists
func (c *Composer) NoSession() dialog.Response {
	return dialog.Response{
		Text:        noSessionText,
		ShouldSpeak: false,
	}
}
