// Package intent classifies utterances into the dialogue intents the engine
// acts on. Networked providers are tried in order; the keyword rules are the
// last resort and never fail.
package intent

import (
	"context"
	"time"

	"github.com/square-key-labs/strawgo-lisa/src/dialog"
	"github.com/square-key-labs/strawgo-lisa/src/fallback"
	"github.com/square-key-labs/strawgo-lisa/src/logger"
)

// Classifier maps an utterance plus recent history to an IntentResult
type Classifier interface {
	Name() string
	Classify(ctx context.Context, text string, history []dialog.Turn) (dialog.IntentResult, error)
}

// Chain tries each provider under its own timeout and falls back to the
// keyword rules. Providers are never disabled after a failure.
type Chain struct {
	providers []Classifier
	rules     *RuleClassifier
	timeout   time.Duration
	log       *logger.Logger
}

// NewChain creates a chain. The rule classifier is always appended.
func NewChain(timeout time.Duration, providers ...Classifier) *Chain {
	return &Chain{
		providers: providers,
		rules:     NewRuleClassifier(),
		timeout:   timeout,
		log:       logger.WithPrefix("IntentChain"),
	}
}

func (c *Chain) Name() string {
	return "chain"
}

// Providers returns the provider names in try order, rules last
func (c *Chain) Providers() []string {
	names := make([]string, 0, len(c.providers)+1)
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return append(names, c.rules.Name())
}

// Classify never returns an error
func (c *Chain) Classify(ctx context.Context, text string, history []dialog.Turn) (dialog.IntentResult, error) {
	if len(c.providers) > 0 {
		attempts := make([]fallback.Attempt[dialog.IntentResult], 0, len(c.providers))
		for _, p := range c.providers {
			p := p
			attempts = append(attempts, fallback.Attempt[dialog.IntentResult]{
				Name: p.Name(),
				Run: func(ctx context.Context) (dialog.IntentResult, error) {
					return p.Classify(ctx, text, history)
				},
			})
		}

		result, name, err := fallback.First(ctx, c.timeout, attempts...)
		if err == nil {
			if result.Provider == "" {
				result.Provider = name
			}
			return result, nil
		}
		c.log.Warn("All providers failed, using keyword rules: %v", err)
	}

	return c.rules.Match(text), nil
}
