package interruptions

import (
	"strings"

	"github.com/square-key-labs/strawgo-lisa/src/logger"
)

// MinWordsInterruptionStrategy interrupts once the user has said at least
// minWords words. Interim transcripts replace each other; they are not summed.
type MinWordsInterruptionStrategy struct {
	BaseInterruptionStrategy
	minWords int
	text     string
}

// NewMinWordsInterruptionStrategy creates a new minimum words strategy
func NewMinWordsInterruptionStrategy(minWords int) *MinWordsInterruptionStrategy {
	return &MinWordsInterruptionStrategy{minWords: minWords}
}

// AppendText records the latest transcript. A longer transcript that extends
// the previous one replaces it, anything else is appended.
func (m *MinWordsInterruptionStrategy) AppendText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	text = strings.TrimSpace(text)
	switch {
	case text == "":
	case m.text == "" || strings.HasPrefix(text, m.text):
		m.text = text
	default:
		m.text = m.text + " " + text
	}
	return nil
}

// ShouldInterrupt checks if the minimum word count has been reached
func (m *MinWordsInterruptionStrategy) ShouldInterrupt() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := len(strings.Fields(m.text))
	interrupt := count >= m.minWords
	logger.Debug("[MinWordsStrategy] should_interrupt=%v num_spoken_words=%d min_words=%d",
		interrupt, count, m.minWords)
	return interrupt, nil
}

// Reset clears the accumulated text
func (m *MinWordsInterruptionStrategy) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = ""
	return nil
}
