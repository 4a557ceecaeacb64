// Package interruptions decides when user activity during assistant playback
// counts as a barge-in.
package interruptions

import "sync"

// InterruptionStrategy accumulates user audio and/or text while the
// assistant is speaking and decides whether it should be interrupted.
type InterruptionStrategy interface {
	AppendAudio(audio []byte, sampleRate int) error
	AppendText(text string) error
	ShouldInterrupt() (bool, error)
	Reset() error
}

// BaseInterruptionStrategy is embedded by strategies that only care about
// one of audio or text.
type BaseInterruptionStrategy struct {
	mu sync.Mutex
}

func (b *BaseInterruptionStrategy) AppendAudio(audio []byte, sampleRate int) error {
	return nil
}

func (b *BaseInterruptionStrategy) AppendText(text string) error {
	return nil
}

func (b *BaseInterruptionStrategy) Reset() error {
	return nil
}

// Any reports whether at least one strategy votes to interrupt. With no
// strategies configured any user speech interrupts.
func Any(strategies []InterruptionStrategy) bool {
	if len(strategies) == 0 {
		return true
	}
	for _, s := range strategies {
		if ok, err := s.ShouldInterrupt(); err == nil && ok {
			return true
		}
	}
	return false
}

// ResetAll resets every strategy, ignoring errors.
func ResetAll(strategies []InterruptionStrategy) {
	for _, s := range strategies {
		_ = s.Reset()
	}
}
