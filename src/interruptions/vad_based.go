package interruptions

import (
	"time"

	"github.com/square-key-labs/strawgo-lisa/src/audio/dsp"
)

// VADBasedInterruptionStrategy interrupts on sustained voiced audio: windows
// that are loud enough and whose zero-crossing rate looks like speech.
type VADBasedInterruptionStrategy struct {
	BaseInterruptionStrategy

	minDuration     time.Duration
	energyThreshold float64
	minZCR          float64
	now             func() time.Time

	speechStart time.Time
	speaking    bool
}

// VADBasedInterruptionStrategyParams holds configuration for VAD-based interruption
type VADBasedInterruptionStrategyParams struct {
	MinDuration     time.Duration // default: 300ms
	EnergyThreshold float64       // default: 0.02
	ZeroCrossRate   float64       // default: 0.02 crossings per sample
}

// NewVADBasedInterruptionStrategy creates a new VAD-based interruption strategy
func NewVADBasedInterruptionStrategy(params *VADBasedInterruptionStrategyParams) *VADBasedInterruptionStrategy {
	if params == nil {
		params = &VADBasedInterruptionStrategyParams{
			MinDuration:     300 * time.Millisecond,
			EnergyThreshold: 0.02,
			ZeroCrossRate:   0.02,
		}
	}
	return &VADBasedInterruptionStrategy{
		minDuration:     params.MinDuration,
		energyThreshold: params.EnergyThreshold,
		minZCR:          params.ZeroCrossRate,
		now:             time.Now,
	}
}

// AppendAudio analyzes one linear16 window
func (v *VADBasedInterruptionStrategy) AppendAudio(audio []byte, sampleRate int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	samples := dsp.PCM16ToFloat(dsp.BytesToPCM16(audio))
	voiced := dsp.RMS(samples) > v.energyThreshold && dsp.ZeroCrossingRate(samples) > v.minZCR

	switch {
	case voiced && !v.speaking:
		v.speaking = true
		v.speechStart = v.now()
	case !voiced:
		v.speaking = false
	}
	return nil
}

// ShouldInterrupt reports whether voiced audio has lasted minDuration
func (v *VADBasedInterruptionStrategy) ShouldInterrupt() (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.speaking {
		return false, nil
	}
	return v.now().Sub(v.speechStart) >= v.minDuration, nil
}

// Reset clears the speech detection state
func (v *VADBasedInterruptionStrategy) Reset() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.speaking = false
	v.speechStart = time.Time{}
	return nil
}
