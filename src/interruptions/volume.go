package interruptions

import (
	"github.com/square-key-labs/strawgo-lisa/src/audio/dsp"
)

// VolumeInterruptionStrategy interrupts when enough recent audio windows are
// louder than a threshold.
type VolumeInterruptionStrategy struct {
	BaseInterruptionStrategy

	threshold  float64
	windowSize int
	minFrames  int

	volumes []float64
}

// VolumeInterruptionStrategyParams holds configuration for volume-based interruption
type VolumeInterruptionStrategyParams struct {
	Threshold  float64 // RMS threshold (default: 0.02)
	WindowSize int     // windows remembered (default: 10)
	MinFrames  int     // loud windows needed (default: 3)
}

// NewVolumeInterruptionStrategy creates a new volume-based interruption strategy
func NewVolumeInterruptionStrategy(params *VolumeInterruptionStrategyParams) *VolumeInterruptionStrategy {
	if params == nil {
		params = &VolumeInterruptionStrategyParams{Threshold: 0.02, WindowSize: 10, MinFrames: 3}
	}
	return &VolumeInterruptionStrategy{
		threshold:  params.Threshold,
		windowSize: params.WindowSize,
		minFrames:  params.MinFrames,
		volumes:    make([]float64, 0, params.WindowSize),
	}
}

// AppendAudio records the RMS of one linear16 window
func (v *VolumeInterruptionStrategy) AppendAudio(audio []byte, sampleRate int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	rms := dsp.RMS(dsp.PCM16ToFloat(dsp.BytesToPCM16(audio)))
	v.volumes = append(v.volumes, rms)
	if len(v.volumes) > v.windowSize {
		v.volumes = v.volumes[len(v.volumes)-v.windowSize:]
	}
	return nil
}

// ShouldInterrupt reports whether minFrames of the remembered windows are loud
func (v *VolumeInterruptionStrategy) ShouldInterrupt() (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	above := 0
	for _, vol := range v.volumes {
		if vol > v.threshold {
			above++
		}
	}
	return above >= v.minFrames, nil
}

// Reset clears the volume history
func (v *VolumeInterruptionStrategy) Reset() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.volumes = v.volumes[:0]
	return nil
}
