package vad

import (
	"context"
	"fmt"
	"sync"

	"github.com/square-key-labs/strawgo-lisa/src/audio/dsp"
	"github.com/square-key-labs/strawgo-lisa/src/frames"
	"github.com/square-key-labs/strawgo-lisa/src/processors"
)

// VADInputProcessor slices decoded audio into detector windows.
// On speech start it emits UserStartedSpeakingFrame, on speech end
// UserStoppedSpeakingFrame, and every VolumeEvery windows a VolumeFrame.
// Audio always continues downstream for STT, tagged with MetaVADSpeaking.
type VADInputProcessor struct {
	*processors.BaseProcessor
	detector    *Detector
	volumeEvery int

	// system and data frames arrive on different goroutines
	mu      sync.Mutex
	buffer  []int16
	windows int
}

// NewVADInputProcessor creates a new VAD input processor
func NewVADInputProcessor(detector *Detector) *VADInputProcessor {
	p := &VADInputProcessor{
		detector:    detector,
		volumeEvery: 5,
	}
	p.BaseProcessor = processors.NewBaseProcessor("VADInput", p)
	return p
}

// HandleFrame processes frames from upstream (typically the audio decoder)
func (p *VADInputProcessor) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	switch f := frame.(type) {
	case *frames.StartFrame:
		if f.SampleRate > 0 {
			p.detector.SetSampleRate(f.SampleRate)
			p.Logger().Debug("Sample rate configured: %d Hz", f.SampleRate)
		}
	case *frames.AudioFrame:
		if direction == frames.Downstream {
			p.mu.Lock()
			err := p.analyze(f)
			p.mu.Unlock()
			if err != nil {
				p.Logger().Error("VAD analysis error: %v", err)
			}
			state := p.detector.State()
			f.SetMetadata(frames.MetaVADSpeaking, state == VADStateSpeaking || state == VADStateStopping)
		}
	case *frames.EndFrame:
		p.detector.Reset()
		p.mu.Lock()
		p.buffer = nil
		p.mu.Unlock()
	}
	return p.PushFrame(frame, direction)
}

func (p *VADInputProcessor) analyze(f *frames.AudioFrame) error {
	p.buffer = append(p.buffer, dsp.BytesToPCM16(f.Data)...)
	size := p.detector.SamplesPerFrame()
	if size <= 0 {
		return fmt.Errorf("detector window size %d", size)
	}

	for len(p.buffer) >= size {
		window := p.buffer[:size]
		for _, ev := range p.detector.Analyze(window) {
			if err := p.emit(ev); err != nil {
				return err
			}
		}
		p.buffer = p.buffer[size:]
	}
	// keep the remainder in a fresh slice so the buffer does not grow forever
	p.buffer = append([]int16(nil), p.buffer...)
	return nil
}

func (p *VADInputProcessor) emit(ev Event) error {
	switch ev.Type {
	case EventSpeechStart:
		p.Logger().Info("User started speaking")
		return p.PushFrame(frames.NewUserStartedSpeakingFrame(), frames.Downstream)
	case EventSpeechEnd:
		p.Logger().Info("User stopped speaking")
		return p.PushFrame(frames.NewUserStoppedSpeakingFrame(), frames.Downstream)
	case EventVolume:
		p.windows++
		if p.windows%p.volumeEvery == 0 {
			return p.PushFrame(frames.NewVolumeFrame(ev.Volume, ev.Average), frames.Downstream)
		}
	}
	return nil
}

// State returns the detector's current state
func (p *VADInputProcessor) State() VADState {
	return p.detector.State()
}
