package vad

import (
	"sync"
	"time"

	"github.com/square-key-labs/strawgo-lisa/src/audio/dsp"
	"github.com/square-key-labs/strawgo-lisa/src/logger"
)

// VADState represents the current state of voice activity detection
type VADState int

const (
	VADStateQuiet VADState = iota + 1
	VADStateStarting
	VADStateSpeaking
	VADStateStopping
)

func (s VADState) String() string {
	switch s {
	case VADStateQuiet:
		return "quiet"
	case VADStateStarting:
		return "starting"
	case VADStateSpeaking:
		return "speaking"
	case VADStateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// EventType names a detector event
type EventType string

const (
	EventVolume      EventType = "volume"
	EventSpeechStart EventType = "speech_start"
	EventSpeechEnd   EventType = "speech_end"
)

// Event is emitted by Detector.Analyze
type Event struct {
	Type   EventType
	Volume float64
	// Average is the mean of the rolling volume history
	Average float64
}

// Params holds the detection thresholds. Every field is configuration.
type Params struct {
	// VolumeThreshold is the RMS a window must exceed to count as speech
	VolumeThreshold float64

	// Pitch (from zero-crossing rate) range typical of speech
	MinPitchHz float64
	MaxPitchHz float64

	// Spectral centroid range typical of speech
	MinCentroidHz float64
	MaxCentroidHz float64

	// MaxCentroidRatio caps the centroid at this fraction of the sample
	// rate. White noise centers near a quarter of the rate, so a fixed Hz
	// ceiling alone admits it at low rates. 0 disables the cap.
	MaxCentroidRatio float64

	// MinSpeechDuration of accumulated speech windows before speech_start
	MinSpeechDuration time.Duration

	// MaxSilenceDuration of consecutive silence before speech_end
	MaxSilenceDuration time.Duration

	// HistorySize of the display-only rolling volume history
	HistorySize int

	// FrameDuration is the analysis window length
	FrameDuration time.Duration
}

// DefaultParams returns the default detection parameters
func DefaultParams() Params {
	return Params{
		VolumeThreshold:    0.02,
		MinPitchHz:         60,
		MaxPitchHz:         500,
		MinCentroidHz:      250,
		MaxCentroidHz:      3000,
		MaxCentroidRatio:   0.18,
		MinSpeechDuration:  250 * time.Millisecond,
		MaxSilenceDuration: 800 * time.Millisecond,
		HistorySize:        10,
		FrameDuration:      20 * time.Millisecond,
	}
}

// IsSpeech classifies one window taken at sampleRate: loud enough, and
// either the pitch or the spectral centroid sits in the speech band.
func (p Params) IsSpeech(f dsp.Features, sampleRate int) bool {
	if f.Volume <= p.VolumeThreshold {
		return false
	}
	pitchOK := f.PitchHz >= p.MinPitchHz && f.PitchHz <= p.MaxPitchHz
	centroidOK := f.CentroidHz >= p.MinCentroidHz && f.CentroidHz <= p.CentroidCeiling(sampleRate)
	return pitchOK || centroidOK
}

// CentroidCeiling is the highest speech-like centroid at sampleRate
func (p Params) CentroidCeiling(sampleRate int) float64 {
	ceiling := p.MaxCentroidHz
	if p.MaxCentroidRatio > 0 && sampleRate > 0 {
		ceiling = min(ceiling, p.MaxCentroidRatio*float64(sampleRate))
	}
	return ceiling
}

// Detector runs the quiet/starting/speaking/stopping state machine over
// fixed-size windows of one session's audio.
type Detector struct {
	params     Params
	sampleRate int

	state        VADState
	speechRun    time.Duration
	silenceRun   time.Duration
	history      []float64
	historyPos   int
	historyCount int

	mu sync.Mutex
}

// NewDetector creates a detector for audio at sampleRate
func NewDetector(sampleRate int, params Params) *Detector {
	if params.HistorySize <= 0 {
		params.HistorySize = 10
	}
	if params.FrameDuration <= 0 {
		params.FrameDuration = 20 * time.Millisecond
	}
	return &Detector{
		params:     params,
		sampleRate: sampleRate,
		state:      VADStateQuiet,
		history:    make([]float64, params.HistorySize),
	}
}

// SetSampleRate changes the expected input rate and resets state
func (d *Detector) SetSampleRate(sampleRate int) {
	d.mu.Lock()
	d.sampleRate = sampleRate
	d.mu.Unlock()
	d.Reset()
}

// SamplesPerFrame is the window size Analyze expects
func (d *Detector) SamplesPerFrame() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int(int64(d.sampleRate) * int64(d.params.FrameDuration) / int64(time.Second))
}

// State returns the current state
func (d *Detector) State() VADState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Params returns the detector's thresholds
func (d *Detector) Params() Params {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.params
}

// Reset returns the detector to quiet and clears the volume history
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = VADStateQuiet
	d.speechRun = 0
	d.silenceRun = 0
	d.historyPos = 0
	d.historyCount = 0
	for i := range d.history {
		d.history[i] = 0
	}
}

// Analyze classifies one window and advances the state machine. It always
// returns a volume event, followed by speech_start or speech_end on a
// transition.
func (d *Detector) Analyze(pcm []int16) []Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(pcm) == 0 || d.sampleRate <= 0 {
		return nil
	}

	features := dsp.Analyze(pcm, d.sampleRate)
	speech := d.params.IsSpeech(features, d.sampleRate)
	window := time.Duration(int64(len(pcm)) * int64(time.Second) / int64(d.sampleRate))

	avg := d.pushVolume(features.Volume)
	events := []Event{{Type: EventVolume, Volume: features.Volume, Average: avg}}

	old := d.state
	switch d.state {
	case VADStateQuiet, VADStateStarting:
		if speech {
			d.speechRun += window
			d.state = VADStateStarting
			if d.speechRun >= d.params.MinSpeechDuration {
				d.state = VADStateSpeaking
				d.speechRun = 0
				d.silenceRun = 0
				events = append(events, Event{Type: EventSpeechStart, Volume: features.Volume, Average: avg})
			}
		} else {
			d.state = VADStateQuiet
			d.speechRun = 0
		}

	case VADStateSpeaking, VADStateStopping:
		if speech {
			d.state = VADStateSpeaking
			d.silenceRun = 0
		} else {
			d.silenceRun += window
			d.state = VADStateStopping
			if d.silenceRun >= d.params.MaxSilenceDuration {
				d.state = VADStateQuiet
				d.silenceRun = 0
				d.speechRun = 0
				events = append(events, Event{Type: EventSpeechEnd, Volume: features.Volume, Average: avg})
			}
		}
	}

	if old != d.state {
		logger.Debug("[VAD] %s -> %s (volume=%.3f pitch=%.0fHz centroid=%.0fHz)",
			old, d.state, features.Volume, features.PitchHz, features.CentroidHz)
	}
	return events
}

// pushVolume appends to the ring and returns the current mean
func (d *Detector) pushVolume(v float64) float64 {
	d.history[d.historyPos] = v
	d.historyPos = (d.historyPos + 1) % len(d.history)
	if d.historyCount < len(d.history) {
		d.historyCount++
	}
	var sum float64
	for i := 0; i < d.historyCount; i++ {
		sum += d.history[i]
	}
	return sum / float64(d.historyCount)
}

// VolumeHistory returns the rolling volume history, oldest first
func (d *Detector) VolumeHistory() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]float64, 0, d.historyCount)
	start := 0
	if d.historyCount == len(d.history) {
		start = d.historyPos
	}
	for i := 0; i < d.historyCount; i++ {
		out = append(out, d.history[(start+i)%len(d.history)])
	}
	return out
}
