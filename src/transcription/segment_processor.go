package transcription

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/square-key-labs/strawgo-lisa/src/audio/dsp"
	"github.com/square-key-labs/strawgo-lisa/src/frames"
	"github.com/square-key-labs/strawgo-lisa/src/processors"
)

const (
	segmentQueueSize = 8
	// pre-roll kept before speech start so the first syllable is not clipped
	preRoll = 300 * time.Millisecond
)

// SegmentProcessor collects the audio the VAD marked as speech and
// transcribes each segment on a worker goroutine. The frame loop never waits
// on the provider.
type SegmentProcessor struct {
	*processors.BaseProcessor
	transcriber Transcriber
	minSegment  time.Duration

	mu         sync.Mutex
	sampleRate int
	capturing  bool
	buffer     []int16
	preroll    []int16

	queue    chan Segment
	stopOnce sync.Once
	done     chan struct{}
	workerWg sync.WaitGroup
}

// NewSegmentProcessor creates a batch transcription processor
func NewSegmentProcessor(transcriber Transcriber, minSegment time.Duration) *SegmentProcessor {
	p := &SegmentProcessor{
		transcriber: transcriber,
		minSegment:  minSegment,
		sampleRate:  16000,
		queue:       make(chan Segment, segmentQueueSize),
		done:        make(chan struct{}),
	}
	p.BaseProcessor = processors.NewBaseProcessor("SegmentSTT", p)
	return p
}

func (p *SegmentProcessor) Start(ctx context.Context) error {
	if err := p.BaseProcessor.Start(ctx); err != nil {
		return err
	}
	p.workerWg.Add(1)
	go p.worker(ctx)
	return nil
}

func (p *SegmentProcessor) Stop() error {
	p.stopOnce.Do(func() { close(p.done) })
	p.workerWg.Wait()
	return p.BaseProcessor.Stop()
}

func (p *SegmentProcessor) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	switch f := frame.(type) {
	case *frames.StartFrame:
		if f.SampleRate > 0 {
			p.mu.Lock()
			p.sampleRate = f.SampleRate
			p.mu.Unlock()
		}

	case *frames.AudioFrame:
		if direction == frames.Downstream {
			p.mu.Lock()
			p.collect(f)
			p.mu.Unlock()
		}

	case *frames.EndFrame:
		p.mu.Lock()
		if p.capturing {
			p.flush()
		}
		p.mu.Unlock()
	}
	return p.PushFrame(frame, direction)
}

// collect follows the VAD flag on each audio frame. Speaking/stopped frames
// are system frames and may overtake audio, so segment edges come from the
// audio itself.
func (p *SegmentProcessor) collect(f *frames.AudioFrame) {
	pcm := dsp.BytesToPCM16(f.Data)
	speaking := f.Speaking()

	switch {
	case speaking && !p.capturing:
		p.capturing = true
		p.buffer = append(append([]int16(nil), p.preroll...), pcm...)
		p.preroll = nil
	case speaking:
		p.buffer = append(p.buffer, pcm...)
	case p.capturing:
		p.flush()
		p.keepPreroll(pcm)
	default:
		p.keepPreroll(pcm)
	}
}

func (p *SegmentProcessor) flush() {
	p.capturing = false
	p.enqueue(Segment{PCM: p.buffer, SampleRate: p.sampleRate})
	p.buffer = nil
}

func (p *SegmentProcessor) keepPreroll(pcm []int16) {
	limit := int(int64(p.sampleRate) * int64(preRoll) / int64(time.Second))
	p.preroll = append(p.preroll, pcm...)
	if over := len(p.preroll) - limit; over > 0 {
		p.preroll = append([]int16(nil), p.preroll[over:]...)
	}
}

func (p *SegmentProcessor) enqueue(seg Segment) {
	if seg.Duration() < p.minSegment {
		p.Logger().Debug("Skipping %v segment", seg.Duration())
		return
	}
	select {
	case p.queue <- seg:
	default:
		p.Logger().Warn("Transcription queue full, dropping %v segment", seg.Duration())
	}
}

func (p *SegmentProcessor) worker(ctx context.Context) {
	defer p.workerWg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case seg := <-p.queue:
			start := time.Now()
			t, err := p.transcriber.Transcribe(ctx, seg)
			if err != nil {
				p.Logger().Warn("Transcription failed: %v", err)
				_ = p.PushFrame(frames.NewErrorFrame(err), frames.Upstream)
				continue
			}
			text := strings.TrimSpace(t.Text)
			if text == "" {
				continue
			}
			p.Logger().Info("Transcribed %v of audio in %v: %q", seg.Duration(), time.Since(start), text)
			tf := frames.NewTranscriptionFrame(text, true)
			tf.Confidence = t.Confidence
			_ = p.PushFrame(tf, frames.Downstream)
		}
	}
}
