package transcription

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/square-key-labs/strawgo-lisa/src/audio/dsp"
	"github.com/square-key-labs/strawgo-lisa/src/frames"
	"github.com/square-key-labs/strawgo-lisa/src/processors"
	"github.com/square-key-labs/strawgo-lisa/src/voiceerr"
)

type fakeTranscriber struct {
	name  string
	text  string
	err   error
	delay time.Duration
	calls chan Segment
}

func (f *fakeTranscriber) Name() string { return f.name }

func (f *fakeTranscriber) Transcribe(ctx context.Context, seg Segment) (Transcript, error) {
	if f.calls != nil {
		f.calls <- seg
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Transcript{}, ctx.Err()
		}
	}
	if f.err != nil {
		return Transcript{}, f.err
	}
	return Transcript{Text: f.text, Confidence: 0.9}, nil
}

func TestChainFallsThrough(t *testing.T) {
	chain := NewChain(50*time.Millisecond,
		&fakeTranscriber{name: "down", err: voiceerr.Unavailable("down", "no key")},
		&fakeTranscriber{name: "slow", text: "late", delay: time.Second},
		&fakeTranscriber{name: "ok", text: "show me orders"},
	)
	tr, err := chain.Transcribe(context.Background(), Segment{SampleRate: 16000})
	require.NoError(t, err)
	assert.Equal(t, "show me orders", tr.Text)
}

func TestChainAllFail(t *testing.T) {
	chain := NewChain(time.Second, &fakeTranscriber{name: "a", err: errors.New("boom")})
	_, err := chain.Transcribe(context.Background(), Segment{})
	assert.True(t, voiceerr.Is(err, voiceerr.KindProviderError))
}

func TestEncodeWAVHeader(t *testing.T) {
	wav := EncodeWAV([]int16{1, -1, 3}, 16000)
	require.Len(t, wav, 44+6)
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(wav[24:]))
	assert.Equal(t, uint32(6), binary.LittleEndian.Uint32(wav[40:]))
	assert.Equal(t, int16(-1), int16(binary.LittleEndian.Uint16(wav[46:])))
}

type sink struct {
	*processors.BaseProcessor
	got chan frames.Frame
}

func newSink() *sink {
	s := &sink{got: make(chan frames.Frame, 32)}
	s.BaseProcessor = processors.NewBaseProcessor("Sink", s)
	return s
}

func (s *sink) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	if tf, ok := frame.(*frames.TranscriptionFrame); ok {
		s.got <- tf
	}
	return nil
}

func TestSegmentProcessorTranscribesSpeechRuns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := &fakeTranscriber{name: "fake", text: " hello there ", calls: make(chan Segment, 4)}
	p := NewSegmentProcessor(fake, 100*time.Millisecond)
	out := newSink()
	p.Link(out)
	require.NoError(t, out.Start(ctx))
	require.NoError(t, p.Start(ctx))
	defer p.Stop()
	defer out.Stop()

	chunk := dsp.PCM16ToBytes(make([]int16, 1600)) // 100 ms
	audio := func(speaking bool) *frames.AudioFrame {
		f := frames.NewAudioFrame(chunk, 16000, 1)
		f.SetMetadata(frames.MetaVADSpeaking, speaking)
		return f
	}
	require.NoError(t, p.QueueFrame(frames.NewStartFrame("s1", 16000), frames.Downstream))
	require.NoError(t, p.QueueFrame(audio(false), frames.Downstream))
	for i := 0; i < 3; i++ {
		require.NoError(t, p.QueueFrame(audio(true), frames.Downstream))
	}
	require.NoError(t, p.QueueFrame(audio(false), frames.Downstream))

	select {
	case seg := <-fake.calls:
		// pre-roll plus three chunks
		assert.Equal(t, 1600*4, len(seg.PCM))
		assert.Equal(t, 16000, seg.SampleRate)
	case <-time.After(2 * time.Second):
		t.Fatal("transcriber not called")
	}

	select {
	case f := <-out.got:
		tf := f.(*frames.TranscriptionFrame)
		assert.Equal(t, "hello there", tf.Text)
		assert.True(t, tf.IsFinal)
		assert.InDelta(t, 0.9, tf.Confidence, 1e-9)
	case <-time.After(2 * time.Second):
		t.Fatal("no transcription frame")
	}
}
