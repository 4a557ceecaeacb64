package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/square-key-labs/strawgo-lisa/src/dialog"
	"github.com/square-key-labs/strawgo-lisa/src/frames"
	"github.com/square-key-labs/strawgo-lisa/src/interruptions"
	"github.com/square-key-labs/strawgo-lisa/src/processors"
)

type collector struct {
	*processors.BaseProcessor
	got chan frames.Frame
}

func newCollector() *collector {
	c := &collector{got: make(chan frames.Frame, 32)}
	c.BaseProcessor = processors.NewBaseProcessor("Collector", c)
	return c
}

func (c *collector) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	c.got <- frame
	return nil
}

// next waits for the first frame of type T, skipping others
func next[T frames.Frame](t *testing.T, c *collector) T {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case f := <-c.got:
			if v, ok := f.(T); ok {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("no %T received", zero)
			return zero
		}
	}
}

func startProcessor(t *testing.T, start *frames.StartFrame) (*Processor, *harness, *collector) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := newHarness(t, testOptions(), nil)
	p := NewProcessor(h.engine)
	c := newCollector()
	p.Link(c)
	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() {
		_ = p.Stop()
		_ = c.Stop()
	})

	require.NoError(t, p.ProcessFrame(ctx, start, frames.Downstream))
	return p, h, c
}

func TestProcessorRepliesToText(t *testing.T) {
	p, h, c := startProcessor(t, frames.NewStartFrame("web-1", 16000))
	ctx := context.Background()

	require.NoError(t, p.ProcessFrame(ctx, frames.NewTextFrame("show me pending orders"), frames.Downstream))
	rf := next[*frames.ResponseFrame](t, c)
	assert.Equal(t, dialog.IntentSearchOrders, rf.Response.Intent)
	assert.Len(t, h.history(t, "web-1"), 2)

	// partial transcripts pass through without a reply when the roll fails
	h.engine.WithSelector(firstSelector{chance: false})
	require.NoError(t, p.ProcessFrame(ctx, frames.NewTranscriptionFrame("and also the ones from", false), frames.Downstream))
	tf := next[*frames.TranscriptionFrame](t, c)
	assert.False(t, tf.IsFinal)
	assert.Len(t, h.history(t, "web-1"), 2)
}

func TestProcessorBargeInOnSpeech(t *testing.T) {
	start := frames.NewStartFrameWithConfig("web-2", 16000, true, nil)
	p, h, c := startProcessor(t, start)
	ctx := context.Background()

	require.NoError(t, p.ProcessFrame(ctx, frames.NewStartConversationFrame(), frames.Downstream))
	greeting := next[*frames.ResponseFrame](t, c)
	assert.Equal(t, dialog.IntentGreeting, greeting.Response.Intent)

	require.NoError(t, p.ProcessFrame(ctx, frames.NewBotStartedSpeakingFrame(), frames.Downstream))
	require.NoError(t, p.ProcessFrame(ctx, frames.NewUserStartedSpeakingFrame(), frames.Downstream))

	next[*frames.InterruptionFrame](t, c)
	stats, ok := h.engine.Stats("web-2")
	require.True(t, ok)
	assert.Equal(t, 1, stats.InterruptionCount)
	assert.True(t, stats.IsUserSpeaking)
}

func TestProcessorBargeInNeedsEnoughWords(t *testing.T) {
	strategy := interruptions.NewMinWordsInterruptionStrategy(3)
	start := frames.NewStartFrameWithConfig("web-3", 16000, true, []interruptions.InterruptionStrategy{strategy})
	p, h, c := startProcessor(t, start)
	ctx := context.Background()

	require.NoError(t, p.ProcessFrame(ctx, frames.NewStartConversationFrame(), frames.Downstream))
	require.NoError(t, p.ProcessFrame(ctx, frames.NewBotStartedSpeakingFrame(), frames.Downstream))

	require.NoError(t, p.ProcessFrame(ctx, frames.NewUserStartedSpeakingFrame(), frames.Downstream))
	require.NoError(t, p.ProcessFrame(ctx, frames.NewTranscriptionFrame("um", false), frames.Downstream))
	stats, _ := h.engine.Stats("web-3")
	assert.Equal(t, 0, stats.InterruptionCount)

	require.NoError(t, p.ProcessFrame(ctx, frames.NewTranscriptionFrame("wait stop that please", false), frames.Downstream))
	next[*frames.InterruptionFrame](t, c)
	stats, _ = h.engine.Stats("web-3")
	assert.Equal(t, 1, stats.InterruptionCount)
}

func TestProcessorEndFrameDisconnects(t *testing.T) {
	p, h, c := startProcessor(t, frames.NewStartFrame("web-4", 16000))
	ctx := context.Background()

	require.NoError(t, p.ProcessFrame(ctx, frames.NewStartConversationFrame(), frames.Downstream))
	next[*frames.ResponseFrame](t, c)
	require.Equal(t, 1, h.engine.Sessions().Len())

	require.NoError(t, p.ProcessFrame(ctx, frames.NewEndFrame(), frames.Downstream))
	next[*frames.EndFrame](t, c)
	assert.Equal(t, 0, h.engine.Sessions().Len())
}
