package processors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/square-key-labs/strawgo-lisa/src/dialog"
	"github.com/square-key-labs/strawgo-lisa/src/frames"
	"github.com/square-key-labs/strawgo-lisa/src/interruptions"
)

// collector records every frame it receives
type collector struct {
	*BaseProcessor
	got chan frames.Frame
}

func newCollector() *collector {
	c := &collector{got: make(chan frames.Frame, 16)}
	c.BaseProcessor = NewBaseProcessor("Collector", c)
	return c
}

func (c *collector) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	c.got <- frame
	return nil
}

type panicker struct {
	*BaseProcessor
}

func (p *panicker) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	if _, ok := frame.(*frames.TextFrame); ok {
		panic("boom")
	}
	return p.PushFrame(frame, direction)
}

func TestQueueBeforeStartFails(t *testing.T) {
	c := newCollector()
	assert.Error(t, c.QueueFrame(frames.NewTextFrame("hi"), frames.Downstream))
}

func TestStartFrameConfiguresProcessor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newCollector()
	require.NoError(t, c.Start(ctx))
	defer c.Stop()

	strategy := interruptions.NewMinWordsInterruptionStrategy(2)
	start := frames.NewStartFrameWithConfig("session-1", 16000, true, []interruptions.InterruptionStrategy{strategy})
	require.NoError(t, c.QueueFrame(start, frames.Downstream))

	select {
	case f := <-c.got:
		assert.Same(t, start, f)
	case <-time.After(time.Second):
		t.Fatal("start frame not delivered")
	}
	assert.Equal(t, "session-1", c.SessionID())
	assert.True(t, c.InterruptionsAllowed())
	assert.Len(t, c.InterruptionStrategies(), 1)
}

func TestPanickingHandlerKeepsRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &panicker{}
	p.BaseProcessor = NewBaseProcessor("Panicker", p)
	c := newCollector()
	p.Link(c)

	require.NoError(t, p.Start(ctx))
	require.NoError(t, c.Start(ctx))
	defer p.Stop()
	defer c.Stop()

	require.NoError(t, p.QueueFrame(frames.NewTextFrame("explode"), frames.Downstream))
	require.NoError(t, p.QueueFrame(frames.NewResponseFrame(dialog.Response{Text: "ok"}), frames.Downstream))

	select {
	case f := <-c.got:
		rf, ok := f.(*frames.ResponseFrame)
		require.True(t, ok)
		assert.Equal(t, "ok", rf.Response.Text)
	case <-time.After(time.Second):
		t.Fatal("processor stopped after panic")
	}
}

func TestDescribeFrame(t *testing.T) {
	tf := frames.NewTranscriptionFrame("show me orders", true)
	assert.Contains(t, describeFrame(tf), `Text: "show me orders"`)
	assert.Contains(t, describeFrame(tf), "IsFinal: true")

	rf := frames.NewResponseFrame(dialog.Response{Text: "hello", ShouldSpeak: true})
	assert.Contains(t, describeFrame(rf), `Text: "hello"`)

	af := frames.NewAudioFrame(make([]byte, 640), 16000, 1)
	assert.NotContains(t, describeFrame(af), "Data")
}
