package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/square-key-labs/strawgo-lisa/src/config"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	cfg := config.Default()
	cfg.Providers.Order = nil
	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestChatEndsOnGoodbye(t *testing.T) {
	a := newTestApp(t)
	cmd := &ChatCmd{Session: "terminal"}

	in := strings.NewReader("hello there\n\nshow me orders from this week\nstop\nthis line is never read\n")
	var out bytes.Buffer
	require.NoError(t, cmd.run(context.Background(), a, in, &out))

	text := out.String()
	assert.GreaterOrEqual(t, strings.Count(text, "LISA: "), 4)
	_, open := a.engine.Stats("terminal")
	assert.False(t, open)
}

func TestChatEndsOnEOF(t *testing.T) {
	a := newTestApp(t)
	cmd := &ChatCmd{Session: "terminal", Data: true}

	var out bytes.Buffer
	require.NoError(t, cmd.run(context.Background(), a, strings.NewReader("find orders for acme glass\n"), &out))

	assert.Contains(t, out.String(), "{")
	_, open := a.engine.Stats("terminal")
	assert.False(t, open)
}

func TestStrategiesFollowConfig(t *testing.T) {
	a := newTestApp(t)
	assert.Len(t, a.strategies(), 1)

	a.cfg.Conversation.InterruptOn = []string{config.InterruptWords, config.InterruptVolume, config.InterruptVoice}
	assert.Len(t, a.strategies(), 3)

	a.cfg.Conversation.InterruptOn = nil
	assert.Empty(t, a.strategies())
}

func TestPipelineFactoryWithoutTranscription(t *testing.T) {
	a := newTestApp(t)
	a.cfg.Providers.STTMode = config.STTNone

	procs, err := a.pipelineFactory()("s1")
	require.NoError(t, err)
	// decoder, VAD, conversation
	assert.Len(t, procs, 3)

	a.cfg.Providers.STTMode = config.STTStreaming
	a.cfg.Debug.LogFrames = true
	procs, err = a.pipelineFactory()("s2")
	require.NoError(t, err)
	// no Deepgram key falls back to batch segments, plus the frame logger
	assert.Len(t, procs, 5)
}
