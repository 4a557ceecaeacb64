package interruptions

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/square-key-labs/strawgo-lisa/src/audio/dsp"
)

func tone(amp float64, n int) []byte {
	pcm := make([]int16, n)
	for i := range pcm {
		pcm[i] = int16(amp * 32767 * math.Sin(2*math.Pi*220*float64(i)/16000))
	}
	return dsp.PCM16ToBytes(pcm)
}

func TestMinWordsReplacesGrowingInterims(t *testing.T) {
	s := NewMinWordsInterruptionStrategy(3)

	require.NoError(t, s.AppendText("wait"))
	require.NoError(t, s.AppendText("wait a"))
	ok, _ := s.ShouldInterrupt()
	assert.False(t, ok)

	require.NoError(t, s.AppendText("wait a second"))
	ok, _ = s.ShouldInterrupt()
	assert.True(t, ok)

	require.NoError(t, s.Reset())
	ok, _ = s.ShouldInterrupt()
	assert.False(t, ok)
}

func TestVolumeStrategy(t *testing.T) {
	s := NewVolumeInterruptionStrategy(nil)
	quiet := make([]byte, 640)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendAudio(quiet, 16000))
	}
	ok, _ := s.ShouldInterrupt()
	assert.False(t, ok)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.AppendAudio(tone(0.3, 320), 16000))
	}
	ok, _ = s.ShouldInterrupt()
	assert.True(t, ok)
}

func TestVADBasedStrategyNeedsSustainedSpeech(t *testing.T) {
	now := time.Unix(0, 0)
	s := NewVADBasedInterruptionStrategy(nil)
	s.now = func() time.Time { return now }

	require.NoError(t, s.AppendAudio(tone(0.3, 320), 16000))
	ok, _ := s.ShouldInterrupt()
	assert.False(t, ok)

	now = now.Add(400 * time.Millisecond)
	ok, _ = s.ShouldInterrupt()
	assert.True(t, ok)

	require.NoError(t, s.AppendAudio(make([]byte, 640), 16000))
	ok, _ = s.ShouldInterrupt()
	assert.False(t, ok)
}

func TestAny(t *testing.T) {
	assert.True(t, Any(nil))

	words := NewMinWordsInterruptionStrategy(2)
	assert.False(t, Any([]InterruptionStrategy{words}))
	_ = words.AppendText("stop please")
	assert.True(t, Any([]InterruptionStrategy{words}))

	ResetAll([]InterruptionStrategy{words})
	assert.False(t, Any([]InterruptionStrategy{words}))
}
