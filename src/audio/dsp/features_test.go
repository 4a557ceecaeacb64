package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sine(freq float64, amp float64, sampleRate, n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(amp * 32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

func TestRMSOfSilenceAndSine(t *testing.T) {
	assert.Equal(t, 0.0, RMS(nil))
	assert.Equal(t, 0.0, RMS(make([]float64, 320)))

	s := PCM16ToFloat(sine(440, 0.5, 16000, 1600))
	// RMS of a sine is amplitude / sqrt(2)
	assert.InDelta(t, 0.5/math.Sqrt2, RMS(s), 0.01)
}

func TestPitchFromZCRMatchesTone(t *testing.T) {
	s := PCM16ToFloat(sine(200, 0.5, 16000, 1600))
	pitch := PitchFromZCR(ZeroCrossingRate(s), 16000)
	assert.InDelta(t, 200, pitch, 15)
}

func TestSpectralCentroidOfTone(t *testing.T) {
	f := Analyze(sine(1000, 0.5, 16000, 512), 16000)
	assert.InDelta(t, 1000, f.CentroidHz, 120)
}

func TestSpectralCentroidEmpty(t *testing.T) {
	assert.Equal(t, 0.0, SpectralCentroid([]float64{0, 0, 0}, 16000, 4))
	assert.Equal(t, 0.0, SpectralCentroid(nil, 16000, 0))
}

func TestBytesRoundTrip(t *testing.T) {
	pcm := []int16{0, 1, -1, 32767, -32768}
	assert.Equal(t, pcm, BytesToPCM16(PCM16ToBytes(pcm)))
	assert.Len(t, BytesToPCM16([]byte{1, 2, 3}), 1)
}
