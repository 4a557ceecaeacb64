// Package dsp computes the per-frame acoustic features used for voice
// activity detection: RMS volume, zero-crossing rate and spectral centroid.
package dsp

import (
	"encoding/binary"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Features describes one analysis window
type Features struct {
	Volume     float64 // RMS, 0..1
	ZCR        float64 // crossings per sample
	PitchHz    float64 // ZCR expressed as a frequency
	CentroidHz float64
}

// BytesToPCM16 decodes little-endian 16-bit samples. A trailing odd byte is ignored.
func BytesToPCM16(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}

// PCM16ToBytes encodes samples as little-endian bytes.
func PCM16ToBytes(pcm []int16) []byte {
	out := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// PCM16ToFloat normalizes samples to [-1, 1].
func PCM16ToFloat(pcm []int16) []float64 {
	out := make([]float64, len(pcm))
	for i, s := range pcm {
		out[i] = float64(s) / 32768.0
	}
	return out
}

// RMS returns the root mean square of normalized samples.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// ZeroCrossingRate returns sign changes per sample.
func ZeroCrossingRate(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	crossings := 0
	prev := samples[0] >= 0
	for _, s := range samples[1:] {
		cur := s >= 0
		if cur != prev {
			crossings++
		}
		prev = cur
	}
	return float64(crossings) / float64(len(samples))
}

// PitchFromZCR converts a zero-crossing rate into an approximate fundamental
// frequency. A sinusoid crosses zero twice per period.
func PitchFromZCR(zcr float64, sampleRate int) float64 {
	return zcr * float64(sampleRate) / 2
}

// Magnitudes returns the magnitude spectrum (bins 0..n/2) of samples.
func Magnitudes(samples []float64) []float64 {
	if len(samples) == 0 {
		return nil
	}
	fft := fourier.NewFFT(len(samples))
	coeffs := fft.Coefficients(nil, samples)
	mags := make([]float64, len(coeffs))
	for i, c := range coeffs {
		mags[i] = cmplx.Abs(c)
	}
	return mags
}

// SpectralCentroid returns the magnitude-weighted mean frequency of a
// spectrum produced from fftSize samples at sampleRate.
func SpectralCentroid(magnitudes []float64, sampleRate, fftSize int) float64 {
	if fftSize == 0 {
		return 0
	}
	binHz := float64(sampleRate) / float64(fftSize)
	var weighted, total float64
	for k, m := range magnitudes {
		weighted += float64(k) * binHz * m
		total += m
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// Analyze computes all features for one window of PCM samples.
func Analyze(pcm []int16, sampleRate int) Features {
	samples := PCM16ToFloat(pcm)
	zcr := ZeroCrossingRate(samples)
	return Features{
		Volume:     RMS(samples),
		ZCR:        zcr,
		PitchHz:    PitchFromZCR(zcr, sampleRate),
		CentroidHz: SpectralCentroid(Magnitudes(samples), sampleRate, len(samples)),
	}
}
