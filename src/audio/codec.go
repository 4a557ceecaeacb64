package audio

import (
	"fmt"
	"strings"

	"gopkg.in/hraban/opus.v2"

	"github.com/square-key-labs/strawgo-lisa/src/audio/dsp"
)

// Supported inbound codecs
const (
	CodecLinear16 = "linear16"
	CodecMulaw    = "mulaw"
	CodecAlaw     = "alaw"
	CodecOpus     = "opus"
)

// NormalizeCodecName converts codec name variations to a standard form
func NormalizeCodecName(codec string) string {
	switch strings.ToLower(strings.TrimSpace(codec)) {
	case "mulaw", "ulaw", "pcmu", "g711u":
		return CodecMulaw
	case "alaw", "pcma", "g711a":
		return CodecAlaw
	case "opus":
		return CodecOpus
	case "", "linear16", "pcm", "pcm16", "s16le":
		return CodecLinear16
	default:
		return strings.ToLower(codec)
	}
}

// MulawToPCM decodes G.711 mu-law samples
func MulawToPCM(data []byte) []int16 {
	pcm := make([]int16, len(data))
	for i, b := range data {
		pcm[i] = mulawDecode(b)
	}
	return pcm
}

func mulawDecode(b byte) int16 {
	u := ^b
	exponent := (u >> 4) & 0x07
	mantissa := int32(u & 0x0F)
	sample := ((mantissa << 3) + 0x84) << exponent
	sample -= 0x84
	if u&0x80 != 0 {
		return int16(-sample)
	}
	return int16(sample)
}

// AlawToPCM decodes G.711 A-law samples
func AlawToPCM(data []byte) []int16 {
	pcm := make([]int16, len(data))
	for i, b := range data {
		pcm[i] = alawDecode(b)
	}
	return pcm
}

func alawDecode(b byte) int16 {
	a := b ^ 0x55
	exponent := (a >> 4) & 0x07
	mantissa := int32(a & 0x0F)
	var sample int32
	if exponent == 0 {
		sample = (mantissa << 4) + 8
	} else {
		sample = ((mantissa << 4) + 0x108) << (exponent - 1)
	}
	if a&0x80 != 0 {
		return int16(sample)
	}
	return int16(-sample)
}

// Resample performs linear interpolation resampling
func Resample(input []int16, inputRate, outputRate int) []int16 {
	if inputRate == outputRate || inputRate <= 0 || outputRate <= 0 || len(input) == 0 {
		return input
	}

	ratio := float64(inputRate) / float64(outputRate)
	outputLen := int(float64(len(input)) / ratio)
	output := make([]int16, outputLen)

	for i := range output {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		switch {
		case idx+1 < len(input):
			a, b := float64(input[idx]), float64(input[idx+1])
			output[i] = int16(a + (b-a)*frac)
		case idx < len(input):
			output[i] = input[idx]
		}
	}
	return output
}

// DownmixToMono averages interleaved channels
func DownmixToMono(pcm []int16, channels int) []int16 {
	if channels <= 1 {
		return pcm
	}
	out := make([]int16, len(pcm)/channels)
	for i := range out {
		var sum int32
		for c := 0; c < channels; c++ {
			sum += int32(pcm[i*channels+c])
		}
		out[i] = int16(sum / int32(channels))
	}
	return out
}

// OpusDecoder decodes one Opus packet per call
type OpusDecoder struct {
	dec        *opus.Decoder
	sampleRate int
	channels   int
	buf        []int16
}

// NewOpusDecoder creates a decoder for the given output rate and channel count.
// Opus only decodes to 8, 12, 16, 24 or 48 kHz.
func NewOpusDecoder(sampleRate, channels int) (*OpusDecoder, error) {
	if channels <= 0 {
		channels = 1
	}
	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("opus decoder %d Hz/%d ch: %w", sampleRate, channels, err)
	}
	// 120 ms is the longest Opus frame
	return &OpusDecoder{
		dec:        dec,
		sampleRate: sampleRate,
		channels:   channels,
		buf:        make([]int16, sampleRate*120/1000*channels),
	}, nil
}

// Decode returns interleaved PCM for one packet
func (d *OpusDecoder) Decode(packet []byte) ([]int16, error) {
	n, err := d.dec.Decode(packet, d.buf)
	if err != nil {
		return nil, fmt.Errorf("opus decode: %w", err)
	}
	out := make([]int16, n*d.channels)
	copy(out, d.buf[:n*d.channels])
	return out, nil
}

// DecodeToPCM converts a non-Opus payload into linear16 samples
func DecodeToPCM(codec string, data []byte) ([]int16, error) {
	switch NormalizeCodecName(codec) {
	case CodecLinear16:
		if len(data)%2 != 0 {
			return nil, fmt.Errorf("invalid linear16 payload length: %d", len(data))
		}
		return dsp.BytesToPCM16(data), nil
	case CodecMulaw:
		return MulawToPCM(data), nil
	case CodecAlaw:
		return AlawToPCM(data), nil
	default:
		return nil, fmt.Errorf("unsupported input codec: %s", codec)
	}
}
