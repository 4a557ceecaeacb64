// Package transcription turns captured speech segments into text.
package transcription

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/square-key-labs/strawgo-lisa/src/fallback"
)

// Segment is one VAD-bounded stretch of mono 16-bit audio
type Segment struct {
	PCM        []int16
	SampleRate int
}

// Duration of the segment
func (s Segment) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(int64(len(s.PCM)) * int64(time.Second) / int64(s.SampleRate))
}

// Transcript is a provider's result
type Transcript struct {
	Text       string
	Confidence float64
}

// Transcriber is a speech provider. Failures carry voiceerr kinds
// ProviderUnavailable or ProviderError.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, seg Segment) (Transcript, error)
}

// Chain tries transcribers in the order the caller gave them
type Chain struct {
	providers []Transcriber
	timeout   time.Duration
}

// NewChain creates a chain with a per-provider timeout
func NewChain(timeout time.Duration, providers ...Transcriber) *Chain {
	return &Chain{providers: providers, timeout: timeout}
}

func (c *Chain) Name() string {
	return "chain"
}

// Transcribe returns the first provider's success
func (c *Chain) Transcribe(ctx context.Context, seg Segment) (Transcript, error) {
	attempts := make([]fallback.Attempt[Transcript], 0, len(c.providers))
	for _, p := range c.providers {
		p := p
		attempts = append(attempts, fallback.Attempt[Transcript]{
			Name: p.Name(),
			Run: func(ctx context.Context) (Transcript, error) {
				return p.Transcribe(ctx, seg)
			},
		})
	}
	t, _, err := fallback.First(ctx, c.timeout, attempts...)
	return t, err
}

// EncodeWAV wraps mono 16-bit PCM in a RIFF/WAVE container
func EncodeWAV(pcm []int16, sampleRate int) []byte {
	const headerSize = 44
	dataSize := len(pcm) * 2
	buf := make([]byte, headerSize+dataSize)

	copy(buf[0:], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], uint32(36+dataSize))
	copy(buf[8:], "WAVE")
	copy(buf[12:], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:], 1)  // PCM
	binary.LittleEndian.PutUint16(buf[22:], 1)  // mono
	binary.LittleEndian.PutUint32(buf[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:], 2)
	binary.LittleEndian.PutUint16(buf[34:], 16)
	copy(buf[36:], "data")
	binary.LittleEndian.PutUint32(buf[40:], uint32(dataSize))

	for i, s := range pcm {
		binary.LittleEndian.PutUint16(buf[headerSize+i*2:], uint16(s))
	}
	return buf
}
