package audio

import (
	"context"
	"fmt"

	"github.com/square-key-labs/strawgo-lisa/src/audio/dsp"
	"github.com/square-key-labs/strawgo-lisa/src/frames"
	"github.com/square-key-labs/strawgo-lisa/src/processors"
)

// DecoderProcessor normalizes inbound audio to mono linear16 at the pipeline
// rate so the VAD and STT stages only ever see one format.
type DecoderProcessor struct {
	*processors.BaseProcessor
	outputRate int

	codec      string
	inputRate  int
	channels   int
	opus       *OpusDecoder
	opusConfig [2]int
}

// DecoderConfig holds configuration for inbound audio decoding
type DecoderConfig struct {
	OutputSampleRate int    // rate handed to VAD/STT (default 16000)
	InputCodec       string // initial codec until an AudioFormatFrame says otherwise
	InputSampleRate  int
	Channels         int
}

// NewDecoderProcessor creates a new audio decoder
func NewDecoderProcessor(config DecoderConfig) *DecoderProcessor {
	if config.OutputSampleRate <= 0 {
		config.OutputSampleRate = 16000
	}
	if config.InputSampleRate <= 0 {
		config.InputSampleRate = config.OutputSampleRate
	}
	if config.Channels <= 0 {
		config.Channels = 1
	}
	p := &DecoderProcessor{
		outputRate: config.OutputSampleRate,
		codec:      NormalizeCodecName(config.InputCodec),
		inputRate:  config.InputSampleRate,
		channels:   config.Channels,
	}
	p.BaseProcessor = processors.NewBaseProcessor("AudioDecoder", p)
	return p
}

func (p *DecoderProcessor) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	switch f := frame.(type) {
	case *frames.AudioFormatFrame:
		p.codec = NormalizeCodecName(f.Codec)
		if f.SampleRate > 0 {
			p.inputRate = f.SampleRate
		}
		p.channels = f.Channels
		p.Logger().Info("Input format: %s %d Hz, %d ch", p.codec, p.inputRate, p.channels)
		return p.PushFrame(frame, direction)

	case *frames.AudioFrame:
		if direction != frames.Downstream {
			return p.PushFrame(frame, direction)
		}
		out, err := p.decode(f)
		if err != nil {
			p.Logger().Warn("Dropping audio frame: %v", err)
			return p.PushFrame(frames.NewErrorFrame(err), frames.Upstream)
		}
		return p.PushFrame(out, direction)
	}

	return p.PushFrame(frame, direction)
}

func (p *DecoderProcessor) decode(f *frames.AudioFrame) (*frames.AudioFrame, error) {
	codec := p.codec
	if f.Codec != "" && NormalizeCodecName(f.Codec) != CodecLinear16 {
		codec = NormalizeCodecName(f.Codec)
	}
	rate := p.inputRate
	if f.SampleRate > 0 {
		rate = f.SampleRate
	}
	channels := p.channels
	if f.Channels > 0 {
		channels = f.Channels
	}

	var pcm []int16
	var err error
	if codec == CodecOpus {
		// decode straight to the output rate, Opus resamples internally
		pcm, err = p.decodeOpus(f.Data, channels)
		rate = p.outputRate
	} else {
		pcm, err = DecodeToPCM(codec, f.Data)
	}
	if err != nil {
		return nil, err
	}

	pcm = DownmixToMono(pcm, channels)
	pcm = Resample(pcm, rate, p.outputRate)

	out := frames.NewAudioFrame(dsp.PCM16ToBytes(pcm), p.outputRate, 1)
	out.SetMetadata("original_codec", codec)
	return out, nil
}

func (p *DecoderProcessor) decodeOpus(packet []byte, channels int) ([]int16, error) {
	want := [2]int{p.outputRate, channels}
	if p.opus == nil || p.opusConfig != want {
		dec, err := NewOpusDecoder(p.outputRate, channels)
		if err != nil {
			return nil, fmt.Errorf("init opus: %w", err)
		}
		p.opus = dec
		p.opusConfig = want
	}
	return p.opus.Decode(packet)
}
