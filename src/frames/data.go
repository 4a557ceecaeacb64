package frames

import (
	"fmt"

	"github.com/square-key-labs/strawgo-lisa/src/dialog"
)

// DataFrame is the base for ordered payload frames
type DataFrame struct {
	*BaseFrame
}

func (f *DataFrame) Category() FrameCategory {
	return DataCategory
}

func newDataFrame(name string) *DataFrame {
	return &DataFrame{BaseFrame: NewBaseFrame(name)}
}

// MetaVADSpeaking is set on decoded audio by the VAD stage. True while the
// detector is speaking or stopping, so downstream stages can cut segments in
// data order.
const MetaVADSpeaking = "vad_speaking"

// AudioFrame carries raw inbound audio. Codec is "linear16" once decoded.
type AudioFrame struct {
	*DataFrame
	Data       []byte
	SampleRate int
	Channels   int
	Codec      string
}

func NewAudioFrame(data []byte, sampleRate, channels int) *AudioFrame {
	return &AudioFrame{
		DataFrame:  newDataFrame("AudioFrame"),
		Data:       data,
		SampleRate: sampleRate,
		Channels:   channels,
		Codec:      "linear16",
	}
}

// TranscriptionFrame carries an interim or final transcript
type TranscriptionFrame struct {
	*DataFrame
	Text       string
	IsFinal    bool
	Confidence float64
}

func NewTranscriptionFrame(text string, isFinal bool) *TranscriptionFrame {
	return &TranscriptionFrame{
		DataFrame:  newDataFrame("TranscriptionFrame"),
		Text:       text,
		IsFinal:    isFinal,
		Confidence: 1,
	}
}

// Speaking reports the VAD flag, false when the frame was never analyzed
func (f *AudioFrame) Speaking() bool {
	v, _ := f.Metadata()[MetaVADSpeaking].(bool)
	return v
}

func (f *TranscriptionFrame) String() string {
	return fmt.Sprintf("%s(final=%t, %q)", f.Name(), f.IsFinal, f.Text)
}

// TextFrame carries typed user input, treated as a final utterance
type TextFrame struct {
	*DataFrame
	Text string
}

func NewTextFrame(text string) *TextFrame {
	return &TextFrame{DataFrame: newDataFrame("TextFrame"), Text: text}
}

// ResponseFrame carries an engine response toward the client
type ResponseFrame struct {
	*DataFrame
	Response dialog.Response
}

func NewResponseFrame(resp dialog.Response) *ResponseFrame {
	return &ResponseFrame{DataFrame: newDataFrame("ResponseFrame"), Response: resp}
}

// VolumeFrame reports the smoothed input level for UI meters
type VolumeFrame struct {
	*DataFrame
	Volume  float64
	Average float64
}

func NewVolumeFrame(volume, average float64) *VolumeFrame {
	return &VolumeFrame{DataFrame: newDataFrame("VolumeFrame"), Volume: volume, Average: average}
}
