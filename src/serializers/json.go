package serializers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/square-key-labs/strawgo-lisa/src/dialog"
	"github.com/square-key-labs/strawgo-lisa/src/frames"
)

// Inbound message types
const (
	MsgUtterance   = "utterance"
	MsgInterrupt   = "interrupt"
	MsgStart       = "start"
	MsgEnd         = "end"
	MsgPlayback    = "playback"
	MsgAudioFormat = "audio_format"
	MsgAudio       = "audio"
)

// Outbound message types
const (
	MsgResponse     = "response"
	MsgVAD          = "vad"
	MsgVolume       = "volume"
	MsgTranscript   = "transcript"
	MsgInterruption = "interruption"
	MsgError        = "error"
)

// Message is one JSON message of the LISA client protocol. Binary websocket
// messages carry raw audio in the announced format instead.
type Message struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`

	// utterance / transcript
	Text    string `json:"text,omitempty"`
	IsFinal *bool  `json:"isFinal,omitempty"`

	// playback / vad
	Playing  *bool `json:"playing,omitempty"`
	Speaking *bool `json:"speaking,omitempty"`

	// audio_format / audio
	Codec      string `json:"codec,omitempty"`
	SampleRate int    `json:"sampleRate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
	Audio      string `json:"audio,omitempty"` // base64

	// volume
	Volume  *float64 `json:"volume,omitempty"`
	Average *float64 `json:"average,omitempty"`

	Response *dialog.Response `json:"response,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// JSONSerializer speaks the browser client protocol: JSON text messages for
// events and binary messages for microphone audio.
type JSONSerializer struct {
	mu         sync.RWMutex
	sessionID  string
	sampleRate int
	channels   int
}

// NewJSONSerializer creates a serializer. sampleRate labels binary audio until
// the client announces its format.
func NewJSONSerializer(sampleRate int) *JSONSerializer {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &JSONSerializer{sampleRate: sampleRate, channels: 1}
}

func (s *JSONSerializer) Type() SerializerType {
	return SerializerTypeText
}

// Setup picks up the session id so outbound messages can carry it
func (s *JSONSerializer) Setup(frame frames.Frame) error {
	if start, ok := frame.(*frames.StartFrame); ok {
		s.mu.Lock()
		s.sessionID = start.SessionID
		s.mu.Unlock()
	}
	return nil
}

func (s *JSONSerializer) session() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Serialize converts outbound frames to JSON text
func (s *JSONSerializer) Serialize(frame frames.Frame) (any, error) {
	msg := Message{SessionID: s.session()}

	switch f := frame.(type) {
	case *frames.ResponseFrame:
		resp := f.Response
		msg.Type = MsgResponse
		msg.Response = &resp
	case *frames.UserStartedSpeakingFrame:
		msg.Type = MsgVAD
		msg.Speaking = boolPtr(true)
	case *frames.UserStoppedSpeakingFrame:
		msg.Type = MsgVAD
		msg.Speaking = boolPtr(false)
	case *frames.VolumeFrame:
		msg.Type = MsgVolume
		msg.Volume = &f.Volume
		msg.Average = &f.Average
	case *frames.TranscriptionFrame:
		msg.Type = MsgTranscript
		msg.Text = f.Text
		msg.IsFinal = boolPtr(f.IsFinal)
	case *frames.InterruptionFrame:
		msg.Type = MsgInterruption
	case *frames.ErrorFrame:
		msg.Type = MsgError
		if f.Error != nil {
			msg.Error = f.Error.Error()
		}
	default:
		return nil, nil
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s message: %w", msg.Type, err)
	}
	return string(data), nil
}

// Deserialize converts a client message to a frame
func (s *JSONSerializer) Deserialize(data any) (frames.Frame, error) {
	switch v := data.(type) {
	case []byte:
		if len(v) == 0 {
			return nil, nil
		}
		return s.audioFrame(v), nil
	case string:
		return s.decodeText([]byte(v))
	default:
		return nil, fmt.Errorf("unsupported message payload %T", data)
	}
}

func (s *JSONSerializer) decodeText(raw []byte) (frames.Frame, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal client message: %w", err)
	}

	switch msg.Type {
	case MsgUtterance:
		// typed input and final transcripts are complete turns
		if msg.IsFinal == nil || *msg.IsFinal {
			return frames.NewTextFrame(msg.Text), nil
		}
		return frames.NewTranscriptionFrame(msg.Text, false), nil

	case MsgInterrupt:
		return frames.NewInterruptionFrame(), nil

	case MsgStart:
		return frames.NewStartConversationFrame(), nil

	case MsgEnd:
		return frames.NewEndConversationFrame(), nil

	case MsgPlayback:
		if msg.Playing != nil && *msg.Playing {
			return frames.NewBotStartedSpeakingFrame(), nil
		}
		return frames.NewBotStoppedSpeakingFrame(), nil

	case MsgAudioFormat:
		s.mu.Lock()
		if msg.SampleRate > 0 {
			s.sampleRate = msg.SampleRate
		}
		if msg.Channels > 0 {
			s.channels = msg.Channels
		}
		s.mu.Unlock()
		return frames.NewAudioFormatFrame(msg.Codec, msg.SampleRate, msg.Channels), nil

	case MsgAudio:
		pcm, err := base64.StdEncoding.DecodeString(msg.Audio)
		if err != nil {
			return nil, fmt.Errorf("invalid audio payload: %w", err)
		}
		if len(pcm) == 0 {
			return nil, nil
		}
		return s.audioFrame(pcm), nil

	default:
		return nil, nil
	}
}

func (s *JSONSerializer) audioFrame(data []byte) *frames.AudioFrame {
	s.mu.RLock()
	rate, channels := s.sampleRate, s.channels
	s.mu.RUnlock()
	// the decoder stage applies the announced codec
	f := frames.NewAudioFrame(data, rate, channels)
	f.Codec = ""
	return f
}

func boolPtr(b bool) *bool {
	return &b
}
