package serializers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/square-key-labs/strawgo-lisa/src/dialog"
	"github.com/square-key-labs/strawgo-lisa/src/frames"
)

func TestDeserializeClientEvents(t *testing.T) {
	s := NewJSONSerializer(16000)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"final utterance", `{"type":"utterance","text":"show me orders","isFinal":true}`, "TextFrame"},
		{"typed text", `{"type":"utterance","text":"hello"}`, "TextFrame"},
		{"interim", `{"type":"utterance","text":"show me","isFinal":false}`, "TranscriptionFrame"},
		{"interrupt", `{"type":"interrupt"}`, "InterruptionFrame"},
		{"start", `{"type":"start"}`, "StartConversationFrame"},
		{"end", `{"type":"end"}`, "EndConversationFrame"},
		{"playback started", `{"type":"playback","playing":true}`, "BotStartedSpeakingFrame"},
		{"playback stopped", `{"type":"playback","playing":false}`, "BotStoppedSpeakingFrame"},
		{"audio format", `{"type":"audio_format","codec":"opus","sampleRate":48000,"channels":1}`, "AudioFormatFrame"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := s.Deserialize(tt.in)
			require.NoError(t, err)
			require.NotNil(t, f)
			assert.Equal(t, tt.want, f.Name())
		})
	}
}

func TestDeserializeUtteranceText(t *testing.T) {
	s := NewJSONSerializer(16000)

	f, err := s.Deserialize(`{"type":"utterance","text":"show me","isFinal":false}`)
	require.NoError(t, err)
	tf, ok := f.(*frames.TranscriptionFrame)
	require.True(t, ok)
	assert.Equal(t, "show me", tf.Text)
	assert.False(t, tf.IsFinal)
}

func TestDeserializeAudioUsesAnnouncedFormat(t *testing.T) {
	s := NewJSONSerializer(16000)

	f, err := s.Deserialize([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	af, ok := f.(*frames.AudioFrame)
	require.True(t, ok)
	assert.Equal(t, 16000, af.SampleRate)
	assert.Empty(t, af.Codec)

	_, err = s.Deserialize(`{"type":"audio_format","codec":"mulaw","sampleRate":8000,"channels":1}`)
	require.NoError(t, err)

	payload := base64.StdEncoding.EncodeToString([]byte{0xff, 0x7f})
	f, err = s.Deserialize(`{"type":"audio","audio":"` + payload + `"}`)
	require.NoError(t, err)
	af, ok = f.(*frames.AudioFrame)
	require.True(t, ok)
	assert.Equal(t, 8000, af.SampleRate)
	assert.Equal(t, []byte{0xff, 0x7f}, af.Data)
}

func TestDeserializeIgnoresAndRejects(t *testing.T) {
	s := NewJSONSerializer(16000)

	f, err := s.Deserialize(`{"type":"ping"}`)
	assert.NoError(t, err)
	assert.Nil(t, f)

	f, err = s.Deserialize([]byte{})
	assert.NoError(t, err)
	assert.Nil(t, f)

	_, err = s.Deserialize(`{not json`)
	assert.Error(t, err)

	_, err = s.Deserialize(`{"type":"audio","audio":"%%%"}`)
	assert.Error(t, err)

	_, err = s.Deserialize(42)
	assert.Error(t, err)
}

func decode(t *testing.T, data any) Message {
	t.Helper()
	text, ok := data.(string)
	require.True(t, ok, "expected text message, got %T", data)
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(text), &msg))
	return msg
}

func TestSerializeResponse(t *testing.T) {
	s := NewJSONSerializer(16000)
	require.NoError(t, s.Setup(frames.NewStartFrame("abc", 16000)))

	resp := dialog.Response{
		Text:        "I found 3 orders.",
		Action:      "search_orders",
		ShouldSpeak: true,
		Confidence:  0.85,
		Intent:      dialog.IntentSearchOrders,
	}
	data, err := s.Serialize(frames.NewResponseFrame(resp))
	require.NoError(t, err)

	msg := decode(t, data)
	assert.Equal(t, MsgResponse, msg.Type)
	assert.Equal(t, "abc", msg.SessionID)
	require.NotNil(t, msg.Response)
	assert.Equal(t, resp.Text, msg.Response.Text)
	assert.Equal(t, resp.Action, msg.Response.Action)
	assert.Equal(t, resp.Intent, msg.Response.Intent)
}

func TestSerializeEvents(t *testing.T) {
	s := NewJSONSerializer(16000)

	msg := decode(t, must(s.Serialize(frames.NewUserStartedSpeakingFrame())))
	assert.Equal(t, MsgVAD, msg.Type)
	require.NotNil(t, msg.Speaking)
	assert.True(t, *msg.Speaking)

	msg = decode(t, must(s.Serialize(frames.NewUserStoppedSpeakingFrame())))
	require.NotNil(t, msg.Speaking)
	assert.False(t, *msg.Speaking)

	msg = decode(t, must(s.Serialize(frames.NewTranscriptionFrame("hello", true))))
	assert.Equal(t, MsgTranscript, msg.Type)
	assert.Equal(t, "hello", msg.Text)

	msg = decode(t, must(s.Serialize(frames.NewInterruptionFrame())))
	assert.Equal(t, MsgInterruption, msg.Type)

	msg = decode(t, must(s.Serialize(frames.NewErrorFrame(errors.New("stt down")))))
	assert.Equal(t, MsgError, msg.Type)
	assert.Equal(t, "stt down", msg.Error)

	msg = decode(t, must(s.Serialize(frames.NewVolumeFrame(0.4, 0.2))))
	assert.Equal(t, MsgVolume, msg.Type)
	require.NotNil(t, msg.Volume)
	assert.InDelta(t, 0.4, *msg.Volume, 1e-9)

	data, err := s.Serialize(frames.NewAudioFrame([]byte{1, 2}, 16000, 1))
	assert.NoError(t, err)
	assert.Nil(t, data)
}

func must(data any, err error) any {
	if err != nil {
		panic(err)
	}
	return data
}
