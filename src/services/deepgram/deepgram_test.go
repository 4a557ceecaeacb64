package deepgram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/square-key-labs/strawgo-lisa/src/transcription"
	"github.com/square-key-labs/strawgo-lisa/src/voiceerr"
)

func TestParseResult(t *testing.T) {
	tf, err := parseResult([]byte(`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":" show me orders ","confidence":0.93}]}}`))
	require.NoError(t, err)
	require.NotNil(t, tf)
	assert.Equal(t, "show me orders", tf.Text)
	assert.True(t, tf.IsFinal)
	assert.InDelta(t, 0.93, tf.Confidence, 1e-9)

	tf, err = parseResult([]byte(`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"","confidence":0}]}}`))
	require.NoError(t, err)
	assert.Nil(t, tf)

	tf, err = parseResult([]byte(`{"type":"Metadata"}`))
	require.NoError(t, err)
	assert.Nil(t, tf)

	_, err = parseResult([]byte(`not json`))
	assert.Error(t, err)
}

func TestTranscriberWithoutKey(t *testing.T) {
	_, err := NewTranscriber(TranscriberConfig{}).Transcribe(context.Background(), transcription.Segment{})
	assert.True(t, voiceerr.Is(err, voiceerr.KindProviderUnavailable))
}

func TestTranscriberPostsWAV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token dg", r.Header.Get("Authorization"))
		assert.Equal(t, "audio/wav", r.Header.Get("Content-Type"))
		assert.Equal(t, "nova-2", r.URL.Query().Get("model"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "RIFF", string(body[:4]))
		_, _ = w.Write([]byte(`{"results":{"channels":[{"alternatives":[{"transcript":"hello","confidence":0.88}]}]}}`))
	}))
	defer srv.Close()

	tr := NewTranscriber(TranscriberConfig{APIKey: "dg", ListenURL: srv.URL})
	out, err := tr.Transcribe(context.Background(), transcription.Segment{PCM: make([]int16, 160), SampleRate: 16000})
	require.NoError(t, err)
	assert.Equal(t, "hello", out.Text)
	assert.InDelta(t, 0.88, out.Confidence, 1e-9)
}

func TestTranscriberBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewTranscriber(TranscriberConfig{APIKey: "dg", ListenURL: srv.URL}).
		Transcribe(context.Background(), transcription.Segment{SampleRate: 16000})
	assert.True(t, voiceerr.Is(err, voiceerr.KindProviderError))
}
