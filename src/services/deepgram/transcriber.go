package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/square-key-labs/strawgo-lisa/src/transcription"
	"github.com/square-key-labs/strawgo-lisa/src/voiceerr"
)

const defaultListenURL = "https://api.deepgram.com/v1/listen"

// Transcriber uses the pre-recorded endpoint for one captured segment
type Transcriber struct {
	apiKey    string
	model     string
	language  string
	listenURL string
	client    *http.Client
}

// TranscriberConfig holds configuration for batch transcription
type TranscriberConfig struct {
	APIKey     string
	Model      string
	Language   string
	ListenURL  string
	HTTPClient *http.Client
}

// NewTranscriber creates a batch Deepgram transcriber
func NewTranscriber(config TranscriberConfig) *Transcriber {
	if config.Model == "" {
		config.Model = "nova-2"
	}
	if config.Language == "" {
		config.Language = "en-US"
	}
	if config.ListenURL == "" {
		config.ListenURL = defaultListenURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Transcriber{
		apiKey:    config.APIKey,
		model:     config.Model,
		language:  config.Language,
		listenURL: config.ListenURL,
		client:    config.HTTPClient,
	}
}

func (t *Transcriber) Name() string {
	return "deepgram"
}

type prerecordedResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (t *Transcriber) Transcribe(ctx context.Context, seg transcription.Segment) (transcription.Transcript, error) {
	if t.apiKey == "" {
		return transcription.Transcript{}, voiceerr.Unavailable(t.Name(), "DEEPGRAM_API_KEY not set")
	}

	params := url.Values{}
	params.Set("model", t.model)
	params.Set("language", t.language)
	params.Set("smart_format", "true")

	wav := transcription.EncodeWAV(seg.PCM, seg.SampleRate)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.listenURL+"?"+params.Encode(), bytes.NewReader(wav))
	if err != nil {
		return transcription.Transcript{}, err
	}
	req.Header.Set("Authorization", "Token "+t.apiKey)
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := t.client.Do(req)
	if err != nil {
		return transcription.Transcript{}, fmt.Errorf("deepgram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return transcription.Transcript{}, voiceerr.ProviderFailure(t.Name(),
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	var out prerecordedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return transcription.Transcript{}, voiceerr.ProviderFailure(t.Name(), fmt.Errorf("decode response: %w", err))
	}
	if len(out.Results.Channels) == 0 || len(out.Results.Channels[0].Alternatives) == 0 {
		return transcription.Transcript{}, voiceerr.ProviderFailure(t.Name(), fmt.Errorf("no alternatives"))
	}
	alt := out.Results.Channels[0].Alternatives[0]
	return transcription.Transcript{Text: strings.TrimSpace(alt.Transcript), Confidence: alt.Confidence}, nil
}
