package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/square-key-labs/strawgo-lisa/src/transcription"
	"github.com/square-key-labs/strawgo-lisa/src/voiceerr"
)

const transcribePrompt = "Transcribe the speech in this audio exactly. " +
	"Reply with the transcript only. If there is no speech, reply with an empty string."

// Transcriber sends a captured segment to Gemini as inline WAV audio
type Transcriber struct {
	client *lazyClient
	model  string
}

// NewTranscriber creates a Gemini transcriber
func NewTranscriber(config ClientConfig, model string) *Transcriber {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Transcriber{client: &lazyClient{config: config}, model: model}
}

func (t *Transcriber) Name() string {
	return "gemini-stt"
}

func (t *Transcriber) Transcribe(ctx context.Context, seg transcription.Segment) (transcription.Transcript, error) {
	client, err := t.client.get(ctx)
	if err != nil {
		return transcription.Transcript{}, err
	}

	wav := transcription.EncodeWAV(seg.PCM, seg.SampleRate)
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(transcribePrompt),
			genai.NewPartFromBytes(wav, "audio/wav"),
		}, genai.RoleUser),
	}

	resp, err := client.Models.GenerateContent(ctx, t.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return transcription.Transcript{}, voiceerr.ProviderFailure(t.Name(), fmt.Errorf("generate: %w", err))
	}

	// Gemini reports no per-word confidence
	return transcription.Transcript{Text: strings.TrimSpace(resp.Text()), Confidence: 0.8}, nil
}
