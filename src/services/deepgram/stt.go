package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/square-key-labs/strawgo-lisa/src/frames"
	"github.com/square-key-labs/strawgo-lisa/src/processors"
	"github.com/square-key-labs/strawgo-lisa/src/services"
	"github.com/square-key-labs/strawgo-lisa/src/voiceerr"
)

const defaultStreamURL = "wss://api.deepgram.com/v1/listen"

var _ services.STTService = (*STTService)(nil)

// STTService streams decoded audio to Deepgram and pushes interim and final
// TranscriptionFrames downstream.
type STTService struct {
	*processors.BaseProcessor
	apiKey     string
	language   string
	model      string
	sampleRate int
	streamURL  string
	dialer     *websocket.Dialer

	// set once credentials are known to be missing, audio then passes through
	disabled bool

	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	connMu sync.Mutex // Protects concurrent WebSocket writes and conn swaps
}

// STTConfig holds configuration for Deepgram
type STTConfig struct {
	APIKey     string
	Language   string // e.g., "en-US"
	Model      string // e.g., "nova-2"
	SampleRate int    // rate of the linear16 audio the decoder produces
	StreamURL  string
}

// NewSTTService creates a new Deepgram STT service
func NewSTTService(config STTConfig) *STTService {
	if config.Model == "" {
		config.Model = "nova-2"
	}
	if config.Language == "" {
		config.Language = "en-US"
	}
	if config.SampleRate <= 0 {
		config.SampleRate = 16000
	}
	if config.StreamURL == "" {
		config.StreamURL = defaultStreamURL
	}
	ds := &STTService{
		apiKey:     config.APIKey,
		language:   config.Language,
		model:      config.Model,
		sampleRate: config.SampleRate,
		streamURL:  config.StreamURL,
		dialer:     websocket.DefaultDialer,
	}
	ds.BaseProcessor = processors.NewBaseProcessor("DeepgramSTT", ds)
	return ds
}

func (s *STTService) SetLanguage(lang string) {
	s.language = lang
}

func (s *STTService) SetModel(model string) {
	s.model = model
}

func (s *STTService) Initialize(ctx context.Context) error {
	if s.apiKey == "" {
		return voiceerr.Unavailable("deepgram", "DEEPGRAM_API_KEY not set")
	}

	params := url.Values{}
	params.Set("language", s.language)
	params.Set("model", s.model)
	params.Set("encoding", "linear16")
	params.Set("sample_rate", strconv.Itoa(s.sampleRate))
	params.Set("channels", "1")
	params.Set("interim_results", "true")
	params.Set("smart_format", "true")

	header := map[string][]string{
		"Authorization": {fmt.Sprintf("Token %s", s.apiKey)},
	}

	conn, _, err := s.dialer.DialContext(ctx, s.streamURL+"?"+params.Encode(), header)
	if err != nil {
		return voiceerr.ProviderFailure("deepgram", fmt.Errorf("connect: %w", err))
	}

	s.connMu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.conn = conn
	s.connMu.Unlock()

	go s.receiveTranscriptions(s.ctx, conn)
	go s.keepaliveTask(s.ctx)

	s.Logger().Info("Connected (model=%s, %d Hz)", s.model, s.sampleRate)
	return nil
}

func (s *STTService) Cleanup() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.conn != nil {
		_ = s.conn.WriteJSON(map[string]string{"type": "CloseStream"})
		s.conn.Close()
		s.conn = nil
	}
	return nil
}

func (s *STTService) connected() bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn != nil
}

func (s *STTService) write(messageType int, data []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("not connected")
	}
	return s.conn.WriteMessage(messageType, data)
}

func (s *STTService) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	switch f := frame.(type) {
	case *frames.StartFrame:
		if f.SampleRate > 0 {
			s.sampleRate = f.SampleRate
		}
		// lazy connect on first audio
		return s.PushFrame(frame, direction)

	case *frames.EndFrame, *frames.CancelFrame:
		s.Logger().Debug("Closing stream")
		if err := s.Cleanup(); err != nil {
			s.Logger().Warn("Error during cleanup: %v", err)
		}
		return s.PushFrame(frame, direction)

	case *frames.InterruptionFrame:
		// flush the current utterance so stale fragments do not arrive late
		if s.connected() {
			msg, _ := json.Marshal(map[string]string{"type": "Finalize"})
			if err := s.write(websocket.TextMessage, msg); err != nil {
				s.Logger().Warn("Error sending finalize: %v", err)
			}
		}
		return s.PushFrame(frame, direction)

	case *frames.AudioFrame:
		if direction != frames.Downstream {
			return s.PushFrame(frame, direction)
		}
		if s.disabled {
			return s.PushFrame(frame, direction)
		}
		if !s.connected() {
			if err := s.Initialize(ctx); err != nil {
				s.disabled = voiceerr.Is(err, voiceerr.KindProviderUnavailable)
				s.Logger().Error("Failed to initialize: %v", err)
				_ = s.PushFrame(frames.NewErrorFrame(err), frames.Upstream)
				return s.PushFrame(frame, direction)
			}
		}
		if err := s.write(websocket.BinaryMessage, f.Data); err != nil {
			s.Logger().Warn("Error sending audio, reconnecting: %v", err)
			_ = s.Cleanup()
			if rerr := s.Initialize(ctx); rerr != nil {
				_ = s.PushFrame(frames.NewErrorFrame(rerr), frames.Upstream)
			} else if err := s.write(websocket.BinaryMessage, f.Data); err != nil {
				_ = s.PushFrame(frames.NewErrorFrame(err), frames.Upstream)
			}
		}
		// audio continues for barge-in qualification
		return s.PushFrame(frame, direction)
	}

	return s.PushFrame(frame, direction)
}

type streamResult struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// parseResult turns one Deepgram message into a transcription frame, or nil
func parseResult(message []byte) (*frames.TranscriptionFrame, error) {
	var r streamResult
	if err := json.Unmarshal(message, &r); err != nil {
		return nil, err
	}
	if r.Type != "" && r.Type != "Results" {
		return nil, nil
	}
	if len(r.Channel.Alternatives) == 0 {
		return nil, nil
	}
	alt := r.Channel.Alternatives[0]
	text := strings.TrimSpace(alt.Transcript)
	if text == "" {
		return nil, nil
	}
	tf := frames.NewTranscriptionFrame(text, r.IsFinal)
	tf.Confidence = alt.Confidence
	return tf, nil
}

func (s *STTService) receiveTranscriptions(ctx context.Context, conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil ||
				websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				strings.Contains(err.Error(), "use of closed network connection") {
				s.Logger().Debug("Connection closed")
				return
			}
			s.Logger().Error("Error reading message: %v", err)
			_ = s.PushFrame(frames.NewErrorFrame(voiceerr.ProviderFailure("deepgram", err)), frames.Upstream)
			return
		}

		tf, err := parseResult(message)
		if err != nil {
			s.Logger().Warn("Error parsing response: %v", err)
			continue
		}
		if tf == nil {
			continue
		}
		s.Logger().Debug("Transcription (final=%v, conf=%.2f): %s", tf.IsFinal, tf.Confidence, tf.Text)
		_ = s.PushFrame(tf, frames.Downstream)
	}
}

func (s *STTService) keepaliveTask(ctx context.Context) {
	// Deepgram closes idle streams after ~10 seconds
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	keepalive, _ := json.Marshal(map[string]string{"type": "KeepAlive"})
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.write(websocket.TextMessage, keepalive); err != nil {
				s.Logger().Debug("Keepalive stopped: %v", err)
				return
			}
		}
	}
}
