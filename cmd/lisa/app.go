package main

import (
	"context"
	"fmt"
	"time"

	"github.com/square-key-labs/strawgo-lisa/src/actions"
	"github.com/square-key-labs/strawgo-lisa/src/audio"
	"github.com/square-key-labs/strawgo-lisa/src/audio/vad"
	"github.com/square-key-labs/strawgo-lisa/src/compose"
	"github.com/square-key-labs/strawgo-lisa/src/config"
	"github.com/square-key-labs/strawgo-lisa/src/conversation"
	"github.com/square-key-labs/strawgo-lisa/src/frames"
	"github.com/square-key-labs/strawgo-lisa/src/intent"
	"github.com/square-key-labs/strawgo-lisa/src/interruptions"
	"github.com/square-key-labs/strawgo-lisa/src/logger"
	"github.com/square-key-labs/strawgo-lisa/src/processors"
	"github.com/square-key-labs/strawgo-lisa/src/services"
	"github.com/square-key-labs/strawgo-lisa/src/services/deepgram"
	"github.com/square-key-labs/strawgo-lisa/src/services/gemini"
	"github.com/square-key-labs/strawgo-lisa/src/services/openai"
	"github.com/square-key-labs/strawgo-lisa/src/store"
	"github.com/square-key-labs/strawgo-lisa/src/transcription"
	"github.com/square-key-labs/strawgo-lisa/src/transports"
)

// minSegment is the shortest VAD segment worth a batch transcription
const minSegment = 300 * time.Millisecond

// app holds the process-wide collaborators shared by every session
type app struct {
	cfg    config.Config
	store  store.Store
	engine *conversation.Engine
	log    *logger.Logger
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return config.Config{}, err
	}
	logger.Configure(logger.Options{Level: cfg.Log.Level, EnableColors: cfg.Log.Color})
	return cfg, nil
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	log := logger.WithPrefix("LISA")

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	timeout := cfg.Providers.Timeout()
	var classifiers []intent.Classifier
	var generators []compose.Generator
	for _, llm := range chatProviders(cfg.Providers, log) {
		classifiers = append(classifiers, intent.NewLLMClassifier(llm))
		generators = append(generators, compose.NewLLMGenerator(llm))
	}
	chain := intent.NewChain(timeout, classifiers...)
	log.Info("Intent providers: %v", chain.Providers())

	engine := conversation.NewEngine(
		conversation.OptionsFromConfig(cfg.Conversation),
		conversation.NewSessionStore(cfg.Conversation.MaxHistory),
		chain,
		compose.NewComposer(timeout, cfg.Conversation.ResponseStyle, generators...),
		actions.NewExecutor(st, timeout),
	)

	return &app{cfg: cfg, store: st, engine: engine, log: log}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// chatProviders builds the language models in configured order
func chatProviders(p config.Providers, log *logger.Logger) []services.ChatCompleter {
	var out []services.ChatCompleter
	for _, name := range p.Order {
		switch name {
		case "gemini":
			out = append(out, gemini.NewLLMService(gemini.LLMConfig{
				ClientConfig: geminiClient(p.Gemini),
				Model:        p.Gemini.Model,
			}))
		case "openai":
			out = append(out, openai.NewLLMService(openai.LLMConfig{
				APIKey:  p.OpenAI.APIKey,
				Model:   p.OpenAI.Model,
				BaseURL: p.OpenAI.BaseURL,
			}))
		default:
			log.Warn("Unknown provider %q ignored", name)
		}
	}
	return out
}

func geminiClient(g config.Gemini) gemini.ClientConfig {
	return gemini.ClientConfig{APIKey: g.APIKey, Project: g.Project, Location: g.Location}
}

func vadParams(c config.VAD) vad.Params {
	p := vad.DefaultParams()
	p.VolumeThreshold = c.VolumeThreshold
	p.MinPitchHz = c.MinPitchHz
	p.MaxPitchHz = c.MaxPitchHz
	p.MinCentroidHz = c.MinCentroidHz
	p.MaxCentroidHz = c.MaxCentroidHz
	p.MaxCentroidRatio = c.MaxCentroidRatio
	p.MinSpeechDuration = time.Duration(c.MinSpeechDurationMs) * time.Millisecond
	p.MaxSilenceDuration = time.Duration(c.MaxSilenceDurationMs) * time.Millisecond
	p.FrameDuration = time.Duration(c.FrameDurationMs) * time.Millisecond
	return p
}

// transcribers are the batch providers, tried in order
func (a *app) transcribers() *transcription.Chain {
	p := a.cfg.Providers
	var providers []transcription.Transcriber
	if p.Deepgram.APIKey != "" {
		providers = append(providers, deepgram.NewTranscriber(deepgram.TranscriberConfig{
			APIKey:   p.Deepgram.APIKey,
			Model:    p.Deepgram.Model,
			Language: p.Deepgram.Language,
		}))
	}
	providers = append(providers, gemini.NewTranscriber(geminiClient(p.Gemini), p.Gemini.Model))
	return transcription.NewChain(p.Timeout(), providers...)
}

// pipelineFactory builds decoder -> VAD -> STT -> conversation for one
// connection
func (a *app) pipelineFactory() transports.PipelineFactory {
	rate := a.cfg.Server.SampleRate
	return func(sessionID string) ([]processors.FrameProcessor, error) {
		procs := []processors.FrameProcessor{
			audio.NewDecoderProcessor(audio.DecoderConfig{OutputSampleRate: rate}),
			vad.NewVADInputProcessor(vad.NewDetector(rate, vadParams(a.cfg.VAD))),
		}

		mode := a.cfg.Providers.STTMode
		if mode == config.STTStreaming && a.cfg.Providers.Deepgram.APIKey == "" {
			logger.ForSession("LISA", sessionID).Debug("No Deepgram key, using batch transcription")
			mode = config.STTBatch
		}
		switch mode {
		case config.STTStreaming:
			procs = append(procs, deepgram.NewSTTService(deepgram.STTConfig{
				APIKey:     a.cfg.Providers.Deepgram.APIKey,
				Model:      a.cfg.Providers.Deepgram.Model,
				Language:   a.cfg.Providers.Deepgram.Language,
				SampleRate: rate,
			}))
		case config.STTBatch:
			procs = append(procs, transcription.NewSegmentProcessor(a.transcribers(), minSegment))
		}

		if a.cfg.Debug.LogFrames {
			procs = append(procs, processors.NewFrameLogger(processors.FrameLoggerConfig{
				Prefix:            "In",
				IgnoredFrameTypes: []frames.Frame{&frames.AudioFrame{}, &frames.VolumeFrame{}},
				LogFrameDetails:   true,
			}))
		}
		return append(procs, conversation.NewProcessor(a.engine)), nil
	}
}

// strategies builds fresh barge-in strategies for one connection
func (a *app) strategies() []interruptions.InterruptionStrategy {
	var out []interruptions.InterruptionStrategy
	for _, name := range a.cfg.Conversation.InterruptOn {
		switch name {
		case config.InterruptWords:
			out = append(out, interruptions.NewMinWordsInterruptionStrategy(a.cfg.Conversation.InterruptMinWords))
		case config.InterruptVolume:
			out = append(out, interruptions.NewVolumeInterruptionStrategy(&interruptions.VolumeInterruptionStrategyParams{
				Threshold:  a.cfg.VAD.VolumeThreshold,
				WindowSize: 10,
				MinFrames:  3,
			}))
		case config.InterruptVoice:
			out = append(out, interruptions.NewVADBasedInterruptionStrategy(&interruptions.VADBasedInterruptionStrategyParams{
				MinDuration:     time.Duration(a.cfg.VAD.MinSpeechDurationMs) * time.Millisecond,
				EnergyThreshold: a.cfg.VAD.VolumeThreshold,
				ZeroCrossRate:   0.02,
			}))
		}
	}
	return out
}
