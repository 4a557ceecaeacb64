// Package config loads LISA settings from an optional YAML file and the
// environment. Environment values win over the file; the file wins over
// defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server       Server       `yaml:"server"`
	Conversation Conversation `yaml:"conversation"`
	VAD          VAD          `yaml:"vad"`
	Providers    Providers    `yaml:"providers"`
	Store        Store        `yaml:"store"`
	Log          Log          `yaml:"log"`
	Debug        Debug        `yaml:"debug"`
}

type Server struct {
	Port        int    `yaml:"port"`
	Path        string `yaml:"path"`
	ReadTimeout int    `yaml:"readTimeoutSeconds"`
	// SampleRate is the PCM rate the pipeline normalizes inbound audio to.
	SampleRate int `yaml:"sampleRate"`
}

type Conversation struct {
	SilenceTimeoutMs       int     `yaml:"silenceTimeoutMs"`
	MaxConversationMinutes int     `yaml:"maxConversationMinutes"`
	EnableFillerWords      bool    `yaml:"enableFillerWords"`
	EnableThinkingSounds   bool    `yaml:"enableThinkingSounds"`
	ResponseStyle          string  `yaml:"responseStyle"`
	InterimResults         bool    `yaml:"interimResults"`
	InterimFillerMinLength int     `yaml:"interimFillerMinLength"`
	InterimFillerChance    float64 `yaml:"interimFillerChance"`
	MaxHistory             int     `yaml:"maxHistory"`
	IdleTimeoutMinutes     int     `yaml:"idleTimeoutMinutes"`
	SweepIntervalSeconds   int     `yaml:"sweepIntervalSeconds"`
	// InterruptMinWords is the word count a transcript must reach to barge in
	// while the assistant is speaking. 0 disables the word strategy.
	InterruptMinWords int `yaml:"interruptMinWords"`
	// InterimFillerCooldownMs is the minimum gap between two interim
	// acknowledgments.
	InterimFillerCooldownMs int `yaml:"interimFillerCooldownMs"`
	// InterruptOn lists the barge-in strategies: words, volume, voice.
	// Empty means any detected user speech interrupts the assistant.
	InterruptOn []string `yaml:"interruptOn"`
}

type VAD struct {
	VolumeThreshold      float64 `yaml:"volumeThreshold"`
	MinPitchHz           float64 `yaml:"minPitchHz"`
	MaxPitchHz           float64 `yaml:"maxPitchHz"`
	MinCentroidHz        float64 `yaml:"minCentroidHz"`
	MaxCentroidHz        float64 `yaml:"maxCentroidHz"`
	MaxCentroidRatio     float64 `yaml:"maxCentroidRatio"`
	MinSpeechDurationMs  int     `yaml:"minSpeechDurationMs"`
	MaxSilenceDurationMs int     `yaml:"maxSilenceDurationMs"`
	FrameDurationMs      int     `yaml:"frameDurationMs"`
}

type Providers struct {
	TimeoutMs int      `yaml:"timeoutMs"`
	Order     []string `yaml:"order"`
	STTMode   string   `yaml:"sttMode"`
	Gemini    Gemini   `yaml:"gemini"`
	OpenAI    OpenAI   `yaml:"openai"`
	Deepgram  Deepgram `yaml:"deepgram"`
}

type Gemini struct {
	APIKey   string `yaml:"apiKey"`
	Model    string `yaml:"model"`
	Project  string `yaml:"project"`
	Location string `yaml:"location"`
}

type OpenAI struct {
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseURL"`
}

type Deepgram struct {
	APIKey   string `yaml:"apiKey"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

type Store struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type Log struct {
	Level string `yaml:"level"`
	Color bool   `yaml:"color"`
}

type Debug struct {
	Gops      bool `yaml:"gops"`
	LogFrames bool `yaml:"logFrames"`
}

// STT modes
const (
	STTStreaming = "streaming"
	STTBatch     = "batch"
	STTNone      = "none"
)

// Barge-in strategies
const (
	InterruptWords  = "words"
	InterruptVolume = "volume"
	InterruptVoice  = "voice"
)

// Store drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Port:        8080,
			Path:        "/ws",
			ReadTimeout: 120,
			SampleRate:  16000,
		},
		Conversation: Conversation{
			SilenceTimeoutMs:        3000,
			MaxConversationMinutes:  30,
			EnableFillerWords:       true,
			EnableThinkingSounds:    true,
			ResponseStyle:           "friendly",
			InterimResults:          true,
			InterimFillerMinLength:  20,
			InterimFillerChance:     0.3,
			InterimFillerCooldownMs: 4000,
			MaxHistory:              50,
			IdleTimeoutMinutes:      10,
			SweepIntervalSeconds:    60,
			InterruptMinWords:       2,
			InterruptOn:             []string{InterruptWords},
		},
		VAD: VAD{
			VolumeThreshold:      0.02,
			MinPitchHz:           60,
			MaxPitchHz:           500,
			MinCentroidHz:        250,
			MaxCentroidHz:        3000,
			MaxCentroidRatio:     0.18,
			MinSpeechDurationMs:  250,
			MaxSilenceDurationMs: 800,
			FrameDurationMs:      20,
		},
		Providers: Providers{
			TimeoutMs: 8000,
			Order:     []string{"gemini", "openai"},
			STTMode:   STTStreaming,
			Gemini:    Gemini{Model: "gemini-2.5-flash", Location: "us-central1"},
			OpenAI:    OpenAI{Model: "gpt-4o-mini", BaseURL: "https://api.openai.com/v1"},
			Deepgram:  Deepgram{Model: "nova-2", Language: "en-US"},
		},
		Store: Store{Driver: DriverMemory},
		Log:   Log{Level: "INFO", Color: true},
	}
}

// Load reads path (if non-empty), applies environment overrides and validates.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = envIntOr("LISA_PORT", c.Server.Port)
	c.Server.Path = envOr("LISA_WS_PATH", c.Server.Path)

	conv := &c.Conversation
	conv.SilenceTimeoutMs = envIntOr("LISA_SILENCE_TIMEOUT_MS", conv.SilenceTimeoutMs)
	conv.MaxConversationMinutes = envIntOr("LISA_MAX_CONVERSATION_MINUTES", conv.MaxConversationMinutes)
	conv.EnableFillerWords = envBoolOr("LISA_ENABLE_FILLER_WORDS", conv.EnableFillerWords)
	conv.EnableThinkingSounds = envBoolOr("LISA_ENABLE_THINKING_SOUNDS", conv.EnableThinkingSounds)
	conv.ResponseStyle = envOr("LISA_RESPONSE_STYLE", conv.ResponseStyle)
	conv.InterimFillerMinLength = envIntOr("LISA_INTERIM_FILLER_MIN_LENGTH", conv.InterimFillerMinLength)
	conv.InterimFillerCooldownMs = envIntOr("LISA_INTERIM_FILLER_COOLDOWN_MS", conv.InterimFillerCooldownMs)
	conv.MaxHistory = envIntOr("LISA_MAX_HISTORY", conv.MaxHistory)
	conv.IdleTimeoutMinutes = envIntOr("LISA_IDLE_TIMEOUT_MINUTES", conv.IdleTimeoutMinutes)
	conv.InterruptMinWords = envIntOr("LISA_INTERRUPT_MIN_WORDS", conv.InterruptMinWords)
	if raw, ok := os.LookupEnv("LISA_INTERRUPT_ON"); ok {
		conv.InterruptOn = splitCSV(raw)
	}

	p := &c.Providers
	p.TimeoutMs = envIntOr("LISA_PROVIDER_TIMEOUT_MS", p.TimeoutMs)
	if order := splitCSV(os.Getenv("LISA_PROVIDERS")); len(order) > 0 {
		p.Order = order
	}
	p.STTMode = envOr("LISA_STT_MODE", p.STTMode)
	p.Gemini.APIKey = envOr("GEMINI_API_KEY", p.Gemini.APIKey)
	p.Gemini.Model = envOr("GEMINI_MODEL", p.Gemini.Model)
	p.Gemini.Project = envOr("GOOGLE_CLOUD_PROJECT", p.Gemini.Project)
	p.Gemini.Location = envOr("GOOGLE_CLOUD_LOCATION", p.Gemini.Location)
	p.OpenAI.APIKey = envOr("OPENAI_API_KEY", p.OpenAI.APIKey)
	p.OpenAI.Model = envOr("OPENAI_MODEL", p.OpenAI.Model)
	p.Deepgram.APIKey = envOr("DEEPGRAM_API_KEY", p.Deepgram.APIKey)

	c.Store.Driver = envOr("LISA_STORE_DRIVER", c.Store.Driver)
	c.Store.DSN = envOr("LISA_STORE_DSN", c.Store.DSN)

	c.Log.Level = envOr("LOG_LEVEL", c.Log.Level)
	c.Log.Color = envBoolOr("LOG_COLOR", c.Log.Color)
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		problems = append(problems, "server.path must start with /")
	}
	if c.Conversation.SilenceTimeoutMs <= 0 {
		problems = append(problems, "conversation.silenceTimeoutMs must be positive")
	}
	if c.Conversation.MaxConversationMinutes <= 0 {
		problems = append(problems, "conversation.maxConversationMinutes must be positive")
	}
	if c.Conversation.MaxHistory < 2 {
		problems = append(problems, "conversation.maxHistory must be at least 2")
	}
	if ch := c.Conversation.InterimFillerChance; ch < 0 || ch > 1 {
		problems = append(problems, "conversation.interimFillerChance must be within [0,1]")
	}
	for _, name := range c.Conversation.InterruptOn {
		switch name {
		case InterruptWords:
			if c.Conversation.InterruptMinWords <= 0 {
				problems = append(problems, "conversation.interruptMinWords must be positive for the words strategy")
			}
		case InterruptVolume, InterruptVoice:
		default:
			problems = append(problems, fmt.Sprintf("conversation.interruptOn %q unknown", name))
		}
	}
	if r := c.VAD.MaxCentroidRatio; r < 0 || r > 0.5 {
		problems = append(problems, "vad.maxCentroidRatio must be within [0,0.5]")
	}
	if c.VAD.FrameDurationMs <= 0 {
		problems = append(problems, "vad.frameDurationMs must be positive")
	}
	switch c.Providers.STTMode {
	case STTStreaming, STTBatch, STTNone:
	default:
		problems = append(problems, fmt.Sprintf("providers.sttMode %q unknown", c.Providers.STTMode))
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.Store.DSN == "" {
			problems = append(problems, fmt.Sprintf("store.dsn required for driver %s", c.Store.Driver))
		}
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q unknown", c.Store.Driver))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c Conversation) SilenceTimeout() time.Duration {
	return time.Duration(c.SilenceTimeoutMs) * time.Millisecond
}

func (c Conversation) InterimFillerCooldown() time.Duration {
	return time.Duration(c.InterimFillerCooldownMs) * time.Millisecond
}

func (c Conversation) MaxConversationLength() time.Duration {
	return time.Duration(c.MaxConversationMinutes) * time.Minute
}

func (c Conversation) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMinutes) * time.Minute
}

func (c Conversation) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (p Providers) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
