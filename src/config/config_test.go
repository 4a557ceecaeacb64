package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Conversation.SilenceTimeout())
	assert.Equal(t, 30*time.Minute, cfg.Conversation.MaxConversationLength())
	assert.Equal(t, 50, cfg.Conversation.MaxHistory)
	assert.True(t, cfg.Conversation.EnableFillerWords)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lisa.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
conversation:
  silenceTimeoutMs: 1500
  responseStyle: concise
providers:
  order: [openai]
store:
  driver: sqlite
  dsn: /tmp/lisa.db
`), 0o600))

	t.Setenv("LISA_RESPONSE_STYLE", "formal")
	t.Setenv("LISA_ENABLE_FILLER_WORDS", "false")
	t.Setenv("LISA_PROVIDERS", "Gemini, openai")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, cfg.Conversation.SilenceTimeout())
	assert.Equal(t, "formal", cfg.Conversation.ResponseStyle)
	assert.False(t, cfg.Conversation.EnableFillerWords)
	assert.Equal(t, []string{"gemini", "openai"}, cfg.Providers.Order)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	// untouched keys keep their defaults
	assert.Equal(t, 30, cfg.Conversation.MaxConversationMinutes)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = DriverPostgres
	cfg.Providers.STTMode = "carrier-pigeon"
	cfg.Conversation.MaxHistory = 1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.dsn required")
	assert.Contains(t, err.Error(), "sttMode")
	assert.Contains(t, err.Error(), "maxHistory")
}

func TestBadEnvKeepsDefault(t *testing.T) {
	t.Setenv("LISA_SILENCE_TIMEOUT_MS", "soon")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Conversation.SilenceTimeoutMs)
}

func TestInterruptOn(t *testing.T) {
	t.Setenv("LISA_INTERRUPT_ON", "volume, Voice")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{InterruptVolume, InterruptVoice}, cfg.Conversation.InterruptOn)

	// an explicitly empty list means any speech interrupts
	t.Setenv("LISA_INTERRUPT_ON", "")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Conversation.InterruptOn)

	cfg = Default()
	cfg.Conversation.InterruptOn = []string{"shouting"}
	assert.ErrorContains(t, cfg.Validate(), "interruptOn")
}
