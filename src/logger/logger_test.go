package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, ERROR, ParseLevel(" ERROR "))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}

func TestLoggerLevelsAndPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := New(WARN, &buf, false, "")

	l.Info("hidden %d", 1)
	assert.Empty(t, buf.String())

	child := l.WithPrefix("VAD")
	child.Warn("volume %.1f", 0.5)
	assert.Contains(t, buf.String(), "[WARN] [VAD] volume 0.5")

	// prefixed loggers share the parent's level
	l.SetLevel(DEBUG)
	buf.Reset()
	child.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestForSessionShortensID(t *testing.T) {
	var buf bytes.Buffer
	l := New(INFO, &buf, false, "")
	l.ForSession("Conversation", "0123456789abcdef").Info("hello")
	assert.Contains(t, buf.String(), "[Conversation 01234567] hello")
}
