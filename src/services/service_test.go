package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/square-key-labs/strawgo-lisa/src/dialog"
)

func TestFromHistoryKeepsTail(t *testing.T) {
	history := []dialog.Turn{
		{Speaker: dialog.SpeakerUser, Text: "a"},
		{Speaker: dialog.SpeakerAssistant, Text: "b"},
		{Speaker: dialog.SpeakerUser, Text: "c"},
	}
	msgs := FromHistory(history, 2)
	assert.Equal(t, []ChatMessage{
		{Role: RoleAssistant, Content: "b"},
		{Role: RoleUser, Content: "c"},
	}, msgs)
	assert.Len(t, FromHistory(history, 0), 3)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFence("  {\"a\":1} "))
	assert.Equal(t, `{"a":1}`, StripCodeFence("```\n{\"a\":1}```"))
}
