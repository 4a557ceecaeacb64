package voiceerr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("classify: %w", Timeout("gemini", context.DeadlineExceeded))

	assert.True(t, Is(err, KindProviderTimeout))
	assert.False(t, Is(err, KindProviderError))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "provider_timeout [gemini]")
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.False(t, Is(nil, KindActionFailed))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "provider_unavailable [openai]: no api key", Unavailable("openai", "no api key").Error())
	assert.Equal(t, "session_not_found: no session abc", SessionNotFound("abc").Error())
	assert.Equal(t, "action_failed [search_orders]: db down", ActionFailed("search_orders", errors.New("db down")).Error())
}
