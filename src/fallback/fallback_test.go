package fallback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/square-key-labs/strawgo-lisa/src/voiceerr"
)

func TestFirstSuccessWins(t *testing.T) {
	calls := 0
	v, name, err := First(context.Background(), time.Second,
		Attempt[string]{Name: "a", Run: func(ctx context.Context) (string, error) {
			calls++
			return "", voiceerr.Unavailable("a", "no key")
		}},
		Attempt[string]{Name: "b", Run: func(ctx context.Context) (string, error) {
			calls++
			return "from b", nil
		}},
		Attempt[string]{Name: "c", Run: func(ctx context.Context) (string, error) {
			calls++
			return "from c", nil
		}},
	)
	require.NoError(t, err)
	assert.Equal(t, "from b", v)
	assert.Equal(t, "b", name)
	assert.Equal(t, 2, calls)
}

func TestFirstAbandonsSlowAttempt(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	v, name, err := First(context.Background(), 20*time.Millisecond,
		Attempt[int]{Name: "slow", Run: func(ctx context.Context) (int, error) {
			<-release // ignores ctx on purpose
			return 1, nil
		}},
		Attempt[int]{Name: "fast", Run: func(ctx context.Context) (int, error) {
			return 2, nil
		}},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, "fast", name)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFirstAllFail(t *testing.T) {
	_, _, err := First(context.Background(), 10*time.Millisecond,
		Attempt[int]{Name: "boom", Run: func(ctx context.Context) (int, error) {
			return 0, errors.New("bad json")
		}},
		Attempt[int]{Name: "panic", Run: func(ctx context.Context) (int, error) {
			panic("nil map")
		}},
		Attempt[int]{Name: "late", Run: func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		}},
	)
	require.Error(t, err)
	assert.True(t, voiceerr.Is(err, voiceerr.KindProviderError))
	assert.Contains(t, err.Error(), "panic: nil map")
	assert.Contains(t, err.Error(), "provider_timeout [late]")
}

func TestFirstNoAttempts(t *testing.T) {
	_, _, err := First[int](context.Background(), time.Second)
	assert.Error(t, err)
}
