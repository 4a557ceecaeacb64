// Package fallback runs an ordered list of provider attempts and returns the
// first success. Each attempt gets its own deadline; an attempt that ignores
// cancellation is abandoned and its late result dropped.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/square-key-labs/strawgo-lisa/src/logger"
	"github.com/square-key-labs/strawgo-lisa/src/voiceerr"
)

// Attempt is one provider call in a chain
type Attempt[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

type outcome[T any] struct {
	value T
	err   error
}

// First tries each attempt in order. It returns the first successful value and
// the name of the attempt that produced it. When every attempt fails the
// returned error joins all failures. A zero timeout means no per-attempt
// deadline beyond ctx.
func First[T any](ctx context.Context, timeout time.Duration, attempts ...Attempt[T]) (T, string, error) {
	var zero T
	var errs []error

	for _, a := range attempts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		v, err := runOne(ctx, timeout, a)
		if err == nil {
			return v, a.Name, nil
		}

		logger.Warn("[Fallback] %s failed: %v", a.Name, err)
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return zero, "", errors.New("fallback: no attempts configured")
	}
	return zero, "", errors.Join(errs...)
}

func runOne[T any](ctx context.Context, timeout time.Duration, a Attempt[T]) (T, error) {
	var zero T

	callCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	// buffered so an abandoned attempt can still finish without blocking
	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome[T]{err: voiceerr.ProviderFailure(a.Name, fmt.Errorf("panic: %v", r))}
			}
		}()
		v, err := a.Run(callCtx)
		done <- outcome[T]{value: v, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if errors.Is(o.err, context.DeadlineExceeded) && !voiceerr.Is(o.err, voiceerr.KindProviderTimeout) {
				return zero, voiceerr.Timeout(a.Name, o.err)
			}
			if voiceerr.KindOf(o.err) == "" {
				return zero, voiceerr.ProviderFailure(a.Name, o.err)
			}
			return zero, o.err
		}
		return o.value, nil
	case <-callCtx.Done():
		return zero, voiceerr.Timeout(a.Name, callCtx.Err())
	}
}
