package db

import (
	"context"
	"errors"
	"time"
)

const DefaultStorageTimeout = 3 * time.Second

// Observer receives the outcome of every guarded storage call.
type Observer interface {
	ObserveStorageCall(operation string, duration time.Duration, err error)
}

// Guard bounds storage calls with a per-call timeout and classifies failures.
type Guard struct {
	timeout  time.Duration
	observer Observer
}

func NewGuard(timeout time.Duration, observer Observer) *Guard {
	if timeout <= 0 {
		timeout = DefaultStorageTimeout
	}
	return &Guard{timeout: timeout, observer: observer}
}

// Do runs fn under the storage timeout. Errors returned by fn pass through unchanged
// unless they indicate the store is unreachable, in which case they are wrapped in an
// *UnavailableError.
func (g *Guard) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	if g == nil {
		g = NewGuard(DefaultStorageTimeout, nil)
	}
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)

	unavailable := IsUnavailableErr(err)
	if g.observer != nil {
		var observed error
		if unavailable {
			observed = err
		}
		g.observer.ObserveStorageCall(operation, time.Since(start), observed)
	}
	if unavailable && !errors.Is(err, ErrStorageUnavailable) {
		return &UnavailableError{Operation: operation, Err: err}
	}
	return err
}
